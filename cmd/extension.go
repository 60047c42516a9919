package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strconv"

	"github.com/etnz/dataterm"
)

// Environment passed to extensions.
const (
	EnvSession   = "DTERM_SESSION"
	EnvExportDir = "DTERM_EXPORT_DIR"
	EnvCacheDir  = "DTERM_CACHE_DIR"
	EnvLogLevel  = "DTERM_LOG_LEVEL"
	EnvTimeout   = "DTERM_TIMEOUT"
	EnvLimit     = "DTERM_LIMIT"
)

// IsCommand reports whether name is a built-in command.
func IsCommand(name string) bool {
	switch name {
	case "help", "flags", "commands":
		return true
	}
	for _, c := range Commands() {
		if c.Name() == name {
			return true
		}
	}
	return false
}

// RunExtension runs the dterm-<name> program found in PATH with args, and
// the session settings in its environment. It returns false when there is no
// such program, and the program exit code otherwise.
func RunExtension(ctx context.Context, s *dataterm.Session, name string, args []string, in io.Reader, out, errOut io.Writer) (bool, int) {
	program := "dterm-" + name
	path, err := exec.LookPath(program)
	if err != nil {
		s.Log.WithError(err).Debugf("no extension %s", program)
		return false, 0
	}

	cmd := exec.CommandContext(ctx, path, args...)
	cmd.Stdin = in
	cmd.Stdout = out
	cmd.Stderr = errOut
	cmd.Env = append(os.Environ(),
		EnvSession+"="+s.ID.String(),
		EnvExportDir+"="+s.Config.ExportDir,
		EnvCacheDir+"="+s.Config.CacheDir,
		EnvLogLevel+"="+s.Config.LogLevel,
		EnvTimeout+"="+s.Config.Timeout.String(),
		EnvLimit+"="+strconv.Itoa(s.Config.Limit),
	)
	s.Log.WithField("extension", path).Debug("running extension")

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return true, exitErr.ExitCode()
		}
		fmt.Fprintf(errOut, "Error: extension %s: %v\n", program, err)
		return true, 1
	}
	return true, 0
}
