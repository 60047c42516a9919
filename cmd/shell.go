package cmd

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/etnz/dataterm"
	"github.com/google/subcommands"
	"github.com/kballard/go-shellquote"
	"golang.org/x/term"
)

type shellCmd struct{}

func (*shellCmd) Name() string     { return "shell" }
func (*shellCmd) Synopsis() string { return "run commands interactively in one session" }
func (*shellCmd) Usage() string {
	return `dterm shell

  Reads commands line by line and runs them in the same session, so that
  datasets loaded by a command are available to the next ones. Lines are
  split like a POSIX shell does. 'quit' or 'exit' ends the session.

Usage Examples:
$ dterm shell
dterm> load AAPL.US
dterm> derive -indicator rsi AAPL.US
dterm> show -columns date,close,close_rsi_14 -limit 20 AAPL.US
dterm> quit
`
}
func (*shellCmd) Schema() Schema { return nil }

const shellPrompt = "dterm> "

func (*shellCmd) Run(ctx context.Context, e *Env, _ []string) error {
	interactive := isTerminal(e.In) && isTerminal(e.Out)
	if interactive {
		fmt.Fprintln(e.Out, "Welcome to dterm. Type 'topic' for help, 'quit' to exit.")
	}
	scanner := bufio.NewScanner(e.In)
	for {
		if interactive {
			fmt.Fprint(e.Out, shellPrompt)
		}
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		switch {
		case line == "" || strings.HasPrefix(line, "#"):
			continue
		case line == "quit" || line == "exit":
			return nil
		}
		args, err := shellquote.Split(line)
		if err != nil {
			fmt.Fprintln(e.Err, "Error:", Message(fmt.Errorf("%w: %v", dataterm.ErrInvalidParameters, err)))
			continue
		}
		e.execute(ctx, args)
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	if interactive {
		fmt.Fprintln(e.Out)
	}
	return scanner.Err()
}

// execute runs one command line in the session. Failures are reported and do
// not end the shell.
func (e *Env) execute(ctx context.Context, args []string) subcommands.ExitStatus {
	if args[0] == "shell" {
		fmt.Fprintln(e.Err, "Error: already in a shell")
		return subcommands.ExitUsageError
	}
	if !IsCommand(args[0]) && !strings.HasPrefix(args[0], "-") {
		if found, code := RunExtension(ctx, e.Session, args[0], args[1:], e.In, e.Out, e.Err); found {
			return subcommands.ExitStatus(code)
		}
	}
	fs := flag.NewFlagSet("dterm", flag.ContinueOnError)
	fs.SetOutput(e.Err)
	if err := fs.Parse(args); err != nil {
		return subcommands.ExitUsageError
	}
	commander := subcommands.NewCommander(fs, "dterm")
	commander.Output = e.Out
	commander.Error = e.Err
	Register(commander, e.In, e.Out, e.Err)
	status := commander.Execute(ctx, e.Session)
	e.Log.WithField("status", int(status)).Debugf("%s done", args[0])
	return status
}

func isTerminal(v any) bool {
	f, ok := v.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
