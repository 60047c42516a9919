package cmd

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/subcommands"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// extension writes an executable dterm-<name> script in a directory added to PATH.
func extension(t *testing.T, name, script string) {
	t.Helper()
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "dterm-"+name), []byte("#!/bin/sh\n"+script), 0o755))
	t.Setenv("PATH", dir+string(os.PathListSeparator)+os.Getenv("PATH"))
}

func TestRunExtension(t *testing.T) {
	extension(t, "hello", `echo "session=$DTERM_SESSION"
echo "export=$DTERM_EXPORT_DIR"
echo "args=$*"
`)
	s := newSession(t)
	var out, errOut bytes.Buffer
	found, code := RunExtension(context.Background(), s, "hello", []string{"a", "b"}, strings.NewReader(""), &out, &errOut)
	require.True(t, found)
	assert.Zero(t, code, errOut.String())
	assert.Contains(t, out.String(), "session="+s.ID.String())
	assert.Contains(t, out.String(), "export="+s.Config.ExportDir)
	assert.Contains(t, out.String(), "args=a b")
}

func TestRunExtensionExitCode(t *testing.T) {
	extension(t, "fail", "exit 3\n")
	found, code := RunExtension(context.Background(), newSession(t), "fail", nil, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.True(t, found)
	assert.Equal(t, 3, code)
}

func TestRunExtensionNotFound(t *testing.T) {
	found, _ := RunExtension(context.Background(), newSession(t), "surely-not-installed", nil, strings.NewReader(""), &bytes.Buffer{}, &bytes.Buffer{})
	assert.False(t, found)
}

func TestShellRunsExtensions(t *testing.T) {
	extension(t, "hello", "echo hello from $1\n")
	r := run(t, newSession(t), "hello", "shell")
	assert.Equal(t, subcommands.ExitSuccess, r.status, r.err)
	assert.Equal(t, "hello from shell\n", r.out)
}

func TestIsCommand(t *testing.T) {
	assert.True(t, IsCommand("load"))
	assert.True(t, IsCommand("help"))
	assert.False(t, IsCommand("hello"))
}
