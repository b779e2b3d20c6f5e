//go:build unix

package procexec

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// writeScript creates an executable shell script in a temp dir.
func writeScript(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "tool.sh")
	require.NoError(t, os.WriteFile(path, []byte("#!/bin/sh\n"+body), 0o755))
	return path
}

func TestCommand_RunsToCompletion(t *testing.T) {
	script := writeScript(t, "echo hello\n")

	var out bytes.Buffer
	cmd := Command(context.Background(), script)
	cmd.Stdout = &out

	require.NoError(t, cmd.Run())
	assert.Equal(t, "hello\n", out.String())
}

func TestCommand_DeadlineKillsBackgroundChildren(t *testing.T) {
	// The background sleep keeps stdout open after the shell is killed.
	script := writeScript(t, "sleep 20 &\nsleep 20\n")

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()

	var out bytes.Buffer
	cmd := Command(ctx, script)
	cmd.Stdout = &out

	started := time.Now()
	err := cmd.Run()
	elapsed := time.Since(started)

	require.Error(t, err)
	assert.ErrorIs(t, ctx.Err(), context.DeadlineExceeded)
	assert.Less(t, elapsed, 500*time.Millisecond+WaitDelay+time.Second)
}
