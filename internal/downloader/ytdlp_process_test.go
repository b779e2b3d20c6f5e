//go:build unix

package downloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vod_archiver/internal/domain"
	"vod_archiver/internal/procexec"
)

func TestFetch_TimeoutStopsChildProcesses(t *testing.T) {
	// Stands in for yt-dlp leaving ffmpeg running on the inherited pipes.
	script := filepath.Join(t.TempDir(), "yt-dlp")
	require.NoError(t, os.WriteFile(script, []byte("#!/bin/sh\nsleep 20 &\nsleep 20\n"), 0o755))

	d := New(Config{YtdlpPath: script, Timeout: time.Second}, testLogger())

	started := time.Now()
	_, err := d.Fetch(context.Background(), "v1", "Slow stream", t.TempDir())
	elapsed := time.Since(started)

	require.ErrorIs(t, err, domain.ErrDownloadFailed)
	assert.Contains(t, err.Error(), context.DeadlineExceeded.Error())
	assert.Less(t, elapsed, time.Second+procexec.WaitDelay+time.Second)
}
