// Package procexec builds external commands whose whole process tree is torn
// down when their context ends.
package procexec

import (
	"context"
	"os/exec"
	"time"
)

// WaitDelay bounds how long Wait keeps draining output after the context is
// done. Tools like yt-dlp hand their pipes to ffmpeg, which would otherwise
// hold Wait open until it exits on its own.
const WaitDelay = 3 * time.Second

// Command is exec.CommandContext with the process started in its own group
// and the group killed on cancellation.
func Command(ctx context.Context, name string, args ...string) *exec.Cmd {
	cmd := exec.CommandContext(ctx, name, args...)
	killGroupOnCancel(cmd)
	cmd.WaitDelay = WaitDelay
	return cmd
}
