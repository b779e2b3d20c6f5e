//go:build !unix

package procexec

import "os/exec"

// Without process groups only the direct child is killed; WaitDelay still
// bounds the wait on inherited pipes.
func killGroupOnCancel(cmd *exec.Cmd) {}
