//go:build !unix

package executil

import "os/exec"

func detach(_ *exec.Cmd) {}
