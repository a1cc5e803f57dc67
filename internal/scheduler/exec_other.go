//go:build !windows

package scheduler

import (
	"os/exec"

	"croner/internal/shell"
)

var joinCommand = shell.Join

func prepareCommand(*exec.Cmd, []string, string) {}
