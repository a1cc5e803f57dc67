//go:build windows

package scheduler

import (
	"os/exec"
	"strings"
	"syscall"

	"croner/internal/shell"
)

// joinCommand quotes tokens for the program cmd /C starts, which splits its
// command line by the C runtime rules.
var joinCommand = shell.JoinWindows

// prepareCommand hands cmd.exe the command line verbatim. The default
// argument escaping follows the C runtime rules, which cmd.exe does not use.
func prepareCommand(cmd *exec.Cmd, shellArgv []string, line string) {
	parts := make([]string, 0, len(shellArgv)+1)
	for _, a := range shellArgv {
		parts = append(parts, syscall.EscapeArg(a))
	}
	parts = append(parts, line)
	cmd.SysProcAttr = &syscall.SysProcAttr{CmdLine: strings.Join(parts, " ")}
}
