package supervisor

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// Bot describes one supervised program. The supervisor knows nothing about a
// bot beyond how to launch it, where, and how to find it again.
type Bot struct {
	Name    string
	WorkDir string
	Command string
	// Match is the launch-command substring used for degraded-mode discovery
	// when no registry exists.
	Match string
	// Venv is the bot's isolated runtime environment, relative to WorkDir.
	Venv string
}

// PrereqOK reports whether the bot's runtime environment is usable: when a
// venv is configured, its python interpreter must exist.
func (b Bot) PrereqOK() bool {
	if b.Venv == "" {
		return true
	}
	venv := b.Venv
	if !filepath.IsAbs(venv) {
		venv = filepath.Join(b.WorkDir, venv)
	}
	if _, err := os.Stat(filepath.Join(venv, "bin", "python")); err != nil {
		return false
	}
	return true
}

// BuildCommand constructs an *exec.Cmd for the bot's launch command.
// It avoids invoking a shell when not necessary, and it also respects
// an explicit shell invocation already present in the command string
// (e.g., "sh -c 'echo hi'"), avoiding double-wrapping with another shell.
func (b Bot) BuildCommand() *exec.Cmd {
	cmdStr := strings.TrimSpace(b.Command)
	if cmdStr == "" {
		// #nosec G204
		return exec.Command("/bin/true")
	}
	// If the command already explicitly uses a shell, honor it without adding another layer.
	if _, afterC, ok := parseExplicitShell(cmdStr); ok {
		// Always use absolute shell path to avoid PATH dependency.
		// #nosec G204
		return exec.Command("/bin/sh", "-c", afterC)
	}
	// Fallback: when metacharacters are present, use /bin/sh -c
	if strings.ContainsAny(cmdStr, "|&;<>*?`$\"'(){}[]~") {
		// #nosec G204
		return exec.Command("/bin/sh", "-c", cmdStr)
	}
	parts := strings.Fields(cmdStr)
	name := parts[0]
	var args []string
	if len(parts) > 1 {
		args = parts[1:]
	}
	// #nosec G204
	return exec.Command(name, args...)
}

// parseExplicitShell detects patterns like "sh -c <ARG>" or "/bin/sh -c <ARG>" at the
// beginning of cmdStr. It returns (shellPath, afterCArg, true) when matched.
// It preserves the substring after "-c " verbatim to avoid breaking quoting.
func parseExplicitShell(cmdStr string) (string, string, bool) {
	trim := strings.TrimLeft(cmdStr, " \t")
	candidates := []string{"sh -c ", "/bin/sh -c ", "/usr/bin/sh -c "}
	for _, p := range candidates {
		if strings.HasPrefix(trim, p) {
			after := trim[len(p):]
			// If after is wrapped in single or double quotes, strip one pair so that
			// we pass the actual script to the shell (the outer quotes would otherwise
			// inhibit parsing/redirection inside the script).
			if n := len(after); n >= 2 {
				if (after[0] == '\'' && after[n-1] == '\'') || (after[0] == '"' && after[n-1] == '"') {
					after = after[1 : n-1]
				}
			}
			return strings.Fields(p)[0], after, true
		}
	}
	return "", "", false
}
