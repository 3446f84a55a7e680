package detector

import (
	"os"
	"strings"

	gopsproc "github.com/shirou/gopsutil/v4/process"
)

// CommandMatchDetector scans the process table for command lines containing
// Match. It is a degraded-mode fallback used only when no PID is tracked:
// substring matching may catch unrelated processes, so callers must treat
// results as best-effort. The calling process itself is never matched.
type CommandMatchDetector struct{ Match string }

func (d CommandMatchDetector) Alive() (bool, error) {
	pids, err := d.FindPIDs()
	if err != nil {
		return false, err
	}
	return len(pids) > 0, nil
}

func (d CommandMatchDetector) Describe() string { return "cmdmatch:" + d.Match }

// FindPIDs returns the PIDs of all live processes whose command line contains
// the Match substring, excluding the current process.
func (d CommandMatchDetector) FindPIDs() ([]int, error) {
	m := strings.TrimSpace(d.Match)
	if m == "" {
		return nil, nil
	}
	self := os.Getpid()
	procs, err := gopsproc.Processes()
	if err != nil {
		return nil, err
	}
	var out []int
	for _, p := range procs {
		pid := int(p.Pid)
		if pid == self {
			continue
		}
		// Cmdline errors are expected for short-lived or restricted processes.
		cl, err := p.Cmdline()
		if err != nil || cl == "" {
			continue
		}
		if strings.Contains(cl, m) {
			out = append(out, pid)
		}
	}
	return out, nil
}
