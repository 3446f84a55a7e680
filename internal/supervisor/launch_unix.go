//go:build !windows

package supervisor

import (
	"bytes"
	"os"
	"strconv"
	"syscall"
	"time"

	"github.com/ottersky/botmgr/internal/detector"
	"github.com/ottersky/botmgr/internal/logger"
)

// launch starts the bot as a detached child in its own process group with
// stdout/stderr redirected to the bot's log files, waits the settle interval,
// and probes liveness. Ownership of the child is transferred: the supervisor
// keeps only the PID for later signaling.
func launch(b Bot, logCfg logger.Config, settle time.Duration) (int, error) {
	cmd := b.BuildCommand()
	if b.WorkDir != "" {
		cmd.Dir = b.WorkDir
	}
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	// Unconfigured streams stay nil; os/exec wires nil to the null device.
	outF, errF, err := logCfg.OpenFiles(b.Name)
	if err != nil {
		return 0, err
	}
	if outF != nil {
		cmd.Stdout = outF
	}
	if errF != nil {
		cmd.Stderr = errF
	}

	if err := cmd.Start(); err != nil {
		closeBoth(outF, errF)
		return 0, err
	}
	pid := cmd.Process.Pid
	// Parent-side descriptors are duplicated into the child; close ours.
	closeBoth(outF, errF)
	// Reap in the background so an immediate exit does not linger as a
	// zombie and fool the settle probe. The goroutine is abandoned when the
	// supervisor exits; the bot runs detached either way.
	go func() { _ = cmd.Wait() }()

	time.Sleep(settle)
	if !probeAlive(pid) {
		return 0, ErrLaunchFailed
	}
	return pid, nil
}

func closeBoth(a, b *os.File) {
	if a != nil {
		_ = a.Close()
	}
	if b != nil {
		_ = b.Close()
	}
}

// probeAlive reports whether pid is a live, non-zombie process.
func probeAlive(pid int) bool {
	if isZombieLinux(pid) {
		return false
	}
	return detector.PIDAlive(pid)
}

// isZombieLinux returns true if /proc/<pid>/status reports a zombie state (Z) on Linux.
func isZombieLinux(pid int) bool {
	path := "/proc/" + strconv.Itoa(pid) + "/status"
	b, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	return bytes.Contains(b, []byte("State:\tZ"))
}

// terminate sends sig to the bot's process group, falling back to the single
// process when the group is gone.
func terminate(pid int, sig syscall.Signal) {
	if err := syscall.Kill(-pid, sig); err != nil {
		_ = syscall.Kill(pid, sig)
	}
}
