//go:build !windows

package lock

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ottersky/botmgr/internal/detector"
)

// ErrBusy is returned when another supervisor invocation holds a live lock
// for longer than the configured wait ceiling.
var ErrBusy = errors.New("lock busy")

const holderFile = "holder"

// Lock is a filesystem mutex guarding supervisor invocations against each
// other. The lock is a directory created atomically; a holder file inside
// records the owning PID so a dead holder can be detected and reclaimed.
type Lock struct {
	Dir      string
	Wait     time.Duration // total time to wait for a live holder (default 30s)
	Interval time.Duration // polling interval while waiting (default 1s)

	held bool
}

func New(dir string) *Lock { return &Lock{Dir: dir} }

// Acquire takes the lock, reclaiming it if the recorded holder is dead.
// A live holder is polled up to the wait ceiling; after that ErrBusy is
// returned wrapped with the lock path so an operator can remove it manually.
func (l *Lock) Acquire() error {
	wait := l.Wait
	if wait <= 0 {
		wait = 30 * time.Second
	}
	interval := l.Interval
	if interval <= 0 {
		interval = time.Second
	}
	deadline := time.Now().Add(wait)
	for {
		err := l.tryAcquire()
		if err == nil {
			return nil
		}
		if !os.IsExist(err) {
			return fmt.Errorf("acquire lock %s: %w", l.Dir, err)
		}
		if l.reclaimStale() {
			continue
		}
		if time.Now().After(deadline) {
			return fmt.Errorf("%w: held by pid %d, remove %s to override", ErrBusy, l.holderPID(), l.Dir)
		}
		time.Sleep(interval)
	}
}

// tryAcquire stages a directory already containing the holder file, then
// renames it into place. The rename is atomic, so the lock directory is never
// observable without its holder and no acquisition window exists for another
// invocation to misread as a dead holder.
func (l *Lock) tryAcquire() error {
	parent := filepath.Dir(l.Dir)
	if err := os.MkdirAll(parent, 0o750); err != nil {
		return err
	}
	stage, err := os.MkdirTemp(parent, filepath.Base(l.Dir)+".stage-*")
	if err != nil {
		return err
	}
	if err := os.WriteFile(filepath.Join(stage, holderFile), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		_ = os.RemoveAll(stage)
		return err
	}
	if err := os.Rename(stage, l.Dir); err != nil {
		_ = os.RemoveAll(stage)
		return err
	}
	l.held = true
	return nil
}

// reclaimStale removes the lock when its recorded holder no longer exists.
// Acquisition publishes the holder file atomically with the directory, so a
// missing or unreadable holder means its owner crashed, not that an
// acquisition is in flight.
// Returns true when a reclamation happened and acquisition should be retried.
func (l *Lock) reclaimStale() bool {
	pid := l.holderPID()
	if pid > 0 && detector.PIDAlive(pid) {
		return false
	}
	trash := l.trashPath()
	if err := os.Rename(l.Dir, trash); err != nil {
		// Already reclaimed or released by someone else; retry acquisition.
		return true
	}
	// The lock may have changed hands between the liveness read and the
	// rename. If we captured a different, live holder, hand it back.
	if captured := readHolder(filepath.Join(trash, holderFile)); captured != pid &&
		captured > 0 && detector.PIDAlive(captured) {
		if os.Rename(trash, l.Dir) == nil {
			return false
		}
	}
	slog.Warn("reclaiming stale lock", "dir", l.Dir, "holder", pid)
	_ = os.RemoveAll(trash)
	return true
}

func (l *Lock) holderPID() int {
	return readHolder(filepath.Join(l.Dir, holderFile))
}

func readHolder(path string) int {
	b, err := os.ReadFile(path)
	if err != nil {
		return 0
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(b)))
	if err != nil {
		return 0
	}
	return pid
}

func (l *Lock) trashPath() string {
	return fmt.Sprintf("%s.trash-%d-%d", l.Dir, os.Getpid(), time.Now().UnixNano())
}

// Release drops the lock. Safe to call multiple times and on an unheld lock;
// it must run on every exit path, including signal-triggered ones.
// The directory is renamed aside before deletion so a concurrent acquirer
// never observes a half-deleted lock with its holder file already gone.
func (l *Lock) Release() {
	if !l.held {
		return
	}
	l.held = false
	trash := l.trashPath()
	if err := os.Rename(l.Dir, trash); err != nil {
		_ = os.RemoveAll(l.Dir)
		return
	}
	_ = os.RemoveAll(trash)
}

// Held reports whether this instance currently owns the lock.
func (l *Lock) Held() bool { return l.held }
