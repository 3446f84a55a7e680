//go:build !windows

package supervisor

import (
	"fmt"
	"log/slog"
	"syscall"
	"time"

	"github.com/ottersky/botmgr/internal/detector"
	"github.com/ottersky/botmgr/internal/history"
)

// Stop terminates all tracked bots, preferring graceful shutdown: SIGTERM to
// the process group, a bounded one-second poll for exit, then SIGKILL. With
// no registry it falls back to best-effort discovery by launch-command
// substring. The registry is deleted unconditionally afterwards, so Stop is
// idempotent even when some kills fail silently.
func (s *Supervisor) Stop(withDelay bool) ([]BotResult, error) {
	if withDelay {
		s.RandomDelay()
	}

	entries, err := s.loadEntries()
	if err != nil {
		slog.Warn("registry unreadable, falling back to discovery", "err", err)
		_ = s.reg.Clear()
		entries = nil
	}
	if entries == nil {
		_ = s.reg.Clear()
		return s.stopByDiscovery(), nil
	}

	trackedAt := s.reg.ModTime()
	results := make([]BotResult, 0, len(entries))
	failed := 0
	for i, e := range entries {
		name := s.botName(i)
		res := BotResult{Bot: name, PID: e.PID}
		switch {
		case e.Pending:
			// A placeholder here means a start crashed mid-flight (a live
			// start would hold the lock). Nothing was launched for the slot,
			// so it is skipped rather than blocked on or failed.
			slog.Warn("skipping pending slot, start never completed", "bot", name)
		case !trackedAlive(e.PID, trackedAt):
			slog.Info("bot already stopped", "bot", name, "pid", e.PID)
		default:
			if err := s.stopPID(name, e.PID); err != nil {
				res.Err = err
				failed++
			}
		}
		results = append(results, res)
	}

	// Stop always clears tracking state, even after failed kills.
	if err := s.reg.Clear(); err != nil {
		return results, err
	}
	if failed > 0 {
		return results, fmt.Errorf("%w: %d bots did not confirm exit", ErrPartialFailure, failed)
	}
	return results, nil
}

// stopPID escalates SIGTERM to SIGKILL after the graceful-shutdown ceiling.
func (s *Supervisor) stopPID(name string, pid int) error {
	slog.Info("stopping bot", "bot", name, "pid", pid)
	terminate(pid, syscall.SIGTERM)
	deadline := time.Now().Add(s.cfg.StopTimeout)
	for time.Now().Before(deadline) {
		if !detector.PIDAlive(pid) {
			s.record(history.EventStop, name, pid, true, "")
			return nil
		}
		time.Sleep(time.Second)
	}
	slog.Warn("graceful shutdown timed out, killing", "bot", name, "pid", pid)
	terminate(pid, syscall.SIGKILL)
	time.Sleep(200 * time.Millisecond)
	if detector.PIDAlive(pid) {
		s.record(history.EventStop, name, pid, false, "survived SIGKILL")
		return fmt.Errorf("bot %s (pid %d) survived SIGKILL", name, pid)
	}
	s.record(history.EventStop, name, pid, true, "forced")
	return nil
}

// stopByDiscovery is the degraded-mode path: no registry, so locate processes
// by their launch-command signature and signal them directly. No liveness
// confirmation is attempted.
func (s *Supervisor) stopByDiscovery() []BotResult {
	results := make([]BotResult, 0, len(s.bots))
	for _, b := range s.bots {
		res := BotResult{Bot: b.Name}
		if b.Match == "" {
			results = append(results, res)
			continue
		}
		pids, err := (detector.CommandMatchDetector{Match: b.Match}).FindPIDs()
		if err != nil {
			res.Err = err
			results = append(results, res)
			continue
		}
		if len(pids) == 0 {
			slog.Info("no process matches", "bot", b.Name, "match", b.Match)
			results = append(results, res)
			continue
		}
		for _, pid := range pids {
			slog.Info("signaling discovered process", "bot", b.Name, "pid", pid)
			_ = syscall.Kill(pid, syscall.SIGTERM)
			s.record(history.EventStop, b.Name, pid, true, "discovered by command match")
		}
		res.PID = pids[0]
		results = append(results, res)
	}
	return results
}
