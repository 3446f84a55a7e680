//go:build !windows

package supervisor

import (
	"fmt"
	"log/slog"

	"github.com/ottersky/botmgr/internal/history"
	"github.com/ottersky/botmgr/internal/registry"
)

// BotResult is the per-bot outcome of a start or stop operation.
type BotResult struct {
	Bot string
	PID int
	Err error
}

// Start launches every configured bot that is not already running.
//
// Placeholders for all slots are persisted before any launch begins: a
// concurrent start sees non-empty registry state and refuses to proceed,
// which closes the check-then-launch race. Per-bot failures do not abort the
// remaining bots. Returns ErrAlreadyRunning, ErrTotalFailure, or
// ErrPartialFailure as the aggregate; partial failure is a handled state.
func (s *Supervisor) Start(withDelay bool) ([]BotResult, error) {
	entries, err := s.loadEntries()
	if err != nil {
		slog.Warn("clearing unreadable registry", "err", err)
		if err := s.reg.Clear(); err != nil {
			return nil, err
		}
		entries = nil
	}
	if entries != nil {
		if s.anyLive(entries) {
			return nil, fmt.Errorf("%w: registry %s tracks a live process", ErrAlreadyRunning, s.reg.Path)
		}
		slog.Info("removing stale registry", "path", s.reg.Path)
		if err := s.reg.Clear(); err != nil {
			return nil, err
		}
	}

	// Reserve every slot before the first launch.
	entries = make([]registry.Entry, len(s.bots))
	for i := range entries {
		entries[i] = registry.Entry{Pending: true}
	}
	if err := s.reg.Save(entries); err != nil {
		return nil, fmt.Errorf("reserve registry slots: %w", err)
	}

	if withDelay {
		s.RandomDelay()
	}

	results := make([]BotResult, 0, len(s.bots))
	launched := 0
	for i, b := range s.bots {
		res := BotResult{Bot: b.Name}
		if !b.PrereqOK() {
			res.Err = fmt.Errorf("%w: %s has no usable venv at %s", ErrPrereqMissing, b.Name, b.Venv)
			slog.Error("prerequisite check failed", "bot", b.Name, "venv", b.Venv)
			s.record(history.EventStart, b.Name, 0, false, "venv missing")
			results = append(results, res)
			continue
		}
		pid, err := launch(b, s.log, s.cfg.Settle)
		if err != nil {
			res.Err = fmt.Errorf("launch %s: %w", b.Name, err)
			slog.Error("bot failed to start", "bot", b.Name, "err", err)
			s.record(history.EventStart, b.Name, 0, false, err.Error())
			results = append(results, res)
			continue
		}
		entries[i] = registry.Entry{PID: pid}
		if err := s.reg.Save(entries); err != nil {
			// The bot is up but untracked; surface loudly and keep going.
			slog.Error("failed to record pid", "bot", b.Name, "pid", pid, "err", err)
		}
		res.PID = pid
		launched++
		slog.Info("bot started", "bot", b.Name, "pid", pid)
		s.record(history.EventStart, b.Name, pid, true, "")
		results = append(results, res)
	}

	switch {
	case launched == 0:
		_ = s.reg.Clear()
		return results, fmt.Errorf("%w: all %d bots failed", ErrTotalFailure, len(s.bots))
	case launched < len(s.bots):
		return results, fmt.Errorf("%w: %d of %d started", ErrPartialFailure, launched, len(s.bots))
	default:
		return results, nil
	}
}

func (s *Supervisor) anyLive(entries []registry.Entry) bool {
	trackedAt := s.reg.ModTime()
	for _, e := range entries {
		if !e.Pending && trackedAlive(e.PID, trackedAt) {
			return true
		}
	}
	return false
}
