//go:build !windows

package supervisor

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/ottersky/botmgr/internal/config"
	"github.com/ottersky/botmgr/internal/detector"
	"github.com/ottersky/botmgr/internal/history"
	"github.com/ottersky/botmgr/internal/lock"
	"github.com/ottersky/botmgr/internal/logger"
	"github.com/ottersky/botmgr/internal/registry"
)

// Supervisor owns the lock, the PID registry, and the start/stop/status/
// restart operations over the configured bots. One instance serves one CLI
// invocation; concurrent invocations coordinate through the lock.
type Supervisor struct {
	bots []Bot
	cfg  config.SupervisorConfig
	log  logger.Config
	reg  *registry.Registry
	lk   *lock.Lock
	sink history.Sink // nil when history is disabled
}

// New builds a Supervisor from configuration. The optional history sink may
// be nil.
func New(c *config.Config, sink history.Sink) *Supervisor {
	bots := make([]Bot, 0, len(c.Bots))
	for _, b := range c.Bots {
		bots = append(bots, Bot{
			Name:    b.Name,
			WorkDir: b.WorkDir,
			Command: b.Command,
			Match:   b.Match,
			Venv:    b.Venv,
		})
	}
	lk := lock.New(c.Supervisor.LockDir)
	lk.Wait = c.Supervisor.LockWait
	lk.Interval = c.Supervisor.LockInterval
	return &Supervisor{
		bots: bots,
		cfg:  c.Supervisor,
		log:  c.Log,
		reg:  registry.New(c.Supervisor.Registry),
		lk:   lk,
		sink: sink,
	}
}

// Lock exposes the invocation lock so the CLI can scope it around an
// operation and release it from signal handlers.
func (s *Supervisor) Lock() *lock.Lock { return s.lk }

// Bots returns the configured bot descriptors in slot order.
func (s *Supervisor) Bots() []Bot { return s.bots }

// LogConfig returns the logging configuration, used by the logs command.
func (s *Supervisor) LogConfig() logger.Config { return s.log }

// RandomDelay sleeps a uniformly random interval below the configured
// ceiling. Scheduled invocations across a fleet use it to desynchronize.
func (s *Supervisor) RandomDelay() {
	maxDelay := s.cfg.RandomDelayMax
	if maxDelay <= 0 {
		return
	}
	d := rand.N(maxDelay)
	slog.Info("random pre-delay", "sleep", d.Round(time.Millisecond))
	time.Sleep(d)
}

// botName derives the display name for a registry slot from its position.
func (s *Supervisor) botName(i int) string {
	if i < len(s.bots) {
		return s.bots[i].Name
	}
	return fmt.Sprintf("bot-%d", i+1)
}

// loadEntries reads the registry, treating a slot count that does not match
// the configured bots as corrupt: slots are positional, so a mismatched file
// cannot be attributed to any bot.
func (s *Supervisor) loadEntries() ([]registry.Entry, error) {
	entries, err := s.reg.Load()
	if err != nil {
		return nil, err
	}
	if entries != nil && len(entries) != len(s.bots) {
		return nil, fmt.Errorf("registry %s has %d slots, want %d", s.reg.Path, len(entries), len(s.bots))
	}
	return entries, nil
}

func (s *Supervisor) record(t history.EventType, bot string, pid int, ok bool, detail string) {
	if s.sink == nil {
		return
	}
	e := history.Event{Type: t, OccurredAt: time.Now(), Bot: bot, PID: pid, OK: ok, Detail: detail}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if err := s.sink.Send(ctx, e); err != nil {
		slog.Warn("history sink write failed", "err", err)
	}
}

// trackedAlive reports whether pid is live and still the process the registry
// recorded. A process that started after the registry was written holds a
// reused PID and is a stranger: it is never counted as ours or signalled.
// An unreadable start time falls back to plain liveness.
func trackedAlive(pid int, trackedAt time.Time) bool {
	if !detector.PIDAlive(pid) {
		return false
	}
	if trackedAt.IsZero() {
		return true
	}
	start, ok := detector.StartTime(pid)
	if !ok {
		return true
	}
	// One second of slack covers filesystem timestamp granularity.
	return !start.After(trackedAt.Add(time.Second))
}

// BotStatus is one per-slot line of the status report.
type BotStatus struct {
	Name  string
	State registry.State
	PID   int
}

// Status classifies every registry slot. It is read-only except for one
// self-healing case: a registry with zero running and zero pending entries is
// deleted, recovering from supervisors that crashed after their bots died.
func (s *Supervisor) Status() ([]BotStatus, error) {
	entries, err := s.loadEntries()
	if err != nil {
		// Corrupt registry: clear and report nothing running.
		slog.Warn("clearing unreadable registry", "err", err)
		_ = s.reg.Clear()
		return nil, nil
	}
	if entries == nil {
		return nil, nil
	}
	trackedAt := s.reg.ModTime()
	statuses := make([]BotStatus, 0, len(entries))
	running := 0
	pending := 0
	for i, e := range entries {
		st := BotStatus{Name: s.botName(i)}
		switch {
		case e.Pending:
			st.State = registry.StatePending
			pending++
		case trackedAlive(e.PID, trackedAt):
			st.State = registry.StateRunning
			st.PID = e.PID
			running++
		default:
			st.State = registry.StateStopped
			st.PID = e.PID
		}
		statuses = append(statuses, st)
	}
	if running == 0 && pending == 0 {
		slog.Info("no live bots tracked, removing stale registry", "path", s.reg.Path)
		if err := s.reg.Clear(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return statuses, nil
}

// Restart is stop, a fixed pause to let ports and files release, then start.
// There is no atomicity across the phases: a crash in between leaves the bots
// stopped, which is accepted behavior.
func (s *Supervisor) Restart(withDelay bool) ([]BotResult, error) {
	if _, err := s.Stop(withDelay); err != nil {
		slog.Warn("stop phase reported failures", "err", err)
	}
	slog.Info("pausing between stop and start", "pause", s.cfg.RestartPause)
	time.Sleep(s.cfg.RestartPause)
	return s.Start(false)
}
