package botmgr

import (
	cfg "github.com/ottersky/botmgr/internal/config"
	"github.com/ottersky/botmgr/internal/history"
	"github.com/ottersky/botmgr/internal/lock"
	"github.com/ottersky/botmgr/internal/supervisor"
)

// Re-export core types for external consumers.
// These are aliases so conversions are zero-cost.

type Config = cfg.Config

type BotConfig = cfg.BotConfig

type Bot = supervisor.Bot

type BotResult = supervisor.BotResult

type BotStatus = supervisor.BotStatus

type HistorySink = history.Sink

// Supervisor is a thin facade over internal/supervisor.Supervisor.
// It provides a stable public API for embedding.
type Supervisor struct{ inner *supervisor.Supervisor }

// New builds a supervisor from configuration with an optional history sink.
func New(c *Config, sink HistorySink) *Supervisor {
	return &Supervisor{inner: supervisor.New(c, sink)}
}

func (s *Supervisor) Start(withDelay bool) ([]BotResult, error)   { return s.inner.Start(withDelay) }
func (s *Supervisor) Stop(withDelay bool) ([]BotResult, error)    { return s.inner.Stop(withDelay) }
func (s *Supervisor) Restart(withDelay bool) ([]BotResult, error) { return s.inner.Restart(withDelay) }
func (s *Supervisor) Status() ([]BotStatus, error)                { return s.inner.Status() }

// Lock exposes the invocation lock for callers that scope it themselves.
func (s *Supervisor) Lock() *lock.Lock { return s.inner.Lock() }

// LoadConfig parses and validates a TOML config file.
func LoadConfig(path string) (*Config, error) { return cfg.Load(path) }

// DefaultConfig returns the built-in two-bot configuration rooted at baseDir.
func DefaultConfig(baseDir string) *Config { return cfg.Default(baseDir) }

// NewSQLHistorySink opens a SQLite or Postgres history sink selected by DSN.
func NewSQLHistorySink(dsn string) (HistorySink, error) {
	return history.NewSQLSinkFromDSN(dsn)
}

// Error kinds, re-exported for errors.Is checks by embedders.
var (
	ErrLockBusy       = lock.ErrBusy
	ErrAlreadyRunning = supervisor.ErrAlreadyRunning
	ErrPrereqMissing  = supervisor.ErrPrereqMissing
	ErrLaunchFailed   = supervisor.ErrLaunchFailed
	ErrPartialFailure = supervisor.ErrPartialFailure
	ErrTotalFailure   = supervisor.ErrTotalFailure
)
