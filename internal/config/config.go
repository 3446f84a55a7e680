package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/ottersky/botmgr/internal/logger"
)

// BotCount is the number of supervised bots. The registry layout is
// positional, so the count is fixed rather than open-ended.
const BotCount = 2

// BotConfig describes one supervised bot.
type BotConfig struct {
	Name    string `toml:"name" mapstructure:"name"`
	WorkDir string `toml:"workdir" mapstructure:"workdir"`
	Command string `toml:"command" mapstructure:"command"`
	// Match is the launch-command substring used for degraded-mode discovery
	// when no registry exists.
	Match string `toml:"match" mapstructure:"match"`
	// Venv is the bot's isolated runtime environment, relative to WorkDir.
	// Launch is refused for that bot when <venv>/bin/python is missing.
	Venv string `toml:"venv" mapstructure:"venv"`
}

// SupervisorConfig carries paths and timing knobs for the supervisor core.
type SupervisorConfig struct {
	LockDir        string        `toml:"lock_dir" mapstructure:"lock_dir"`
	Registry       string        `toml:"registry" mapstructure:"registry"`
	Settle         time.Duration `toml:"settle" mapstructure:"settle"`                     // post-launch settle before liveness probe
	StopTimeout    time.Duration `toml:"stop_timeout" mapstructure:"stop_timeout"`         // graceful-shutdown ceiling before SIGKILL
	LockWait       time.Duration `toml:"lock_wait" mapstructure:"lock_wait"`               // total wait on a live lock holder
	LockInterval   time.Duration `toml:"lock_interval" mapstructure:"lock_interval"`       // lock polling interval
	RandomDelayMax time.Duration `toml:"random_delay_max" mapstructure:"random_delay_max"` // ceiling for --random pre-delay
	RestartPause   time.Duration `toml:"restart_pause" mapstructure:"restart_pause"`       // pause between stop and start phases
}

// HistoryConfig selects an optional operation-history sink by DSN.
type HistoryConfig struct {
	DSN string `toml:"dsn" mapstructure:"dsn"`
}

// Config is the top-level TOML structure.
type Config struct {
	Supervisor SupervisorConfig `toml:"supervisor" mapstructure:"supervisor"`
	Log        logger.Config    `toml:"log" mapstructure:"log"`
	History    HistoryConfig    `toml:"history" mapstructure:"history"`
	Bots       []BotConfig      `toml:"bots" mapstructure:"bots"`
}

// Default returns the built-in two-bot configuration rooted at baseDir.
func Default(baseDir string) *Config {
	c := &Config{
		Bots: []BotConfig{
			{
				Name:    "self-bot",
				WorkDir: filepath.Join(baseDir, "self-bot"),
				Command: ".venv/bin/python self_bot.py",
				Match:   "self_bot.py",
				Venv:    ".venv",
			},
			{
				Name:    "normal-bot",
				WorkDir: filepath.Join(baseDir, "normal-bot"),
				Command: ".venv/bin/python normal_bot.py",
				Match:   "normal_bot.py",
				Venv:    ".venv",
			},
		},
	}
	c.Log.Dir = filepath.Join(baseDir, "logs")
	applyDefaults(c, baseDir)
	return c
}

// Load parses a TOML config file and validates it. Relative paths are
// resolved against the config file's directory.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("toml")
	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}
	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return nil, err
	}
	base := filepath.Dir(path)
	applyDefaults(&c, base)
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return &c, nil
}

func applyDefaults(c *Config, base string) {
	s := &c.Supervisor
	if s.LockDir == "" {
		s.LockDir = filepath.Join(base, ".botmgr.lock")
	}
	if s.Registry == "" {
		s.Registry = filepath.Join(base, ".botmgr.pids")
	}
	if s.Settle <= 0 {
		s.Settle = 2 * time.Second
	}
	if s.StopTimeout <= 0 {
		s.StopTimeout = 10 * time.Second
	}
	if s.LockWait <= 0 {
		s.LockWait = 30 * time.Second
	}
	if s.LockInterval <= 0 {
		s.LockInterval = time.Second
	}
	if s.RandomDelayMax <= 0 {
		s.RandomDelayMax = 30 * time.Second
	}
	if s.RestartPause <= 0 {
		s.RestartPause = 3 * time.Second
	}
	s.LockDir = resolve(base, s.LockDir)
	s.Registry = resolve(base, s.Registry)
	if c.Log.Dir != "" {
		c.Log.Dir = resolve(base, c.Log.Dir)
	}
	for i := range c.Bots {
		if c.Bots[i].WorkDir != "" {
			c.Bots[i].WorkDir = resolve(base, c.Bots[i].WorkDir)
		}
	}
}

func resolve(base, p string) string {
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// Validate enforces the fixed two-bot shape and per-bot required fields.
func (c *Config) Validate() error {
	if len(c.Bots) != BotCount {
		return fmt.Errorf("config must define exactly %d bots, got %d", BotCount, len(c.Bots))
	}
	seen := make(map[string]bool, len(c.Bots))
	for i, b := range c.Bots {
		if b.Name == "" {
			return fmt.Errorf("bot %d requires name", i)
		}
		if b.Command == "" {
			return fmt.Errorf("bot %s requires command", b.Name)
		}
		if seen[b.Name] {
			return fmt.Errorf("duplicate bot name %s", b.Name)
		}
		seen[b.Name] = true
	}
	return nil
}
