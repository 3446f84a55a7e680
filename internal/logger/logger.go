package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	lj "gopkg.in/natefinch/lumberjack.v2"
)

// Default logging configuration constants
const (
	DefaultMaxSizeMB  = 10 // MB
	DefaultMaxBackups = 3  // number of backup files
	DefaultMaxAgeDays = 7  // days
)

// Config describes logging destinations for a supervised bot.
// If StdoutPath/StderrPath are empty, and Dir is set, files will be
// Dir/<name>.stdout.log and Dir/<name>.stderr.log
// Rotation parameters follow lumberjack semantics.
type Config struct {
	Dir        string `toml:"dir" mapstructure:"dir"`                   // base directory for logs
	StdoutPath string `toml:"stdout" mapstructure:"stdout"`             // explicit stdout path overrides Dir
	StderrPath string `toml:"stderr" mapstructure:"stderr"`             // explicit stderr path overrides Dir
	MaxSizeMB  int    `toml:"max_size_mb" mapstructure:"max_size_mb"`   // megabytes before rotation (default 10)
	MaxBackups int    `toml:"max_backups" mapstructure:"max_backups"`   // number of backups to keep (default 3)
	MaxAgeDays int    `toml:"max_age_days" mapstructure:"max_age_days"` // days to keep (default 7)
	Compress   bool   `toml:"compress" mapstructure:"compress"`         // Gzip rotated files
}

// OpenFiles returns append-mode *os.File handles for a bot's stdout and
// stderr. Real descriptors are handed to the child so output keeps flowing
// after the supervisor exits; rotation of these files is left to the OS or
// external tooling. Either file may be nil when no destination is configured.
func (c Config) OpenFiles(name string) (*os.File, *os.File, error) {
	stdout := c.StdoutFile(name)
	stderr := c.StderrFile(name)
	if c.Dir != "" {
		if err := os.MkdirAll(c.Dir, 0o750); err != nil {
			return nil, nil, err
		}
	}
	var outF, errF *os.File
	var err error
	if stdout != "" {
		outF, err = os.OpenFile(stdout, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			return nil, nil, err
		}
	}
	if stderr != "" {
		errF, err = os.OpenFile(stderr, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
		if err != nil {
			if outF != nil {
				_ = outF.Close()
			}
			return nil, nil, err
		}
	}
	return outF, errF, nil
}

// StdoutFile returns the effective stdout path for a bot, used by log tailing.
func (c Config) StdoutFile(name string) string {
	if c.StdoutPath != "" {
		return c.StdoutPath
	}
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s.stdout.log", name))
}

// StderrFile returns the effective stderr path for a bot.
func (c Config) StderrFile(name string) string {
	if c.StderrPath != "" {
		return c.StderrPath
	}
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, fmt.Sprintf("%s.stderr.log", name))
}

// ManagerFile returns the path of the supervisor's own log within Dir.
func (c Config) ManagerFile() string {
	if c.Dir == "" {
		return ""
	}
	return filepath.Join(c.Dir, "manager.log")
}

// ManagerWriter returns a rotating writer for the supervisor's own log,
// or nil when no log directory is configured.
func (c Config) ManagerWriter() io.WriteCloser {
	p := c.ManagerFile()
	if p == "" {
		return nil
	}
	return c.rotating(p)
}

func (c Config) rotating(path string) io.WriteCloser {
	return &lj.Logger{
		Filename:   path,
		MaxSize:    valOr(c.MaxSizeMB, DefaultMaxSizeMB),
		MaxBackups: valOr(c.MaxBackups, DefaultMaxBackups),
		MaxAge:     valOr(c.MaxAgeDays, DefaultMaxAgeDays),
		Compress:   c.Compress,
	}
}

func valOr(v int, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
