package registry

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Placeholder marks a slot whose bot launch has been reserved but not yet
// confirmed. It is written for every slot before any launch begins so that a
// concurrent start sees non-empty state and refuses to proceed.
const Placeholder = "PENDING"

// State classifies one registry slot.
type State int

const (
	StateAbsent State = iota
	StatePending
	StateRunning
	StateStopped // a PID is recorded but the process is gone
)

func (s State) String() string {
	switch s {
	case StatePending:
		return "pending"
	case StateRunning:
		return "running"
	case StateStopped:
		return "not running"
	default:
		return "absent"
	}
}

// Entry is one ordered slot: either a pending reservation or a recorded PID.
// Slot order is significant; position i corresponds to bot i in configuration.
type Entry struct {
	Pending bool
	PID     int
}

func (e Entry) line() string {
	if e.Pending {
		return Placeholder
	}
	return strconv.Itoa(e.PID)
}

// Registry persists the ordered slot list as a newline-delimited file, one
// line per bot, each line either the placeholder token or a decimal PID.
type Registry struct {
	Path string
}

func New(path string) *Registry { return &Registry{Path: path} }

// Exists reports whether a registry file is present.
func (r *Registry) Exists() bool {
	_, err := os.Stat(r.Path)
	return err == nil
}

// ModTime returns the registry file's modification time, the upper bound on
// when any tracked PID was recorded. Zero time when the file is absent.
func (r *Registry) ModTime() time.Time {
	fi, err := os.Stat(r.Path)
	if err != nil {
		return time.Time{}
	}
	return fi.ModTime()
}

// Load reads the slot list. A missing file yields (nil, nil). Malformed lines
// make the whole file invalid: the caller treats that as stale state to clear.
func (r *Registry) Load() ([]Entry, error) {
	b, err := os.ReadFile(r.Path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}
	var entries []Entry
	for _, line := range strings.Split(strings.TrimSpace(string(b)), "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if line == Placeholder {
			entries = append(entries, Entry{Pending: true})
			continue
		}
		pid, err := strconv.Atoi(line)
		if err != nil {
			return nil, fmt.Errorf("invalid registry entry %q in %s", line, r.Path)
		}
		entries = append(entries, Entry{PID: pid})
	}
	return entries, nil
}

// Save writes the full slot list atomically: temp file in the same directory,
// fsync, rename. Readers always observe either the old or the new content.
func (r *Registry) Save(entries []Entry) error {
	if err := os.MkdirAll(filepath.Dir(r.Path), 0o750); err != nil {
		return err
	}
	var sb strings.Builder
	for _, e := range entries {
		sb.WriteString(e.line())
		sb.WriteByte('\n')
	}
	tmp, err := os.CreateTemp(filepath.Dir(r.Path), filepath.Base(r.Path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.WriteString(sb.String()); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, r.Path); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	return nil
}

// Clear removes the registry file. Idempotent.
func (r *Registry) Clear() error {
	err := os.Remove(r.Path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
