package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	p := filepath.Join(dir, "botmgr.toml")
	if err := os.WriteFile(p, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return p
}

const validTOML = `
[supervisor]
lock_dir = "state/lock"
registry = "state/bots.pids"
settle = "500ms"
stop_timeout = "5s"

[log]
dir = "logs"

[[bots]]
name = "self-bot"
workdir = "self-bot"
command = ".venv/bin/python self_bot.py"
match = "self_bot.py"
venv = ".venv"

[[bots]]
name = "normal-bot"
workdir = "normal-bot"
command = ".venv/bin/python normal_bot.py"
match = "normal_bot.py"
venv = ".venv"
`

func TestLoadValid(t *testing.T) {
	p := writeConfig(t, validTOML)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	base := filepath.Dir(p)
	if c.Supervisor.LockDir != filepath.Join(base, "state/lock") {
		t.Fatalf("lock_dir not resolved: %s", c.Supervisor.LockDir)
	}
	if c.Supervisor.Settle != 500*time.Millisecond {
		t.Fatalf("settle = %v", c.Supervisor.Settle)
	}
	if c.Supervisor.StopTimeout != 5*time.Second {
		t.Fatalf("stop_timeout = %v", c.Supervisor.StopTimeout)
	}
	// Unset knobs take defaults.
	if c.Supervisor.LockWait != 30*time.Second || c.Supervisor.RestartPause != 3*time.Second {
		t.Fatalf("defaults not applied: %+v", c.Supervisor)
	}
	if len(c.Bots) != 2 || c.Bots[0].Name != "self-bot" || c.Bots[1].Name != "normal-bot" {
		t.Fatalf("bots = %+v", c.Bots)
	}
	if c.Bots[0].WorkDir != filepath.Join(base, "self-bot") {
		t.Fatalf("workdir not resolved: %s", c.Bots[0].WorkDir)
	}
	if c.Log.Dir != filepath.Join(base, "logs") {
		t.Fatalf("log dir not resolved: %s", c.Log.Dir)
	}
}

func TestLoadRejectsWrongBotCount(t *testing.T) {
	p := writeConfig(t, `
[[bots]]
name = "only-one"
command = "sleep 1"
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for single bot")
	}
}

func TestLoadRejectsDuplicateNames(t *testing.T) {
	p := writeConfig(t, `
[[bots]]
name = "dup"
command = "sleep 1"

[[bots]]
name = "dup"
command = "sleep 2"
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for duplicate names")
	}
}

func TestLoadRejectsMissingCommand(t *testing.T) {
	p := writeConfig(t, `
[[bots]]
name = "a"
command = "sleep 1"

[[bots]]
name = "b"
`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected error for missing command")
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.toml")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestDefaultConfig(t *testing.T) {
	c := Default("/srv/bots")
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Bots[0].Name != "self-bot" || c.Bots[1].Name != "normal-bot" {
		t.Fatalf("bots = %+v", c.Bots)
	}
	if c.Bots[0].WorkDir != "/srv/bots/self-bot" {
		t.Fatalf("workdir = %s", c.Bots[0].WorkDir)
	}
	if c.Supervisor.LockDir != "/srv/bots/.botmgr.lock" {
		t.Fatalf("lock dir = %s", c.Supervisor.LockDir)
	}
	if c.Log.Dir != "/srv/bots/logs" {
		t.Fatalf("log dir = %s", c.Log.Dir)
	}
}

func TestAbsolutePathsKept(t *testing.T) {
	p := writeConfig(t, `
[supervisor]
lock_dir = "/var/run/botmgr.lock"

[[bots]]
name = "a"
command = "sleep 1"
workdir = "/opt/a"

[[bots]]
name = "b"
command = "sleep 2"
`)
	c, err := Load(p)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Supervisor.LockDir != "/var/run/botmgr.lock" {
		t.Fatalf("abs lock dir rewritten: %s", c.Supervisor.LockDir)
	}
	if c.Bots[0].WorkDir != "/opt/a" {
		t.Fatalf("abs workdir rewritten: %s", c.Bots[0].WorkDir)
	}
}
