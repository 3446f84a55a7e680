package registry

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSaveLoadRoundTrip(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "bots.pids"))
	in := []Entry{{Pending: true}, {PID: 4242}}
	if err := r.Save(in); err != nil {
		t.Fatalf("save: %v", err)
	}
	out, err := r.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("entries = %d, want 2", len(out))
	}
	if !out[0].Pending || out[1].Pending || out[1].PID != 4242 {
		t.Fatalf("unexpected entries: %+v", out)
	}
}

func TestLoadMissingFile(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "none.pids"))
	entries, err := r.Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if entries != nil {
		t.Fatalf("expected nil for missing file, got %+v", entries)
	}
	if r.Exists() {
		t.Fatalf("Exists should be false")
	}
}

func TestLoadRejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.pids")
	if err := os.WriteFile(path, []byte("1234\nnot-a-pid\n"), 0o600); err != nil {
		t.Fatalf("write: %v", err)
	}
	if _, err := New(path).Load(); err == nil {
		t.Fatalf("expected error for malformed entry")
	}
}

func TestWireFormat(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bots.pids")
	r := New(path)
	if err := r.Save([]Entry{{PID: 100}, {Pending: true}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if string(b) != "100\nPENDING\n" {
		t.Fatalf("wire format = %q", b)
	}
}

func TestSaveLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	r := New(filepath.Join(dir, "bots.pids"))
	for i := 0; i < 5; i++ {
		if err := r.Save([]Entry{{PID: 1000 + i}, {PID: 2000 + i}}); err != nil {
			t.Fatalf("save %d: %v", i, err)
		}
	}
	des, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("readdir: %v", err)
	}
	for _, de := range des {
		if strings.Contains(de.Name(), ".tmp-") {
			t.Fatalf("leftover temp file %s", de.Name())
		}
	}
}

func TestClearIdempotent(t *testing.T) {
	r := New(filepath.Join(t.TempDir(), "bots.pids"))
	if err := r.Save([]Entry{{PID: 1}}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := r.Clear(); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if err := r.Clear(); err != nil {
		t.Fatalf("second clear: %v", err)
	}
	if r.Exists() {
		t.Fatalf("registry should be gone")
	}
}
