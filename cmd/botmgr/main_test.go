package main

import (
	"errors"
	"fmt"
	"testing"

	"github.com/ottersky/botmgr/internal/lock"
	"github.com/ottersky/botmgr/internal/supervisor"
)

func TestBuildRootWiring(t *testing.T) {
	root := buildRoot()
	want := map[string]bool{
		"start": false, "stop": false, "restart": false,
		"status": false, "logs": false,
	}
	for _, c := range root.Commands() {
		if _, ok := want[c.Name()]; ok {
			want[c.Name()] = true
		}
	}
	for name, found := range want {
		if !found {
			t.Fatalf("subcommand %q not registered", name)
		}
	}
	if root.PersistentFlags().Lookup("config") == nil {
		t.Fatalf("persistent --config flag missing")
	}
	if root.PersistentFlags().Lookup("verbose") == nil {
		t.Fatalf("persistent --verbose flag missing")
	}
}

func TestLifecycleCommandsHaveRandomFlag(t *testing.T) {
	root := buildRoot()
	for _, name := range []string{"start", "stop", "restart"} {
		cmd, _, err := root.Find([]string{name})
		if err != nil {
			t.Fatalf("find %s: %v", name, err)
		}
		if cmd.Flags().Lookup("random") == nil {
			t.Fatalf("%s missing --random flag", name)
		}
	}
}

func TestLogsCommandDefaults(t *testing.T) {
	root := buildRoot()
	cmd, _, err := root.Find([]string{"logs"})
	if err != nil {
		t.Fatalf("find logs: %v", err)
	}
	f := cmd.Flags().Lookup("lines")
	if f == nil {
		t.Fatalf("logs missing --lines flag")
	}
	if f.DefValue != "50" {
		t.Fatalf("lines default = %s, want 50", f.DefValue)
	}
}

func TestReportStartExitStates(t *testing.T) {
	cases := []struct {
		name    string
		err     error
		wantNil bool
	}{
		{"success", nil, true},
		{"already running", supervisor.ErrAlreadyRunning, true},
		{"partial", fmt.Errorf("%w: 1 of 2", supervisor.ErrPartialFailure), true},
		{"lock busy", fmt.Errorf("%w: held by pid 1", lock.ErrBusy), false},
		{"total failure", supervisor.ErrTotalFailure, false},
		{"other", errors.New("boom"), false},
	}
	for _, tc := range cases {
		got := reportStart(tc.err)
		if (got == nil) != tc.wantNil {
			t.Fatalf("%s: reportStart(%v) = %v, wantNil=%v", tc.name, tc.err, got, tc.wantNil)
		}
	}
}

func TestReportStopExitStates(t *testing.T) {
	if err := reportStop(nil); err != nil {
		t.Fatalf("nil: %v", err)
	}
	if err := reportStop(fmt.Errorf("%w: 1 of 2", supervisor.ErrPartialFailure)); err != nil {
		t.Fatalf("partial should be handled: %v", err)
	}
	if err := reportStop(errors.New("boom")); err == nil {
		t.Fatalf("unexpected error must propagate")
	}
}
