package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/ottersky/botmgr/internal/config"
	"github.com/ottersky/botmgr/internal/history"
	"github.com/ottersky/botmgr/internal/lock"
	"github.com/ottersky/botmgr/internal/logger"
	"github.com/ottersky/botmgr/internal/registry"
	"github.com/ottersky/botmgr/internal/supervisor"
)

// command carries shared state for all subcommands.
type command struct {
	global *GlobalFlags
}

// loadConfig reads the configured TOML file, or falls back to the built-in
// two-bot layout rooted at the current directory.
func (c command) loadConfig() (*config.Config, error) {
	if c.global.ConfigPath != "" {
		return config.Load(c.global.ConfigPath)
	}
	wd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	return config.Default(wd), nil
}

// setup builds the supervisor with logging and the optional history sink.
// The returned closer must run before exit.
func (c command) setup() (*supervisor.Supervisor, func(), error) {
	cfg, err := c.loadConfig()
	if err != nil {
		return nil, nil, err
	}

	var managerLog io.WriteCloser
	if w := cfg.Log.ManagerWriter(); w != nil {
		managerLog = w
		logger.Setup(c.global.Verbose, w)
	} else {
		logger.Setup(c.global.Verbose, nil)
	}

	var sink history.Sink
	if cfg.History.DSN != "" {
		s, err := history.NewSQLSinkFromDSN(cfg.History.DSN)
		if err != nil {
			slog.Warn("history sink unavailable", "err", err)
		} else {
			sink = s
		}
	}

	sup := supervisor.New(cfg, sink)
	closer := func() {
		if sink != nil {
			_ = sink.Close()
		}
		if managerLog != nil {
			_ = managerLog.Close()
		}
	}
	return sup, closer, nil
}

// withLock scopes fn inside the invocation lock and guarantees release on
// normal return, error, and termination signals.
func withLock(sup *supervisor.Supervisor, fn func() error) error {
	lk := sup.Lock()
	if err := lk.Acquire(); err != nil {
		return err
	}
	defer lk.Release()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case sig := <-sigCh:
			slog.Warn("interrupted, releasing lock", "signal", sig)
			lk.Release()
			os.Exit(1)
		case <-done:
		}
	}()

	return fn()
}

// Start implements `botmgr start`.
func (c command) Start(flags OpFlags) error {
	sup, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer()
	return withLock(sup, func() error {
		results, err := sup.Start(flags.Random)
		printStartResults(results)
		return reportStart(err)
	})
}

// Stop implements `botmgr stop`.
func (c command) Stop(flags OpFlags) error {
	sup, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer()
	return withLock(sup, func() error {
		results, err := sup.Stop(flags.Random)
		printStopResults(results)
		return reportStop(err)
	})
}

// Restart implements `botmgr restart`.
func (c command) Restart(flags OpFlags) error {
	sup, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer()
	return withLock(sup, func() error {
		results, err := sup.Restart(flags.Random)
		printStartResults(results)
		return reportStart(err)
	})
}

// Status implements `botmgr status`.
func (c command) Status() error {
	sup, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer()
	return withLock(sup, func() error {
		statuses, err := sup.Status()
		if err != nil {
			return err
		}
		if statuses == nil {
			fmt.Println("nothing running")
			return nil
		}
		running := 0
		for _, st := range statuses {
			switch st.State {
			case registry.StateRunning:
				fmt.Printf("%s: running (pid %d)\n", st.Name, st.PID)
				running++
			case registry.StatePending:
				fmt.Printf("%s: pending\n", st.Name)
			default:
				fmt.Printf("%s: not running\n", st.Name)
			}
		}
		fmt.Printf("%d of %d bots running\n", running, len(statuses))
		return nil
	})
}

// Logs implements `botmgr logs [target]`. It reads log files only and does
// not take the invocation lock.
func (c command) Logs(target string, flags LogsFlags) error {
	sup, closer, err := c.setup()
	if err != nil {
		return err
	}
	defer closer()

	logCfg := sup.LogConfig()
	type source struct{ name, path string }
	var sources []source
	addBot := func(b supervisor.Bot) {
		if p := logCfg.StdoutFile(b.Name); p != "" {
			sources = append(sources, source{b.Name, p})
		}
	}
	switch target {
	case "all":
		for _, b := range sup.Bots() {
			addBot(b)
		}
		if p := logCfg.ManagerFile(); p != "" {
			sources = append(sources, source{"manager", p})
		}
	case "manager":
		if p := logCfg.ManagerFile(); p != "" {
			sources = append(sources, source{"manager", p})
		}
	default:
		for _, b := range sup.Bots() {
			if b.Name == target || strings.HasPrefix(b.Name, target+"-") {
				addBot(b)
			}
		}
		if len(sources) == 0 {
			return fmt.Errorf("unknown logs target %q (want self, normal, manager or all)", target)
		}
	}
	if len(sources) == 0 {
		return errors.New("no log directory configured")
	}

	for _, src := range sources {
		fmt.Printf("==== %s ====\n", src.name)
		lines, err := logger.Tail(src.path, flags.Lines)
		if err != nil {
			if os.IsNotExist(err) {
				fmt.Println("(no log file)")
				continue
			}
			return err
		}
		for _, l := range lines {
			fmt.Println(l)
		}
	}
	return nil
}

func printStartResults(results []supervisor.BotResult) {
	for _, r := range results {
		if r.Err != nil {
			fmt.Printf("failed to start %s: %v\n", r.Bot, r.Err)
		} else {
			fmt.Printf("started %s (pid %d)\n", r.Bot, r.PID)
		}
	}
}

func printStopResults(results []supervisor.BotResult) {
	for _, r := range results {
		switch {
		case r.Err != nil:
			fmt.Printf("failed to stop %s: %v\n", r.Bot, r.Err)
		case r.PID > 0:
			fmt.Printf("stopped %s (pid %d)\n", r.Bot, r.PID)
		default:
			fmt.Printf("%s was not running\n", r.Bot)
		}
	}
}

// reportStart maps start aggregates to exit behavior: already-running and
// partial success are handled states; lock-busy and total failure are fatal.
func reportStart(err error) error {
	switch {
	case err == nil:
		fmt.Println("all bots started")
		return nil
	case errors.Is(err, supervisor.ErrAlreadyRunning):
		fmt.Println("bots already running")
		return nil
	case errors.Is(err, supervisor.ErrPartialFailure):
		fmt.Printf("warning: %v\n", err)
		return nil
	case errors.Is(err, lock.ErrBusy):
		return err
	default:
		return err
	}
}

func reportStop(err error) error {
	switch {
	case err == nil:
		fmt.Println("stop complete")
		return nil
	case errors.Is(err, supervisor.ErrPartialFailure):
		fmt.Printf("warning: %v\n", err)
		return nil
	default:
		return err
	}
}
