package supervisor

import "errors"

// Error kinds surfaced by supervisor operations. Per-bot failures are
// isolated; only lock contention and total launch failure abort an invocation.
var (
	// ErrAlreadyRunning is returned by Start when the registry tracks at
	// least one live process.
	ErrAlreadyRunning = errors.New("bots already running")
	// ErrPrereqMissing marks a single bot whose runtime environment is absent.
	ErrPrereqMissing = errors.New("runtime environment missing")
	// ErrLaunchFailed marks a single bot that exited before the settle check.
	ErrLaunchFailed = errors.New("bot exited during startup")
	// ErrPartialFailure is returned by Start/Stop when some but not all bots
	// succeeded. Callers treat it as a handled state, not a fatal one.
	ErrPartialFailure = errors.New("some bots failed")
	// ErrTotalFailure is returned by Start when no bot could be launched.
	ErrTotalFailure = errors.New("no bots launched")
)
