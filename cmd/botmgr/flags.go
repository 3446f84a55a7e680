package main

// Flag structs to decouple cobra from logic for testing.

// GlobalFlags holds persistent flags shared by all commands.
type GlobalFlags struct {
	ConfigPath string // path to TOML config; empty means built-in defaults
	Verbose    bool
}

// OpFlags holds flags for the lifecycle commands (start/stop/restart).
type OpFlags struct {
	Random bool // random pre-delay to desynchronize fleet-wide schedules
}

// LogsFlags holds flags for the logs command.
type LogsFlags struct {
	Lines int
}
