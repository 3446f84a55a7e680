package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func main() {
	root := buildRoot()
	if err := root.Execute(); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildRoot creates the root command and wires all subcommands.
func buildRoot() *cobra.Command {
	globalFlags := &GlobalFlags{}
	opFlags := &OpFlags{}
	logsFlags := &LogsFlags{}

	botmgrCommand := command{global: globalFlags}

	root := createRootCommand(globalFlags)
	root.AddCommand(
		createStartCommand(botmgrCommand, opFlags),
		createStopCommand(botmgrCommand, opFlags),
		createRestartCommand(botmgrCommand, opFlags),
		createStatusCommand(botmgrCommand),
		createLogsCommand(botmgrCommand, logsFlags),
	)
	return root
}

// createRootCommand creates the root command with minimal persistent flags
func createRootCommand(flags *GlobalFlags) *cobra.Command {
	root := &cobra.Command{
		Use:   "botmgr",
		Short: "Supervisor for the two bot processes",
		Long: `Botmgr starts, stops, restarts and reports the status of the two
supervised bots. Concurrent invocations are serialized through a filesystem
lock; tracked PIDs live in a flat registry file.

Examples:
  botmgr start
  botmgr status
  botmgr restart --random      # desynchronized restart for cron fleets
  botmgr logs self --lines=100`,
		SilenceUsage: true,
	}

	root.PersistentFlags().StringVar(&flags.ConfigPath, "config", "", "path to TOML config file (optional)")
	root.PersistentFlags().BoolVarP(&flags.Verbose, "verbose", "v", false, "debug logging")

	return root
}

// createStartCommand creates the start subcommand
func createStartCommand(botmgrCommand command, opFlags *OpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start all bots that are not already running",
		RunE: func(cmd *cobra.Command, args []string) error {
			return botmgrCommand.Start(OpFlags{Random: opFlags.Random})
		},
	}
	cmd.Flags().BoolVar(&opFlags.Random, "random", false, "sleep a random interval before acting")
	return cmd
}

// createStopCommand creates the stop subcommand
func createStopCommand(botmgrCommand command, opFlags *OpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stop",
		Short: "Stop all tracked bots, gracefully then forcefully",
		RunE: func(cmd *cobra.Command, args []string) error {
			return botmgrCommand.Stop(OpFlags{Random: opFlags.Random})
		},
	}
	cmd.Flags().BoolVar(&opFlags.Random, "random", false, "sleep a random interval before acting")
	return cmd
}

// createRestartCommand creates the restart subcommand
func createRestartCommand(botmgrCommand command, opFlags *OpFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "restart",
		Short: "Stop all bots, pause, then start them again",
		RunE: func(cmd *cobra.Command, args []string) error {
			return botmgrCommand.Restart(OpFlags{Random: opFlags.Random})
		},
	}
	cmd.Flags().BoolVar(&opFlags.Random, "random", false, "sleep a random interval before acting")
	return cmd
}

// createStatusCommand creates the status subcommand
func createStatusCommand(botmgrCommand command) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Report per-bot status and the running count",
		RunE: func(cmd *cobra.Command, args []string) error {
			return botmgrCommand.Status()
		},
	}
}

// createLogsCommand creates the logs subcommand
func createLogsCommand(botmgrCommand command, logsFlags *LogsFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:       "logs [self|normal|manager|all]",
		Short:     "Show the tail of bot and manager logs",
		Args:      cobra.MaximumNArgs(1),
		ValidArgs: []string{"self", "normal", "manager", "all"},
		RunE: func(cmd *cobra.Command, args []string) error {
			target := "all"
			if len(args) > 0 {
				target = args[0]
			}
			return botmgrCommand.Logs(target, LogsFlags{Lines: logsFlags.Lines})
		},
	}
	cmd.Flags().IntVarP(&logsFlags.Lines, "lines", "n", 50, "number of lines to show per log")
	return cmd
}
