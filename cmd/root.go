// Package cmd wires the application commands.
package cmd

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/tallybi/tallybi/internal/log"
)

var debugFlag bool

var rootCmd = &cobra.Command{
	Use:   "tallybi",
	Short: "Tally BI assistant for natural-language questions against live Tally data",
	Long: `tallybi answers natural-language business questions by letting a language
model query a running Tally Prime instance through discoverable tools.

Running tallybi with no arguments starts an interactive chat session.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runChat(cmd, args)
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// ExecuteContext runs the root command, cancelling on ctx.
func ExecuteContext(ctx context.Context) error {
	return rootCmd.ExecuteContext(ctx)
}

func init() {
	rootCmd.PersistentFlags().BoolVar(&debugFlag, "debug", false, "enable debug logging")
}

func newLogger() log.Logger {
	level := slog.LevelInfo
	if debugFlag {
		level = slog.LevelDebug
	}
	return log.New(log.Config{Level: level})
}
