package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tallybi/tallybi/internal/config"
)

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a single question and exit",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		asst, err := buildAssistant(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer asst.Close()

		fmt.Println(asst.orch.Handle(ctx, "cli", strings.Join(args, " ")))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(askCmd)
}
