package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tallybi/tallybi/internal/bot"
	"github.com/tallybi/tallybi/internal/config"
)

var botCmd = &cobra.Command{
	Use:   "bot",
	Short: "Run the Telegram front-end",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if cfg.TelegramBotToken == "" {
			return fmt.Errorf("set TELEGRAM_BOT_TOKEN to run the bot")
		}
		allowed, err := cfg.AllowedUserIDs()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		asst, err := buildAssistant(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer asst.Close()

		b, err := bot.New(cfg.TelegramBotToken, asst.orch, allowed, logger.With("component", "bot"))
		if err != nil {
			return err
		}
		return b.Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(botCmd)
}
