package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tallybi/tallybi/internal/config"
	"github.com/tallybi/tallybi/internal/knowledge"
	"github.com/tallybi/tallybi/internal/snapshot"
	"github.com/tallybi/tallybi/internal/tally"
)

var rulesCategory string

var rulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "Manage the business knowledge base",
}

var rulesIndexCmd = &cobra.Command{
	Use:   "index <file>",
	Short: "Load business rules from a text file (one rule per paragraph)",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		raw, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("read rules file: %w", err)
		}

		var rules []knowledge.Rule
		for _, paragraph := range strings.Split(string(raw), "\n\n") {
			paragraph = strings.TrimSpace(paragraph)
			if paragraph == "" {
				continue
			}
			rules = append(rules, knowledge.Rule{Category: rulesCategory, Content: paragraph})
		}

		store, err := knowledge.Open(cfg.KnowledgeDB, logger.With("component", "knowledge"))
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.ReplaceRules(cmd.Context(), rules); err != nil {
			return err
		}
		fmt.Printf("Indexed %d rules into %s\n", len(rules), cfg.KnowledgeDB)
		return nil
	},
}

var rulesSyncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Sync ledger names from Tally into the knowledge base",
	RunE: func(cmd *cobra.Command, _ []string) error {
		logger := newLogger()
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		ctx := cmd.Context()
		client := tally.NewClient(cfg.TallyURL, cfg.Company, logger.With("component", "tally"))
		raw := client.Collection(ctx, "Ledger")
		if tally.IsError(raw) {
			return fmt.Errorf("tally is unreachable; sync needs a live connection")
		}
		ledgers, err := tally.ParseLedgers(raw)
		if err != nil {
			return err
		}

		store, err := knowledge.Open(cfg.KnowledgeDB, logger.With("component", "knowledge"))
		if err != nil {
			return err
		}
		defer store.Close()

		count, err := store.SyncLedgers(ctx, ledgers)
		if err != nil {
			return err
		}
		fmt.Printf("Synced %d ledgers into %s\n", count, cfg.KnowledgeDB)

		// Keep the snapshot cache warm too; the fetch already succeeded.
		if snapStore, storeErr := snapshot.New(cfg.SnapshotDir, logger.With("component", "snapshot")); storeErr == nil {
			if saveErr := snapStore.Save("ledgers", tally.FormatLedgers(ledgers)); saveErr != nil {
				logger.Warn("warming ledger snapshot failed", "error", saveErr)
			}
		}
		return nil
	},
}

func init() {
	rulesIndexCmd.Flags().StringVar(&rulesCategory, "category", "general", "category label for the indexed rules")
	rulesCmd.AddCommand(rulesIndexCmd)
	rulesCmd.AddCommand(rulesSyncCmd)
	rootCmd.AddCommand(rulesCmd)
}
