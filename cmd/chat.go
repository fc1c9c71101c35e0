package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/tallybi/tallybi/internal/config"
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Interactive chat session against the Tally tools",
	RunE:  runChat,
}

func init() {
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, _ []string) error {
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

	fmt.Printf("🔧 %d tools connected to Tally. Type a question, /clear to reset, exit to quit.\n", asst.orch.ToolCount())

	const userID = "local"
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("you> ")
		if !scanner.Scan() {
			break
		}
		query := strings.TrimSpace(scanner.Text())
		switch {
		case query == "":
			continue
		case query == "exit" || query == "quit":
			return nil
		case query == "/clear":
			asst.orch.Clear(userID)
			fmt.Println("🧹 Conversation cleared.")
			continue
		}

		fmt.Println(asst.orch.Handle(ctx, userID, query))
	}
	return scanner.Err()
}
