// Package bot is the Telegram front-end. It is deliberately thin: receive
// text, hand it to the orchestrator, send the answer back. All the
// interesting behavior lives behind the orchestrator.
package bot

import (
	"context"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/orchestrator"
)

// replyChunk is Telegram's practical message size; longer answers are sent
// in pieces.
const replyChunk = 4000

// Bot runs the Telegram polling loop.
type Bot struct {
	api     *tgbotapi.BotAPI
	orch    *orchestrator.Orchestrator
	allowed map[int64]struct{} // empty = open to everyone
	logger  log.Logger
}

// New creates a Bot. allowedUsers is the numeric allow-list; empty means
// no restriction.
func New(token string, orch *orchestrator.Orchestrator, allowedUsers []int64, logger log.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("telegram connect: %w", err)
	}

	allowed := make(map[int64]struct{}, len(allowedUsers))
	for _, id := range allowedUsers {
		allowed[id] = struct{}{}
	}

	return &Bot{api: api, orch: orch, allowed: allowed, logger: logger}, nil
}

// Run polls for updates until ctx is canceled.
func (b *Bot) Run(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(0)
	cfg.Timeout = 30
	updates := b.api.GetUpdatesChan(cfg)

	b.logger.Info("telegram bot running", "username", b.api.Self.UserName)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if update.Message == nil || update.Message.From == nil {
				continue
			}
			b.handle(ctx, update.Message)
		}
	}
}

func (b *Bot) authorized(userID int64) bool {
	if len(b.allowed) == 0 {
		return true
	}
	_, ok := b.allowed[userID]
	return ok
}

func (b *Bot) handle(ctx context.Context, msg *tgbotapi.Message) {
	userID := msg.From.ID
	if !b.authorized(userID) {
		b.send(msg.Chat.ID, fmt.Sprintf("⛔ Unauthorized. Your ID: %d", userID))
		return
	}

	switch msg.Command() {
	case "start":
		b.send(msg.Chat.ID, b.greeting())
		return
	case "clear":
		b.orch.Clear(fmt.Sprint(userID))
		b.send(msg.Chat.ID, "🧹 Conversation cleared! Ask me something fresh.")
		return
	}

	query := msg.Text
	if query == "" {
		return
	}

	// Show "typing" while the loop runs; best-effort.
	if _, err := b.api.Request(tgbotapi.NewChatAction(msg.Chat.ID, tgbotapi.ChatTyping)); err != nil {
		b.logger.Debug("chat action failed", "error", err)
	}

	answer := b.orch.Handle(ctx, fmt.Sprint(userID), query)
	b.send(msg.Chat.ID, answer)
}

func (b *Bot) greeting() string {
	return fmt.Sprintf(`🤖 Tally BI Bot
🔧 %d tools connected to Tally

Ask me anything:
• What's the trial balance?
• Who owes us money?
• Show me P&L
• Transactions on 1st July

/clear to reset conversation`, b.orch.ToolCount())
}

// send delivers text in replyChunk-rune pieces.
func (b *Bot) send(chatID int64, text string) {
	runes := []rune(text)
	for start := 0; start < len(runes); start += replyChunk {
		end := min(start+replyChunk, len(runes))
		if _, err := b.api.Send(tgbotapi.NewMessage(chatID, string(runes[start:end]))); err != nil {
			b.logger.Error("telegram send failed", "chat", chatID, "error", err)
			return
		}
	}
}
