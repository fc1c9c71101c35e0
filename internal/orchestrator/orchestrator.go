package orchestrator

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/tallybi/tallybi/internal/llm"
	"github.com/tallybi/tallybi/internal/log"
)

// Fixed user-visible outcomes. These are answers, not errors: the loop
// never lets a failure propagate as an unstructured fault.
const (
	overloadedMessage = "⚠️ The AI brain is currently overloaded. Please try again in a minute."
	budgetMessage     = "Could not complete analysis. Please try a simpler question."
)

// CompletionClient is the orchestrator's view of the language model.
type CompletionClient interface {
	Complete(ctx context.Context, messages []llm.Message) (string, error)
}

// ContextRetriever supplies optional business context for a query. A nil
// retriever, an error, or an empty result all simply mean "no context".
type ContextRetriever interface {
	Relevant(ctx context.Context, query string, n int) (string, error)
}

// Config configures an Orchestrator.
type Config struct {
	MaxRounds    int // hard ceiling on model↔tool exchanges per query
	HistoryLimit int // retained (role, content) turns per user
}

// Orchestrator owns per-user conversation state and runs the tool-calling
// loop for each incoming query.
type Orchestrator struct {
	tools     ToolCaller
	model     CompletionClient
	retriever ContextRetriever
	logger    log.Logger
	cfg       Config
	history   *histories
	now       func() time.Time
}

// New creates an Orchestrator. retriever may be nil.
func New(tools ToolCaller, model CompletionClient, retriever ContextRetriever, cfg Config, logger log.Logger) *Orchestrator {
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = 5
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = 20
	}
	return &Orchestrator{
		tools:     tools,
		model:     model,
		retriever: retriever,
		logger:    logger,
		cfg:       cfg,
		history:   newHistories(),
		now:       time.Now,
	}
}

// ToolCount reports the size of the discovered catalog (used by front-end
// greetings).
func (o *Orchestrator) ToolCount() int {
	return len(o.tools.Tools())
}

// Clear drops a user's conversation history.
func (o *Orchestrator) Clear(userID string) {
	o.history.clear(userID)
}

// Handle answers one user query. It always returns presentable text; every
// failure mode maps to a fixed message or to error text the model already
// reacted to. Queries for the same user are serialized; distinct users run
// independently.
func (o *Orchestrator) Handle(ctx context.Context, userID, query string) string {
	state := o.history.get(userID)
	state.mu.Lock()
	defer state.mu.Unlock()

	messages := make([]llm.Message, 0, len(state.turns)+2)
	messages = append(messages, llm.Message{Role: "system", Content: o.systemPrompt(ctx, query)})
	messages = append(messages, state.turns...)
	messages = append(messages, llm.Message{Role: "user", Content: query})

	for round := 1; round <= o.cfg.MaxRounds; round++ {
		reply, err := o.model.Complete(ctx, messages)
		if err != nil {
			o.logger.Error("model call failed after retries", "user", userID, "round", round, "error", err)
			return overloadedMessage
		}
		o.logger.Debug("model reply", "user", userID, "round", round, "preview", preview(reply))

		name, args, isCall := ParseToolCall(reply)
		if !isCall {
			// Final answer: persist only the query and the answer, never
			// the intermediate tool rounds.
			state.append(o.cfg.HistoryLimit,
				llm.Message{Role: "user", Content: query},
				llm.Message{Role: "assistant", Content: reply},
			)
			return reply
		}

		result, err := o.tools.Call(ctx, name, args)
		if err != nil {
			// Unknown tool or invocation failure becomes data for the
			// model to react to, never a fault for the caller.
			result = fmt.Sprintf("Tool error: %v", err)
		}
		o.logger.Debug("tool invoked", "user", userID, "tool", name, "round", round, "preview", preview(result))

		messages = append(messages,
			llm.Message{Role: "assistant", Content: reply},
			llm.Message{Role: "user", Content: fmt.Sprintf("TOOL_RESULT for %s:\n%s", name, result)},
		)
	}

	o.logger.Warn("round budget exhausted", "user", userID, "rounds", o.cfg.MaxRounds)
	return budgetMessage
}

// systemPrompt assembles the instructions: the discovered tool catalog,
// the interaction rules, today's date in both formats the tools accept,
// and optional retrieved business context.
func (o *Orchestrator) systemPrompt(ctx context.Context, query string) string {
	var toolLines []string
	for _, t := range o.tools.Tools() {
		args := "none"
		if len(t.Args) > 0 {
			args = strings.Join(t.Args, ", ")
		}
		toolLines = append(toolLines, fmt.Sprintf("  - %s(%s): %s", t.Name, args, t.Description))
	}

	today := o.now()
	prompt := fmt.Sprintf(`You are a Tally accounting BI assistant. You answer business questions using live data from Tally Prime.

You have these tools available (discovered from the MCP server):
%s

RULES:
1. To call a tool, respond EXACTLY: TOOL_CALL: tool_name(arg1="value1", arg2="value2")
2. Call ONE tool at a time. Wait for the result before calling another.
3. When you have enough data, give a clear answer with NO tool call.
4. NEVER invent data. If a tool returns an error, say so.
5. Format currency as ₹X,XX,XXX.
6. Keep answers concise — this is a chat interface.

Today's date: %s (YYYYMMDD: %s)`,
		strings.Join(toolLines, "\n"),
		today.Format("2006-01-02"),
		today.Format("20060102"),
	)

	if o.retriever != nil {
		context, err := o.retriever.Relevant(ctx, query, 2)
		if err != nil {
			o.logger.Warn("context retrieval failed", "error", err)
		} else if context != "" {
			prompt += fmt.Sprintf(`

BUSINESS CONTEXT (from company knowledge base):
%s

Use this context to provide better analysis (e.g., flag overdue payments, check margins against targets).`, context)
		}
	}

	return prompt
}

func preview(s string) string {
	runes := []rune(s)
	if len(runes) > 150 {
		return string(runes[:150])
	}
	return s
}
