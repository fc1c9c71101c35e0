package cmd

import (
	"context"
	"fmt"
	"os"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallybi/tallybi/internal/config"
	"github.com/tallybi/tallybi/internal/knowledge"
	"github.com/tallybi/tallybi/internal/llm"
	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/orchestrator"
	"github.com/tallybi/tallybi/internal/server"
	"github.com/tallybi/tallybi/internal/snapshot"
	"github.com/tallybi/tallybi/internal/tally"
)

const appVersion = "1.0.0"

// buildDataServer assembles the Tally data-access MCP server.
func buildDataServer(cfg *config.Config, logger log.Logger) (*mcp.Server, error) {
	store, err := snapshot.New(cfg.SnapshotDir, logger.With("component", "snapshot"))
	if err != nil {
		return nil, err
	}

	client := tally.NewClient(cfg.TallyURL, cfg.Company, logger.With("component", "tally"))
	gate := tally.NewGate(store, logger.With("component", "gate"))

	return server.New(server.Config{
		Name:    "tallybi",
		Version: appVersion,
		Tally:   client,
		Gate:    gate,
		Logger:  logger.With("component", "server"),
	})
}

// assistant bundles everything an orchestrator-facing command needs.
type assistant struct {
	orch      *orchestrator.Orchestrator
	session   *orchestrator.Session
	knowledge *knowledge.Store // nil when no knowledge db exists
}

func (a *assistant) Close() {
	if a.session != nil {
		a.session.Close()
	}
	if a.knowledge != nil {
		a.knowledge.Close()
	}
}

// buildAssistant runs the data server in-process over an in-memory MCP
// transport and connects the orchestrator to it. The same server can also
// be reached by external clients via the mcp command.
func buildAssistant(ctx context.Context, cfg *config.Config, logger log.Logger) (*assistant, error) {
	if err := cfg.RequireOpenRouterKey(); err != nil {
		return nil, err
	}

	srv, err := buildDataServer(cfg, logger)
	if err != nil {
		return nil, err
	}

	clientTransport, serverTransport := mcp.NewInMemoryTransports()
	if _, err := srv.Connect(ctx, serverTransport, nil); err != nil {
		return nil, fmt.Errorf("start data server: %w", err)
	}

	session, err := orchestrator.Connect(ctx, clientTransport, logger.With("component", "mcp-client"))
	if err != nil {
		return nil, err
	}

	model := llm.New(llm.Config{
		APIKey: cfg.OpenRouterKey,
		Model:  cfg.Model,
	}, logger.With("component", "llm"))

	// The knowledge base is optional: it only exists after `rules index`.
	var (
		store     *knowledge.Store
		retriever orchestrator.ContextRetriever
	)
	if _, statErr := os.Stat(cfg.KnowledgeDB); statErr == nil {
		store, err = knowledge.Open(cfg.KnowledgeDB, logger.With("component", "knowledge"))
		if err != nil {
			logger.Warn("knowledge base unavailable", "path", cfg.KnowledgeDB, "error", err)
		} else {
			retriever = store
			logger.Info("knowledge base enabled", "path", cfg.KnowledgeDB)
		}
	}

	orch := orchestrator.New(session, model, retriever, orchestrator.Config{
		MaxRounds:    cfg.MaxRounds,
		HistoryLimit: cfg.HistoryLimit,
	}, logger.With("component", "orchestrator"))

	return &assistant{orch: orch, session: session, knowledge: store}, nil
}
