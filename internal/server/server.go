// Package server exposes the Tally data-access layer as MCP tools.
//
// The tool list registered here is the single source of truth for what the
// orchestration loop may call: the orchestrator discovers it over the MCP
// session at connect time and renders it into the model's system prompt.
package server

import (
	"fmt"

	"github.com/google/jsonschema-go/jsonschema"
	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/tally"
)

// Config holds everything the tool handlers need.
type Config struct {
	Name    string
	Version string
	Tally   *tally.Client
	Gate    *tally.Gate
	Logger  log.Logger
}

// New creates a fully configured MCP server with all eleven Tally tools
// and the status tool registered.
func New(cfg Config) (*mcp.Server, error) {
	if cfg.Tally == nil || cfg.Gate == nil {
		return nil, fmt.Errorf("server: tally client and gate are required")
	}
	if cfg.Logger == nil {
		cfg.Logger = log.NewNop()
	}
	if cfg.Name == "" {
		cfg.Name = "tallybi"
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}

	bi := &BITools{Tally: cfg.Tally, Gate: cfg.Gate, Logger: cfg.Logger}

	srv := mcp.NewServer(&mcp.Implementation{
		Name:    cfg.Name,
		Version: cfg.Version,
	}, nil)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_all_ledgers",
		Description: "Get all ledger accounts with their group and closing balance.",
	}, bi.GetAllLedgers)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_account_groups",
		Description: "Get all account groups.",
	}, bi.GetAccountGroups)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_stock_items",
		Description: "Get all inventory/stock items.",
	}, bi.GetStockItems)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_trial_balance",
		Description: "Get trial balance with debit/credit for all account groups.",
	}, bi.GetTrialBalance)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_profit_and_loss",
		Description: "Get P&L: sales, costs, expenses, net profit.",
	}, bi.GetProfitAndLoss)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_balance_sheet",
		Description: "Get Balance Sheet: capital, loans, liabilities, assets.",
	}, bi.GetBalanceSheet)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_sundry_debtors",
		Description: "Get customers who owe us money (Sundry Debtors), sorted by amount.",
	}, bi.GetSundryDebtors)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_sundry_creditors",
		Description: "Get suppliers we owe money to (Sundry Creditors), sorted by amount.",
	}, bi.GetSundryCreditors)

	searchSchema, err := jsonschema.For[SearchLedgerInput](nil)
	if err != nil {
		return nil, fmt.Errorf("search_ledger schema: %w", err)
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "search_ledger",
		Description: "Search for a ledger by partial name (case-insensitive).",
		InputSchema: searchSchema,
	}, bi.SearchLedger)

	dateSchema, err := jsonschema.For[TransactionsForDateInput](nil)
	if err != nil {
		return nil, fmt.Errorf("get_transactions_for_date schema: %w", err)
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_transactions_for_date",
		Description: "Get all transactions for a single date. date format: YYYYMMDD",
		InputSchema: dateSchema,
	}, bi.GetTransactionsForDate)

	periodSchema, err := jsonschema.For[TransactionsForPeriodInput](nil)
	if err != nil {
		return nil, fmt.Errorf("get_transactions_for_period schema: %w", err)
	}
	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_transactions_for_period",
		Description: "Get transactions summary for a date range. Max 7 days. Dates: YYYYMMDD",
		InputSchema: periodSchema,
	}, bi.GetTransactionsForPeriod)

	mcp.AddTool(srv, &mcp.Tool{
		Name:        "get_tally_status",
		Description: "Check if Tally is currently online and responding. Also shows age of cached data for each report type.",
	}, bi.GetTallyStatus)

	return srv, nil
}
