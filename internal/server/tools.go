package server

import (
	"context"
	"fmt"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/tallybi/tallybi/internal/log"
	"github.com/tallybi/tallybi/internal/tally"
)

// BITools holds the dependencies shared by every tool handler. Each handler
// goes through the Gate, so every answer is either live data or an
// explicitly labeled stale snapshot. Unhandled errors never surface to
// the model.
type BITools struct {
	Tally  *tally.Client
	Gate   *tally.Gate
	Logger log.Logger
}

// --- Input types ---

type SearchLedgerInput struct {
	PartialName string `json:"partial_name" jsonschema:"Partial ledger name to search for, case-insensitive"`
}

type TransactionsForDateInput struct {
	Date string `json:"date" jsonschema:"Date in YYYYMMDD form"`
}

type TransactionsForPeriodInput struct {
	FromDate string `json:"from_date" jsonschema:"Inclusive start date in YYYYMMDD form"`
	ToDate   string `json:"to_date" jsonschema:"Inclusive end date in YYYYMMDD form"`
}

// --- Handlers ---

func (t *BITools) GetAllLedgers(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("ledgers",
		func() string { return t.Tally.Collection(ctx, "Ledger") },
		func(raw string) (string, error) {
			ledgers, err := tally.ParseLedgers(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatLedgers(ledgers), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetAccountGroups(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("groups",
		func() string { return t.Tally.Collection(ctx, "Group") },
		func(raw string) (string, error) {
			groups, err := tally.ParseGroups(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatGroups(groups), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetStockItems(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("stock_items",
		func() string { return t.Tally.Collection(ctx, "StockItem") },
		func(raw string) (string, error) {
			items, err := tally.ParseStockItems(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatStockItems(items), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetTrialBalance(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("trial_balance",
		func() string { return t.Tally.Report(ctx, "Trial Balance", "", "") },
		func(raw string) (string, error) {
			rows, err := tally.ParseTrialBalance(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatTrialBalance(rows), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetProfitAndLoss(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("pnl",
		func() string { return t.Tally.Report(ctx, "Profit and Loss", "", "") },
		func(raw string) (string, error) {
			rows, err := tally.ParseProfitAndLoss(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatProfitAndLoss(rows), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetBalanceSheet(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("balance_sheet",
		func() string { return t.Tally.Report(ctx, "Balance Sheet", "", "") },
		func(raw string) (string, error) {
			rows, err := tally.ParseBalanceSheet(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatBalanceSheet(rows), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetSundryDebtors(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("debtors",
		func() string { return t.Tally.Collection(ctx, "Ledger") },
		func(raw string) (string, error) {
			ledgers, err := tally.ParseLedgers(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatReceivables(ledgers), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetSundryCreditors(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("creditors",
		func() string { return t.Tally.Collection(ctx, "Ledger") },
		func(raw string) (string, error) {
			ledgers, err := tally.ParseLedgers(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatPayables(ledgers), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) SearchLedger(ctx context.Context, _ *mcp.CallToolRequest, in SearchLedgerInput) (*mcp.CallToolResult, any, error) {
	// Dynamic cache key so different searches are cached separately.
	key := "search_" + strings.ToLower(in.PartialName)
	text := t.Gate.Resolve(key,
		func() string { return t.Tally.Collection(ctx, "Ledger") },
		func(raw string) (string, error) {
			ledgers, err := tally.ParseLedgers(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatLedgerSearch(ledgers, in.PartialName), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetTransactionsForDate(ctx context.Context, _ *mcp.CallToolRequest, in TransactionsForDateInput) (*mcp.CallToolResult, any, error) {
	text := t.Gate.Resolve("txn_"+in.Date,
		func() string { return t.Tally.Report(ctx, "Day Book", in.Date, in.Date) },
		func(raw string) (string, error) {
			vouchers, err := tally.ParseVouchers(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatDayBook(vouchers, in.Date), nil
		})
	return toolText(text), nil, nil
}

func (t *BITools) GetTransactionsForPeriod(ctx context.Context, _ *mcp.CallToolRequest, in TransactionsForPeriodInput) (*mcp.CallToolResult, any, error) {
	// The ≤7-day span is advertised in the tool description, not enforced:
	// longer ranges just produce a bigger summary.
	key := fmt.Sprintf("txn_%s_%s", in.FromDate, in.ToDate)
	text := t.Gate.Resolve(key,
		func() string { return t.Tally.Report(ctx, "Day Book", in.FromDate, in.ToDate) },
		func(raw string) (string, error) {
			vouchers, err := tally.ParseVouchers(raw)
			if err != nil {
				return "", err
			}
			return tally.FormatPeriodSummary(vouchers, in.FromDate, in.ToDate), nil
		})
	return toolText(text), nil, nil
}

// statusCacheKeys lists the cache keys shown by get_tally_status, with
// display labels.
var statusCacheKeys = []struct {
	Label string
	Key   string
}{
	{"Ledgers", "ledgers"},
	{"Trial Balance", "trial_balance"},
	{"P&L", "pnl"},
	{"Balance Sheet", "balance_sheet"},
	{"Debtors", "debtors"},
	{"Creditors", "creditors"},
}

func (t *BITools) GetTallyStatus(ctx context.Context, _ *mcp.CallToolRequest, _ struct{}) (*mcp.CallToolResult, any, error) {
	// Quick live ping; Group is the smallest collection.
	var status string
	raw := t.Tally.Collection(ctx, "Group")
	switch {
	case !tally.IsError(raw):
		status = "🟢 Tally is ONLINE and responding"
	case strings.Contains(raw, "Cannot connect") || strings.Contains(raw, "timed out"):
		status = "🔴 Tally is OFFLINE"
	default:
		status = "🔴 Tally returned an error"
	}

	lines := []string{status, "", "Cached data ages:"}
	for _, entry := range statusCacheKeys {
		lines = append(lines, fmt.Sprintf("  %s: %s", entry.Label, t.Gate.Store().Age(entry.Key)))
	}
	return toolText(strings.Join(lines, "\n")), nil, nil
}

// --- Helpers ---

func toolText(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content: []mcp.Content{&mcp.TextContent{Text: text}},
	}
}
