package tally

import "github.com/shopspring/decimal"

// Ledger is one account from a Collection:Ledger export. Balance keeps
// Tally's sign convention: under receivables groups a negative closing
// balance means money owed to the business.
type Ledger struct {
	Name    string
	Group   string
	Balance decimal.Decimal
}

// TrialBalanceRow is one line of a Trial Balance export. Debit and Credit
// are the raw amount strings; at most one is usually populated.
type TrialBalanceRow struct {
	Name   string
	Debit  string
	Credit string
}

// ProfitLossRow is one line of a Profit and Loss export. Amount is the
// BSMAINAMT value, falling back to the PLSUBAMT sibling, then "0".
type ProfitLossRow struct {
	Name   string
	Amount string
}

// BalanceSheetRow is one line of a Balance Sheet export. Despite sharing
// the BSMAINAMT tag with ProfitLossRow, the semantics differ, so the two
// stay distinct types with their own parsers.
type BalanceSheetRow struct {
	Name   string
	Amount string
}

// Voucher is one recorded transaction from a Day Book export. Amount is
// always a resolved absolute value; direction is not preserved at this
// layer. Date is Tally's raw 8-digit YYYYMMDD string.
type Voucher struct {
	Type      string
	Date      string
	Party     string
	Amount    decimal.Decimal
	Narration string
	Number    string
}
