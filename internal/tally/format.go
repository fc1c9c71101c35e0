package tally

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Currency formats an amount as Indian currency: ₹1,23,456.00. The sign is
// dropped; callers decide how to present direction.
func Currency(d decimal.Decimal) string {
	fixed := d.Abs().StringFixed(2)
	intPart, fracPart, _ := strings.Cut(fixed, ".")
	return "₹" + groupIndian(intPart) + "." + fracPart
}

// groupIndian inserts Indian-system digit separators: the last three digits
// form one group, everything before that groups in twos.
func groupIndian(digits string) string {
	if len(digits) <= 3 {
		return digits
	}
	head, tail := digits[:len(digits)-3], digits[len(digits)-3:]
	var groups []string
	for len(head) > 2 {
		groups = append([]string{head[len(head)-2:]}, groups...)
		head = head[:len(head)-2]
	}
	if head != "" {
		groups = append([]string{head}, groups...)
	}
	return strings.Join(append(groups, tail), ",")
}

func ledgerLine(l Ledger) string {
	bal := "0"
	if !l.Balance.IsZero() {
		bal = Currency(l.Balance)
	}
	return fmt.Sprintf("%s | Group: %s | Balance: %s", l.Name, l.Group, bal)
}

// FormatLedgers renders a full ledger listing.
func FormatLedgers(ledgers []Ledger) string {
	if len(ledgers) == 0 {
		return "No ledgers found."
	}
	lines := make([]string, 0, len(ledgers))
	for _, l := range ledgers {
		lines = append(lines, ledgerLine(l))
	}
	return strings.Join(lines, "\n")
}

// FormatGroups renders a group listing.
func FormatGroups(groups []string) string {
	if len(groups) == 0 {
		return "No groups found."
	}
	return strings.Join(groups, "\n")
}

// FormatStockItems renders a stock item listing.
func FormatStockItems(items []string) string {
	if len(items) == 0 {
		return "No stock items found."
	}
	return strings.Join(items, "\n")
}

// FormatTrialBalance renders trial balance rows as "Name: Dr X Cr Y",
// omitting whichever side is empty.
func FormatTrialBalance(rows []TrialBalanceRow) string {
	if len(rows) == 0 {
		return "Empty trial balance."
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		parts := []string{r.Name + ":"}
		if r.Debit != "" {
			parts = append(parts, "Dr "+r.Debit)
		}
		if r.Credit != "" {
			parts = append(parts, "Cr "+r.Credit)
		}
		lines = append(lines, strings.Join(parts, " "))
	}
	return strings.Join(lines, "\n")
}

// FormatProfitAndLoss renders P&L rows; zero amounts display as "-".
func FormatProfitAndLoss(rows []ProfitLossRow) string {
	if len(rows) == 0 {
		return "Empty P&L."
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		amt := r.Amount
		if amt == "0" {
			amt = "-"
		}
		lines = append(lines, r.Name+": "+amt)
	}
	return strings.Join(lines, "\n")
}

// FormatBalanceSheet renders balance sheet rows; zero amounts display as "-".
func FormatBalanceSheet(rows []BalanceSheetRow) string {
	if len(rows) == 0 {
		return "Empty balance sheet."
	}
	lines := make([]string, 0, len(rows))
	for _, r := range rows {
		amt := r.Amount
		if amt == "0" {
			amt = "-"
		}
		lines = append(lines, r.Name+": "+amt)
	}
	return strings.Join(lines, "\n")
}

// byAbsBalanceDesc sorts ledgers by absolute balance, largest first,
// stably so equal balances keep source order and output stays
// deterministic.
func byAbsBalanceDesc(ledgers []Ledger) []Ledger {
	sorted := make([]Ledger, len(ledgers))
	copy(sorted, ledgers)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Balance.Abs().GreaterThan(sorted[j].Balance.Abs())
	})
	return sorted
}

// FormatReceivables lists Sundry Debtors sorted by amount with a total.
func FormatReceivables(ledgers []Ledger) string {
	var debtors []Ledger
	for _, l := range ledgers {
		if l.Group == "Sundry Debtors" {
			debtors = append(debtors, l)
		}
	}
	if len(debtors) == 0 {
		return "No sundry debtors found."
	}
	lines := []string{"RECEIVABLES (customers who owe us):\n"}
	total := decimal.Zero
	for _, d := range byAbsBalanceDesc(debtors) {
		amt := d.Balance.Abs()
		total = total.Add(amt)
		lines = append(lines, fmt.Sprintf("  %s: %s", d.Name, Currency(amt)))
	}
	lines = append(lines, "\nTotal Receivable: "+Currency(total))
	return strings.Join(lines, "\n")
}

// FormatPayables lists Sundry Creditors sorted by amount with a total.
func FormatPayables(ledgers []Ledger) string {
	var creditors []Ledger
	for _, l := range ledgers {
		if l.Group == "Sundry Creditors" {
			creditors = append(creditors, l)
		}
	}
	if len(creditors) == 0 {
		return "No sundry creditors found."
	}
	lines := []string{"PAYABLES (we owe them):\n"}
	total := decimal.Zero
	for _, c := range byAbsBalanceDesc(creditors) {
		amt := c.Balance.Abs()
		total = total.Add(amt)
		lines = append(lines, fmt.Sprintf("  %s: %s", c.Name, Currency(amt)))
	}
	lines = append(lines, "\nTotal Payable: "+Currency(total))
	return strings.Join(lines, "\n")
}

// FormatLedgerSearch renders case-insensitive substring matches for
// partialName. A miss lists every available ledger name so the caller (or
// the model reading the result) can correct the query.
func FormatLedgerSearch(ledgers []Ledger, partialName string) string {
	query := strings.ToLower(partialName)
	var matches []Ledger
	for _, l := range ledgers {
		if strings.Contains(strings.ToLower(l.Name), query) {
			matches = append(matches, l)
		}
	}
	if len(matches) == 0 {
		names := make([]string, 0, len(ledgers))
		for _, l := range ledgers {
			names = append(names, l.Name)
		}
		return fmt.Sprintf("No match for '%s'. Available: %s", partialName, strings.Join(names, ", "))
	}
	lines := make([]string, 0, len(matches))
	for _, m := range matches {
		lines = append(lines, ledgerLine(m))
	}
	return strings.Join(lines, "\n")
}

// FormatDayBook renders every voucher on a single date.
func FormatDayBook(vouchers []Voucher, date string) string {
	if len(vouchers) == 0 {
		return fmt.Sprintf("No transactions on %s.", date)
	}
	lines := []string{fmt.Sprintf("Transactions on %s: (%d vouchers)\n", date, len(vouchers))}
	for _, v := range vouchers {
		party := v.Party
		if party == "" {
			party = "-"
		}
		line := fmt.Sprintf("  %s | %s | %s", v.Type, party, Currency(v.Amount))
		if v.Narration != "" {
			line += " | " + v.Narration
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// FormatPeriodSummary renders a date-range summary: per-type voucher counts
// and totals (most frequent first, ties in first-seen order), then the
// first 15 vouchers.
func FormatPeriodSummary(vouchers []Voucher, from, to string) string {
	if len(vouchers) == 0 {
		return fmt.Sprintf("No transactions from %s to %s.", from, to)
	}

	type typeStats struct {
		name  string
		count int
		total decimal.Decimal
	}
	var order []string
	stats := map[string]*typeStats{}
	for _, v := range vouchers {
		s, ok := stats[v.Type]
		if !ok {
			s = &typeStats{name: v.Type, total: decimal.Zero}
			stats[v.Type] = s
			order = append(order, v.Type)
		}
		s.count++
		s.total = s.total.Add(v.Amount)
	}
	firstSeen := make(map[string]int, len(order))
	for i, name := range order {
		firstSeen[name] = i
	}
	sort.SliceStable(order, func(i, j int) bool {
		a, b := stats[order[i]], stats[order[j]]
		if a.count != b.count {
			return a.count > b.count
		}
		return firstSeen[a.name] < firstSeen[b.name]
	})

	lines := []string{
		fmt.Sprintf("Period: %s to %s", from, to),
		fmt.Sprintf("Total vouchers: %d\n", len(vouchers)),
	}
	for _, name := range order {
		s := stats[name]
		lines = append(lines, fmt.Sprintf("  %s: %d vouchers, %s", s.name, s.count, Currency(s.total)))
	}

	lines = append(lines, "\nFirst 15:")
	shown := vouchers
	if len(shown) > 15 {
		shown = shown[:15]
	}
	for _, v := range shown {
		party := v.Party
		if party == "" {
			party = "-"
		}
		lines = append(lines, fmt.Sprintf("  %s | %s | %s | %s", v.Date, v.Type, party, Currency(v.Amount)))
	}
	if len(vouchers) > 15 {
		lines = append(lines, fmt.Sprintf("  ... and %d more", len(vouchers)-15))
	}
	return strings.Join(lines, "\n")
}
