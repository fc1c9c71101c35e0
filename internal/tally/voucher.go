package tally

import (
	"github.com/antchfx/xmlquery"
	"github.com/shopspring/decimal"
)

// resolveVoucherAmount extracts a voucher's monetary total. The amount may
// live in several alternate locations depending on voucher type and Tally
// version, so resolution is an ordered fallback chain; the first match wins:
//
//  1. the ALLLEDGERENTRIES.LIST entry flagged ISPARTYLEDGER=Yes
//  2. the older-format LEDGERENTRIES.LIST entry flagged ISPARTYLEDGER=Yes
//  3. the sum of absolute INVENTORYENTRIES.LIST amounts, if positive
//  4. the first strictly positive absolute AMOUNT anywhere in the voucher
//  5. zero; absence of an amount is a reportable state, not an error
//
// Step 4 can pick an unrelated line item in vouchers with many ledger
// entries. Known precision risk, kept for compatibility with how the data
// has always been reported.
//
// Results are absolute values; direction is not preserved here.
func resolveVoucherAmount(voucher *xmlquery.Node) decimal.Decimal {
	for _, listName := range []string{"ALLLEDGERENTRIES.LIST", "LEDGERENTRIES.LIST"} {
		if amt, ok := partyLedgerAmount(voucher, listName); ok {
			return amt
		}
	}

	invTotal := decimal.Zero
	for _, inv := range descendants(voucher, "INVENTORYENTRIES.LIST") {
		invTotal = invTotal.Add(parseAmount(elementText(inv, "AMOUNT")).Abs())
	}
	if invTotal.IsPositive() {
		return invTotal
	}

	for _, amtEl := range descendants(voucher, "AMOUNT") {
		if amt := parseAmount(amtEl.InnerText()).Abs(); amt.IsPositive() {
			return amt
		}
	}

	return decimal.Zero
}

// partyLedgerAmount finds the amount on the entry flagged as the party
// ledger within the named entry list. A flagged entry with an empty or
// unparsable amount does not satisfy the step; the chain moves on.
func partyLedgerAmount(voucher *xmlquery.Node, listName string) (decimal.Decimal, bool) {
	for _, entry := range descendants(voucher, listName) {
		if elementText(entry, "ISPARTYLEDGER") != "Yes" {
			continue
		}
		raw := elementText(entry, "AMOUNT")
		if raw == "" {
			continue
		}
		amt, err := decimal.NewFromString(raw)
		if err != nil {
			continue
		}
		return amt.Abs(), true
	}
	return decimal.Zero, false
}
