package tally

import (
	"errors"
	"fmt"
	"strings"

	"github.com/antchfx/xmlquery"
	"github.com/shopspring/decimal"
)

// ErrParse indicates a Tally payload was still malformed after
// sanitization (e.g. a truncated stream). It must propagate to the Gate so
// the cache fallback covers it like any transport failure.
var ErrParse = errors.New("malformed tally xml")

// parseDoc sanitizes raw and parses it into a DOM.
func parseDoc(raw string) (*xmlquery.Node, error) {
	doc, err := xmlquery.Parse(strings.NewReader(Sanitize(raw)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return doc, nil
}

// elementText returns the trimmed text of the first child element with the
// given name, or "" when absent.
func elementText(n *xmlquery.Node, name string) string {
	el := n.SelectElement(name)
	if el == nil {
		return ""
	}
	return strings.TrimSpace(el.InnerText())
}

// descendants collects every descendant element named name, in document
// order. Tally's list tags contain dots (ALLLEDGERENTRIES.LIST), which an
// XPath name test will not match, so the walk is done directly.
func descendants(n *xmlquery.Node, name string) []*xmlquery.Node {
	var out []*xmlquery.Node
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if child.Type == xmlquery.ElementNode && child.Data == name {
			out = append(out, child)
		}
		out = append(out, descendants(child, name)...)
	}
	return out
}

// parseAmount converts a Tally amount string to a decimal. Unparsable or
// empty text is treated as zero; amount junk never escapes the parser.
func parseAmount(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// ParseLedgers parses a Collection:Ledger export.
//
// Shape: <LEDGER NAME="Cash" RESERVEDNAME="">
//          <PARENT TYPE="String">Cash-in-Hand</PARENT>
//          <CLOSINGBALANCE TYPE="Amount">-300.00</CLOSINGBALANCE>
func ParseLedgers(raw string) ([]Ledger, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	var out []Ledger
	for _, el := range xmlquery.Find(doc, "//LEDGER") {
		name := el.SelectAttr("NAME")
		if name == "" {
			continue
		}
		out = append(out, Ledger{
			Name:    name,
			Group:   elementText(el, "PARENT"),
			Balance: parseAmount(elementText(el, "CLOSINGBALANCE")),
		})
	}
	return out, nil
}

// ParseGroups parses a Collection:Group export into group names.
func ParseGroups(raw string) ([]string, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, el := range xmlquery.Find(doc, "//GROUP") {
		if name := el.SelectAttr("NAME"); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// ParseStockItems parses a Collection:StockItem export into item names.
func ParseStockItems(raw string) ([]string, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	var out []string
	for _, el := range xmlquery.Find(doc, "//STOCKITEM") {
		if name := el.SelectAttr("NAME"); name != "" {
			out = append(out, name)
		}
	}
	return out, nil
}

// displayNames returns the DSPDISPNAME row labels shared by every display
// report (trial balance, P&L, balance sheet), in source order.
func displayNames(doc *xmlquery.Node) []string {
	var names []string
	for _, el := range xmlquery.Find(doc, "//DSPDISPNAME") {
		if text := strings.TrimSpace(el.InnerText()); text != "" {
			names = append(names, text)
		}
	}
	return names
}

func textAt(els []*xmlquery.Node, i int) string {
	if i >= len(els) {
		return ""
	}
	return strings.TrimSpace(els[i].InnerText())
}

// ParseTrialBalance parses a Trial Balance export: names from DSPDISPNAME,
// amounts from the DSPCLDRAMTA / DSPCLCRAMTA pair, matched by position.
func ParseTrialBalance(raw string) ([]TrialBalanceRow, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	debits := xmlquery.Find(doc, "//DSPCLDRAMTA")
	credits := xmlquery.Find(doc, "//DSPCLCRAMTA")
	var rows []TrialBalanceRow
	for i, name := range displayNames(doc) {
		rows = append(rows, TrialBalanceRow{
			Name:   name,
			Debit:  textAt(debits, i),
			Credit: textAt(credits, i),
		})
	}
	return rows, nil
}

// ParseProfitAndLoss parses a Profit and Loss export. The report shares the
// BSMAINAMT tag with the balance sheet; here a PLSUBAMT sibling carries the
// detail lines, and the first populated of the pair wins.
func ParseProfitAndLoss(raw string) ([]ProfitLossRow, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	mains := xmlquery.Find(doc, "//BSMAINAMT")
	subs := xmlquery.Find(doc, "//PLSUBAMT")
	var rows []ProfitLossRow
	for i, name := range displayNames(doc) {
		amount := textAt(mains, i)
		if amount == "" {
			amount = textAt(subs, i)
		}
		if amount == "" {
			amount = "0"
		}
		rows = append(rows, ProfitLossRow{Name: name, Amount: amount})
	}
	return rows, nil
}

// ParseBalanceSheet parses a Balance Sheet export: names from DSPDISPNAME,
// amounts from BSMAINAMT only.
func ParseBalanceSheet(raw string) ([]BalanceSheetRow, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	mains := xmlquery.Find(doc, "//BSMAINAMT")
	var rows []BalanceSheetRow
	for i, name := range displayNames(doc) {
		amount := textAt(mains, i)
		if amount == "" {
			amount = "0"
		}
		rows = append(rows, BalanceSheetRow{Name: name, Amount: amount})
	}
	return rows, nil
}

// ParseVouchers parses a Day Book export.
//
// Shape: <VOUCHER VCHTYPE="Sales">
//          <DATE>20250701</DATE>
//          <PARTYLEDGERNAME>Debtor_2</PARTYLEDGERNAME>
//          <VOUCHERNUMBER>1</VOUCHERNUMBER>
//          <NARRATION>...</NARRATION>
//          <ALLLEDGERENTRIES.LIST>
//            <LEDGERNAME>Debtor_2</LEDGERNAME>
//            <ISPARTYLEDGER>Yes</ISPARTYLEDGER>
//            <AMOUNT>-200.00</AMOUNT>
//          </ALLLEDGERENTRIES.LIST>
func ParseVouchers(raw string) ([]Voucher, error) {
	doc, err := parseDoc(raw)
	if err != nil {
		return nil, err
	}
	var out []Voucher
	for _, v := range xmlquery.Find(doc, "//VOUCHER") {
		vtype := v.SelectAttr("VCHTYPE")
		if vtype == "" {
			vtype = "?"
		}
		out = append(out, Voucher{
			Type:      vtype,
			Date:      elementText(v, "DATE"),
			Party:     elementText(v, "PARTYLEDGERNAME"),
			Amount:    resolveVoucherAmount(v),
			Narration: elementText(v, "NARRATION"),
			Number:    elementText(v, "VOUCHERNUMBER"),
		})
	}
	return out, nil
}
