package tally

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const ledgerExport = `<ENVELOPE>
  <BODY><DATA><COLLECTION>
    <LEDGER NAME="Cash" RESERVEDNAME="">
      <PARENT TYPE="String">Cash-in-Hand</PARENT>
      <CLOSINGBALANCE TYPE="Amount">-300.00</CLOSINGBALANCE>
    </LEDGER>
    <LEDGER NAME="Debtor_1" RESERVEDNAME="">
      <PARENT TYPE="String">Sundry Debtors</PARENT>
      <CLOSINGBALANCE TYPE="Amount">-12500.50</CLOSINGBALANCE>
    </LEDGER>
    <LEDGER NAME="Rounding" RESERVEDNAME="">
      <PARENT TYPE="String">Indirect Expenses</PARENT>
      <CLOSINGBALANCE TYPE="Amount"></CLOSINGBALANCE>
    </LEDGER>
  </COLLECTION></DATA></BODY>
</ENVELOPE>`

func TestParseLedgers(t *testing.T) {
	ledgers, err := ParseLedgers(ledgerExport)
	require.NoError(t, err)
	require.Len(t, ledgers, 3)

	assert.Equal(t, "Cash", ledgers[0].Name)
	assert.Equal(t, "Cash-in-Hand", ledgers[0].Group)
	assert.True(t, ledgers[0].Balance.Equal(decimal.RequireFromString("-300.00")))

	assert.Equal(t, "Debtor_1", ledgers[1].Name)
	assert.Equal(t, "Sundry Debtors", ledgers[1].Group)

	// Missing balance text parses as zero, never as an error.
	assert.True(t, ledgers[2].Balance.IsZero())
}

func TestParseLedgers_SkipsUnnamed(t *testing.T) {
	raw := `<ENVELOPE><LEDGER><PARENT>Misc</PARENT></LEDGER></ENVELOPE>`
	ledgers, err := ParseLedgers(raw)
	require.NoError(t, err)
	assert.Empty(t, ledgers)
}

func TestParseLedgers_SanitizesControlChars(t *testing.T) {
	raw := `<ENVELOPE><LEDGER NAME="Cash">` +
		"<PARENT>Cash\x04-in-Hand&#4;</PARENT>" +
		`<CLOSINGBALANCE>-300.00</CLOSINGBALANCE></LEDGER></ENVELOPE>`
	ledgers, err := ParseLedgers(raw)
	require.NoError(t, err)
	require.Len(t, ledgers, 1)
	assert.Equal(t, "Cash-in-Hand", ledgers[0].Group)
}

func TestParseLedgers_MalformedXML(t *testing.T) {
	_, err := ParseLedgers("<ENVELOPE><LEDGER NAME=")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrParse)
}

func TestParseGroups(t *testing.T) {
	raw := `<ENVELOPE>
	  <GROUP NAME="Sundry Debtors"/>
	  <GROUP NAME="Sundry Creditors"/>
	  <GROUP/>
	</ENVELOPE>`
	groups, err := ParseGroups(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Sundry Debtors", "Sundry Creditors"}, groups)
}

func TestParseStockItems(t *testing.T) {
	raw := `<ENVELOPE>
	  <STOCKITEM NAME="Widget A"/>
	  <STOCKITEM NAME="Widget B"/>
	</ENVELOPE>`
	items, err := ParseStockItems(raw)
	require.NoError(t, err)
	assert.Equal(t, []string{"Widget A", "Widget B"}, items)
}

func TestParseTrialBalance(t *testing.T) {
	raw := `<ENVELOPE>
	  <DSPACCNAME><DSPDISPNAME>Capital Account</DSPDISPNAME></DSPACCNAME>
	  <DSPACCINFO>
	    <DSPCLDRAMT><DSPCLDRAMTA></DSPCLDRAMTA></DSPCLDRAMT>
	    <DSPCLCRAMT><DSPCLCRAMTA>50000.00</DSPCLCRAMTA></DSPCLCRAMT>
	  </DSPACCINFO>
	  <DSPACCNAME><DSPDISPNAME>Current Assets</DSPDISPNAME></DSPACCNAME>
	  <DSPACCINFO>
	    <DSPCLDRAMT><DSPCLDRAMTA>50000.00</DSPCLDRAMTA></DSPCLDRAMT>
	    <DSPCLCRAMT><DSPCLCRAMTA></DSPCLCRAMTA></DSPCLCRAMT>
	  </DSPACCINFO>
	</ENVELOPE>`
	rows, err := ParseTrialBalance(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, TrialBalanceRow{Name: "Capital Account", Debit: "", Credit: "50000.00"}, rows[0])
	assert.Equal(t, TrialBalanceRow{Name: "Current Assets", Debit: "50000.00", Credit: ""}, rows[1])
}

func TestParseProfitAndLoss(t *testing.T) {
	raw := `<ENVELOPE>
	  <DSPACCNAME><DSPDISPNAME>Sales Accounts</DSPDISPNAME></DSPACCNAME>
	  <PLAMT><BSMAINAMT>120000.00</BSMAINAMT><PLSUBAMT></PLSUBAMT></PLAMT>
	  <DSPACCNAME><DSPDISPNAME>Direct Expenses</DSPDISPNAME></DSPACCNAME>
	  <PLAMT><BSMAINAMT></BSMAINAMT><PLSUBAMT>-45000.00</PLSUBAMT></PLAMT>
	  <DSPACCNAME><DSPDISPNAME>Suspense</DSPDISPNAME></DSPACCNAME>
	  <PLAMT><BSMAINAMT></BSMAINAMT><PLSUBAMT></PLSUBAMT></PLAMT>
	</ENVELOPE>`
	rows, err := ParseProfitAndLoss(raw)
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, ProfitLossRow{Name: "Sales Accounts", Amount: "120000.00"}, rows[0])
	assert.Equal(t, ProfitLossRow{Name: "Direct Expenses", Amount: "-45000.00"}, rows[1])
	assert.Equal(t, ProfitLossRow{Name: "Suspense", Amount: "0"}, rows[2])
}

func TestParseBalanceSheet(t *testing.T) {
	raw := `<ENVELOPE>
	  <DSPACCNAME><DSPDISPNAME>Capital Account</DSPDISPNAME></DSPACCNAME>
	  <BSAMT><BSMAINAMT>50000.00</BSMAINAMT></BSAMT>
	  <DSPACCNAME><DSPDISPNAME>Loans (Liability)</DSPDISPNAME></DSPACCNAME>
	  <BSAMT><BSMAINAMT></BSMAINAMT></BSAMT>
	</ENVELOPE>`
	rows, err := ParseBalanceSheet(raw)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, BalanceSheetRow{Name: "Capital Account", Amount: "50000.00"}, rows[0])
	// Balance sheet never consults sub amounts; empty means zero.
	assert.Equal(t, BalanceSheetRow{Name: "Loans (Liability)", Amount: "0"}, rows[1])
}

func TestParseVouchers(t *testing.T) {
	raw := `<ENVELOPE>
	  <VOUCHER VCHTYPE="Sales">
	    <DATE>20250701</DATE>
	    <PARTYLEDGERNAME>Debtor_2</PARTYLEDGERNAME>
	    <VOUCHERNUMBER>1</VOUCHERNUMBER>
	    <NARRATION>Invoice 1</NARRATION>
	    <ALLLEDGERENTRIES.LIST>
	      <LEDGERNAME>Debtor_2</LEDGERNAME>
	      <ISPARTYLEDGER>Yes</ISPARTYLEDGER>
	      <AMOUNT>-200.00</AMOUNT>
	    </ALLLEDGERENTRIES.LIST>
	    <ALLLEDGERENTRIES.LIST>
	      <LEDGERNAME>Sales</LEDGERNAME>
	      <ISPARTYLEDGER>No</ISPARTYLEDGER>
	      <AMOUNT>200.00</AMOUNT>
	    </ALLLEDGERENTRIES.LIST>
	  </VOUCHER>
	  <VOUCHER>
	    <DATE>20250702</DATE>
	  </VOUCHER>
	</ENVELOPE>`
	vouchers, err := ParseVouchers(raw)
	require.NoError(t, err)
	require.Len(t, vouchers, 2)

	assert.Equal(t, "Sales", vouchers[0].Type)
	assert.Equal(t, "20250701", vouchers[0].Date)
	assert.Equal(t, "Debtor_2", vouchers[0].Party)
	assert.Equal(t, "Invoice 1", vouchers[0].Narration)
	assert.Equal(t, "1", vouchers[0].Number)
	assert.True(t, vouchers[0].Amount.Equal(decimal.RequireFromString("200.00")))

	// Missing VCHTYPE renders as "?".
	assert.Equal(t, "?", vouchers[1].Type)
	assert.True(t, vouchers[1].Amount.IsZero())
}

func TestParseAmount(t *testing.T) {
	assert.True(t, parseAmount(" -300.00 ").Equal(decimal.RequireFromString("-300.00")))
	assert.True(t, parseAmount("").IsZero())
	assert.True(t, parseAmount("1,234").IsZero())
}
