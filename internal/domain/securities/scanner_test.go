package securities

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScan(t *testing.T) {
	text := `PORTFOLIO STATEMENT

APPLE INC ISIN: US0378331005 Quantity: 100 Value: USD 17,500.00
MICROSOFT CORP ISIN: US5949181045 Quantity: 50 Value: USD 21,000.50
Total Value: USD 38,500.50
`

	portfolio := Scan(text)

	require.Len(t, portfolio.Securities, 2)

	apple := portfolio.Securities[0]
	assert.Equal(t, "US0378331005", apple.ISIN)
	assert.Equal(t, "APPLE INC", apple.Name)
	assert.True(t, apple.Quantity.Equal(decimal.NewFromInt(100)))
	assert.True(t, apple.Value.Equal(decimal.RequireFromString("17500.00")))
	assert.Equal(t, "USD", apple.Currency)

	msft := portfolio.Securities[1]
	assert.Equal(t, "US5949181045", msft.ISIN)
	assert.Equal(t, "MICROSOFT CORP", msft.Name)
	assert.True(t, msft.Value.Equal(decimal.RequireFromString("21000.50")))

	assert.True(t, portfolio.TotalValue.Equal(decimal.RequireFromString("38500.50")))
	assert.Equal(t, "USD", portfolio.Currency)
}

func TestScanNoHoldings(t *testing.T) {
	portfolio := Scan("Quarterly report\nNothing to see here\n")

	assert.Empty(t, portfolio.Securities)
	assert.True(t, portfolio.TotalValue.IsZero())
}

func TestScanListMarkers(t *testing.T) {
	text := "- NESTLE SA, ISIN CH0038863350, Units: 25, Amount: CHF 2,100.75"

	portfolio := Scan(text)

	require.Len(t, portfolio.Securities, 1)
	sec := portfolio.Securities[0]
	assert.Equal(t, "CH0038863350", sec.ISIN)
	assert.Equal(t, "NESTLE SA", sec.Name)
	assert.True(t, sec.Quantity.Equal(decimal.NewFromInt(25)))
	assert.True(t, sec.Value.Equal(decimal.RequireFromString("2100.75")))
	assert.Equal(t, "CHF", sec.Currency)
}

func TestScanMissingAmounts(t *testing.T) {
	portfolio := Scan("VODAFONE GROUP ISIN: GB00BH4HKS39")

	require.Len(t, portfolio.Securities, 1)
	sec := portfolio.Securities[0]
	assert.Equal(t, "GB00BH4HKS39", sec.ISIN)
	assert.True(t, sec.Quantity.IsZero())
	assert.True(t, sec.Value.IsZero())
	assert.Empty(t, sec.Currency)
}

func TestScanCurrencyFromLine(t *testing.T) {
	portfolio := Scan("SAP SE DE0007164600 EUR holding, value: 9,250")

	require.Len(t, portfolio.Securities, 1)
	assert.Equal(t, "EUR", portfolio.Securities[0].Currency)
	assert.True(t, portfolio.Securities[0].Value.Equal(decimal.NewFromInt(9250)))
}

func TestScanGeneratedStatementRoundTrip(t *testing.T) {
	gen := NewTestDataGenerator(42)
	want := gen.Portfolio(8)

	got := Scan(gen.StatementText(want))

	require.Len(t, got.Securities, len(want.Securities))
	for i, sec := range got.Securities {
		assert.Equal(t, want.Securities[i].ISIN, sec.ISIN)
		assert.True(t, sec.Quantity.Equal(want.Securities[i].Quantity),
			"quantity mismatch for %s", sec.ISIN)
		assert.True(t, sec.Value.Equal(want.Securities[i].Value),
			"value mismatch for %s", sec.ISIN)
	}
	assert.True(t, got.TotalValue.Equal(want.TotalValue))
}
