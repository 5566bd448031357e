package securities

import (
	"fmt"
	"strings"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator produces realistic portfolio statements for tests.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a specific seed for
// reproducibility.
func NewTestDataGenerator(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// Holding generates a single random holding
func (g *TestDataGenerator) Holding() Security {
	quantity := decimal.NewFromInt(int64(g.faker.Number(1, 10000)))
	price := decimal.NewFromFloat(g.faker.Float64Range(0.5, 2500)).Round(2)

	return Security{
		ISIN:     g.isin(),
		Name:     strings.ToUpper(g.faker.Company()),
		Quantity: quantity,
		Value:    quantity.Mul(price).Round(2),
		Currency: g.faker.RandomString([]string{"USD", "EUR", "GBP", "CHF"}),
	}
}

// Portfolio generates n random holdings with a consistent currency
func (g *TestDataGenerator) Portfolio(n int) *Portfolio {
	p := &Portfolio{Currency: "USD"}
	for i := 0; i < n; i++ {
		sec := g.Holding()
		sec.Currency = p.Currency
		p.Securities = append(p.Securities, sec)
		p.TotalValue = p.TotalValue.Add(sec.Value)
	}
	return p
}

// StatementText renders holdings as the kind of line-oriented statement
// the scanner consumes.
func (g *TestDataGenerator) StatementText(p *Portfolio) string {
	var b strings.Builder
	b.WriteString("PORTFOLIO STATEMENT\n\n")
	for _, sec := range p.Securities {
		fmt.Fprintf(&b, "%s ISIN: %s Quantity: %s Value: %s %s\n",
			sec.Name, sec.ISIN, sec.Quantity.String(), sec.Currency, sec.Value.String())
	}
	fmt.Fprintf(&b, "\nTotal Value: %s %s\n", p.Currency, p.TotalValue.String())
	return b.String()
}

func (g *TestDataGenerator) isin() string {
	country := g.faker.RandomString([]string{"US", "DE", "FR", "GB", "CH"})
	const alphanum = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"
	body := make([]byte, 9)
	for i := range body {
		body[i] = alphanum[g.faker.Number(0, len(alphanum)-1)]
	}
	return fmt.Sprintf("%s%s%d", country, string(body), g.faker.Number(0, 9))
}
