// Package securities extracts security holdings from financial document
// text and exports them.
package securities

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Security is a single holding recognized in document text
type Security struct {
	ISIN     string          `json:"isin" csv:"isin"`
	Name     string          `json:"name" csv:"name"`
	Quantity decimal.Decimal `json:"quantity" csv:"quantity"`
	Value    decimal.Decimal `json:"value" csv:"value"`
	Currency string          `json:"currency" csv:"currency"`
}

// Portfolio aggregates the securities extracted from one document
type Portfolio struct {
	Securities []Security      `json:"securities"`
	TotalValue decimal.Decimal `json:"total_value"`
	Currency   string          `json:"currency"`
}

var (
	isinRe     = regexp.MustCompile(`\b([A-Z]{2}[A-Z0-9]{9}[0-9])\b`)
	quantityRe = regexp.MustCompile(`(?i)(?:qty|quantity|units|shares)[:\s]+([\d,]+(?:\.\d+)?)`)
	valueRe    = regexp.MustCompile(`(?i)(?:value|amount)[:\s]+(?:([A-Z]{3})\s*)?([\d,]+(?:\.\d+)?)`)
	currencyRe = regexp.MustCompile(`\b(USD|EUR|GBP|CHF|JPY)\b`)
)

// Scan walks the text line by line and collects one Security per line
// carrying an ISIN. Quantity and value are optional; amounts accept
// thousands separators.
func Scan(text string) *Portfolio {
	portfolio := &Portfolio{}

	for _, line := range strings.Split(text, "\n") {
		isin := isinRe.FindStringSubmatch(line)
		if isin == nil {
			continue
		}

		sec := Security{
			ISIN: isin[1],
			Name: nameFromLine(line, isin[1]),
		}

		if m := quantityRe.FindStringSubmatch(line); m != nil {
			sec.Quantity = parseAmount(m[1])
		}
		if m := valueRe.FindStringSubmatch(line); m != nil {
			if m[1] != "" {
				sec.Currency = m[1]
			}
			sec.Value = parseAmount(m[2])
		}
		if sec.Currency == "" {
			if m := currencyRe.FindStringSubmatch(line); m != nil {
				sec.Currency = m[1]
			}
		}

		portfolio.Securities = append(portfolio.Securities, sec)
		portfolio.TotalValue = portfolio.TotalValue.Add(sec.Value)
		if portfolio.Currency == "" && sec.Currency != "" {
			portfolio.Currency = sec.Currency
		}
	}

	return portfolio
}

// nameFromLine takes the text preceding the ISIN as the security name,
// stripping list markers and trailing separators.
func nameFromLine(line, isin string) string {
	idx := strings.Index(line, isin)
	name := strings.TrimSpace(line[:idx])
	name = strings.TrimLeft(name, "-*• \t")
	name = strings.TrimRight(name, ":,;( \t")
	name = strings.TrimSuffix(name, "ISIN")
	name = strings.TrimRight(name, ":,;( \t")
	return strings.TrimSpace(name)
}

func parseAmount(raw string) decimal.Decimal {
	d, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil {
		return decimal.Zero
	}
	return d
}
