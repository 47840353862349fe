package currency

import (
	"strings"

	"github.com/shopspring/decimal"
	"golang.org/x/text/currency"
)

// Code is a display currency. Prices are stored in Canonical and converted
// for display only.
type Code string

const (
	EUR Code = "EUR"
	USD Code = "USD"
	GBP Code = "GBP"

	Canonical = EUR
)

// Static rates from one unit of Canonical. They never change at runtime.
var rates = map[Code]decimal.Decimal{
	EUR: decimal.NewFromInt(1),
	USD: decimal.RequireFromString("1.1"),
	GBP: decimal.RequireFromString("0.85"),
}

// Codes lists the supported currencies, Canonical first.
func Codes() []Code {
	return []Code{EUR, USD, GBP}
}

func (c Code) Supported() bool {
	_, ok := rates[c]
	return ok
}

// Unit returns the ISO 4217 unit for c, falling back to Canonical.
func (c Code) Unit() currency.Unit {
	if u, err := currency.ParseISO(string(c)); err == nil && c.Supported() {
		return u
	}
	return currency.EUR
}

// Parse normalises an ISO code. Anything unsupported becomes Canonical.
func Parse(s string) Code {
	c, ok := Lookup(s)
	if !ok {
		return Canonical
	}
	return c
}

// Lookup is Parse that reports whether s named a supported currency.
func Lookup(s string) (Code, bool) {
	u, err := currency.ParseISO(strings.TrimSpace(s))
	if err != nil {
		return Canonical, false
	}

	c := Code(u.String())
	if !c.Supported() {
		return Canonical, false
	}
	return c, true
}

// Convert renders a Canonical price in c with two decimals. Unsupported
// codes render as Canonical.
func Convert(price decimal.Decimal, c Code) string {
	rate, ok := rates[c]
	if !ok {
		rate = rates[Canonical]
	}
	return price.Mul(rate).StringFixed(2)
}
