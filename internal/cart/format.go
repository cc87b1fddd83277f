package cart

import "github.com/shopspring/decimal"

// FormatMoney renders an amount the way the storefront shows it: "Q." for
// quetzales, "$" for anything else, always two decimals.
func FormatMoney(amount decimal.Decimal, currency string) string {
	symbol := "$"
	if currency == "GTQ" {
		symbol = "Q."
	}
	return symbol + amount.StringFixed(2)
}
