package services

import (
	"math"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/pocketbase/pocketbase/tools/types"
)

// DateLayout is the display and wire format of contract dates.
const DateLayout = "2006-01-02"

// FormatAmount formats an amount with comma thousands separators and exactly
// two decimals, followed by the currency code when one is given
// (e.g., 1,234,567.50 MAD).
func FormatAmount(amount float64, currency string) string {
	s := humanize.FormatFloat("#,###.##", amount)
	if currency == "" {
		return s
	}
	return s + " " + currency
}

// FormatQty returns a quantity with thousands separators. Whole numbers are
// formatted without decimals; fractional values get 2 decimal places.
func FormatQty(qty float64) string {
	if qty == math.Trunc(qty) {
		return humanize.Comma(int64(qty))
	}
	return humanize.FormatFloat("#,###.##", qty)
}

// FormatPercent renders a percentage without trailing zeros (e.g., 2.5%).
func FormatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', -1, 64) + "%"
}

// FormatDate renders a stored date as YYYY-MM-DD, or "" when unset.
func FormatDate(dt types.DateTime) string {
	if dt.IsZero() {
		return ""
	}
	return dt.Time().Format(DateLayout)
}
