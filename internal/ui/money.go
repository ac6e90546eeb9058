package ui

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.English)

// FormatBDT formats a taka amount rounded to whole taka with thousands
// separators, e.g. "৳1,250,000".
func FormatBDT(amount float64) string {
	n := int64(math.Round(amount))
	if n < 0 {
		return printer.Sprintf("-৳%d", -n)
	}
	return printer.Sprintf("৳%d", n)
}

// Percent formats a 0-100 integer.
func Percent(p int) string {
	return printer.Sprintf("%d%%", p)
}
