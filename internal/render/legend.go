package render

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatNumber renders v with thousands separators. Whole numbers drop the
// fraction; everything else keeps two decimals.
func FormatNumber(v float64) string {
	if v == math.Trunc(v) && math.Abs(v) < 1e15 {
		return printer.Sprintf("%d", int64(v))
	}
	return printer.Sprintf("%.2f", v)
}

func rangeLabel(lower, upper float64) string {
	if lower == upper {
		return FormatNumber(lower)
	}
	return FormatNumber(lower) + " - " + FormatNumber(upper)
}
