package tui

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
	"golang.org/x/text/number"
)

// Formatter renders numbers for a locale with a fixed maximum precision.
type Formatter struct {
	printer   *message.Printer
	precision int
}

// NewFormatter returns a formatter for locale (a BCP 47 tag such as "en" or
// "es"). Unparseable tags fall back to English.
func NewFormatter(locale string, precision int) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	if precision < 0 {
		precision = 0
	}
	return Formatter{printer: message.NewPrinter(tag), precision: precision}
}

// Number formats v with up to the configured number of decimals.
func (f Formatter) Number(v float64) string {
	if f.printer == nil {
		f = NewFormatter("en", f.precision)
	}
	return f.printer.Sprint(number.Decimal(v, number.MaxFractionDigits(f.precision)))
}

// Grams formats a mass.
func (f Formatter) Grams(v float64) string {
	return f.Number(v) + " g"
}

// Kcal formats an energy amount.
func (f Formatter) Kcal(v float64) string {
	return f.Number(v) + " kcal"
}
