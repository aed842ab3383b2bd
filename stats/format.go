package stats

import (
	"strconv"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	thousand = 1_000
	million  = 1_000_000
	billion  = 1_000_000_000
)

// FormatCount abbreviates a count: 950, 1.2K, 3M.
func FormatCount(n int64) string {
	switch {
	case n < thousand:
		return strconv.FormatInt(n, 10)
	case n < million:
		return trimTenths(float64(n)/thousand) + "K"
	default:
		return trimTenths(float64(n)/million) + "M"
	}
}

// FormatUsers renders a user count as 42 or 10K+.
func FormatUsers(n int64) string {
	if n >= thousand {
		return strconv.FormatInt(n/thousand, 10) + "K+"
	}
	return strconv.FormatInt(n, 10)
}

func trimTenths(f float64) string {
	s := strconv.FormatFloat(f, 'f', 1, 64)
	return strings.TrimSuffix(s, ".0")
}

// Formatter renders emission amounts for one locale.
type Formatter struct {
	printer *message.Printer
}

// NewFormatter builds a Formatter for a BCP 47 tag such as "fr" or "en-US".
// Unparseable tags fall back to English.
func NewFormatter(locale string) Formatter {
	tag, err := language.Parse(locale)
	if err != nil {
		tag = language.English
	}
	return Formatter{printer: message.NewPrinter(tag)}
}

// FormatEmissions scales a kg CO2 amount to the largest fitting unit among
// kgCO2, tCO2, ktCO2 and MtCO2, with two decimals.
func (f Formatter) FormatEmissions(kg float64) string {
	value, unit := kg, "kgCO2"
	switch {
	case kg >= billion:
		value, unit = kg/billion, "MtCO2"
	case kg >= million:
		value, unit = kg/million, "ktCO2"
	case kg >= thousand:
		value, unit = kg/thousand, "tCO2"
	}
	return f.printer.Sprintf("%.2f %s", value, unit)
}
