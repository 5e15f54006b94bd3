package output

import (
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/shopsphere/shopctl/pkg/api"
)

var printer = message.NewPrinter(language.English)

// Money renders an amount with thousands separators and two decimals,
// prefixed by the currency code when one is given: "USD 1,250.75".
func Money(amount float64, currency string) string {
	s := printer.Sprintf("%.2f", amount)
	if currency == "" {
		return s
	}
	return strings.ToUpper(currency) + " " + s
}

// Count renders an integer with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Ago renders an RFC 3339 timestamp relative to now ("3 days ago"). Values
// that do not parse are returned as they are.
func Ago(ts string, now time.Time) string {
	if ts == "" {
		return "-"
	}
	t, err := time.Parse(time.RFC3339, ts)
	if err != nil {
		return ts
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

// MoneyField returns a column renderer for a money field of a record.
func MoneyField(key, currency string) func(api.Record) string {
	return func(r api.Record) string {
		if !r.Has(key) {
			return "-"
		}
		return Money(r.Float(key), currency)
	}
}

// AgoField returns a column renderer for a timestamp field.
func AgoField(key string, now func() time.Time) func(api.Record) string {
	return func(r api.Record) string {
		return Ago(r.String(key), now())
	}
}

// BoolField renders a boolean field as yes/no.
func BoolField(key string) func(api.Record) string {
	return func(r api.Record) string {
		if !r.Has(key) {
			return "-"
		}
		if r.Bool(key) {
			return "yes"
		}
		return "no"
	}
}
