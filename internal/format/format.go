// Package format turns raw numeric and temporal values into display strings
// shared by the job list and the reporting panels.
package format

import (
	"fmt"
	"math"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
)

// Ellipsis marks a truncated label.
const Ellipsis = "…"

// NotAvailable is shown for values that are missing or unparseable.
const NotAvailable = "n/a"

// Number renders v with thousands separators. Whole numbers have no fraction;
// other values keep up to three fractional digits. NaN and Inf render as "0".
func Number(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return "0"
	}
	if v == math.Trunc(v) && math.Abs(v) < 1<<53 {
		return humanize.Comma(int64(v))
	}
	return humanize.CommafWithDigits(v, 3)
}

// Count renders an integer counter with thousands separators.
func Count(n int64) string {
	return humanize.Comma(n)
}

// Rate renders a pages-per-second figure with two decimals.
func Rate(v float64) string {
	if v == 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return "0.00"
	}
	return fmt.Sprintf("%.2f", v)
}

// Duration renders whole seconds as "42s" or "3m 5s".
func Duration(seconds float64) string {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "0s"
	}
	mins := int64(math.Floor(seconds / 60))
	secs := int64(math.Floor(math.Mod(seconds, 60)))
	if mins <= 0 {
		return fmt.Sprintf("%ds", secs)
	}
	return fmt.Sprintf("%dm %ds", mins, secs)
}

var isoLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999",
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
}

// ParseISO accepts the timestamp shapes the reporting backend emits.
func ParseISO(raw string) (time.Time, bool) {
	raw = strings.TrimSpace(raw)
	for _, layout := range isoLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Date renders an ISO timestamp in the console's local layout. Empty input
// yields "n/a"; unparseable input is returned unchanged.
func Date(iso string) string {
	if strings.TrimSpace(iso) == "" {
		return NotAvailable
	}
	t, ok := ParseISO(iso)
	if !ok {
		return iso
	}
	return t.Local().Format("2006-01-02 15:04:05")
}

// Percent rounds part/total to a whole percentage, half away from zero for
// positive shares. A zero total yields 0.
func Percent(part, total float64) int {
	if total == 0 || math.IsNaN(part) || math.IsNaN(total) {
		return 0
	}
	return int(math.Floor(part/total*100 + 0.5))
}

// Truncate shortens s to keep runes plus an ellipsis when it is longer than
// limit runes.
func Truncate(s string, limit, keep int) string {
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	if keep > len(runes) {
		keep = len(runes)
	}
	return string(runes[:keep]) + Ellipsis
}

// Clip cuts s to at most n runes without a marker.
func Clip(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n])
}

// Plural picks the singular or plural noun for n.
func Plural(n int, singular, plural string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, singular)
	}
	return fmt.Sprintf("%d %s", n, plural)
}
