package format

import (
	"fmt"
	"math"
)

// Metric formats understood by MetricValue.
const (
	MetricNumber  = "number"
	MetricPercent = "percent"
	MetricHours   = "hours"
	MetricFloat1  = "float1"
	MetricFloat2  = "float2"
	MetricFloat3  = "float3"
)

// MetricValue renders a GQM metric value according to its declared format.
// A nil value (missing or non-numeric in the payload) renders as "n/a".
func MetricValue(value *float64, format string) string {
	if value == nil || math.IsNaN(*value) {
		return NotAvailable
	}
	v := *value
	switch format {
	case MetricPercent:
		return fmt.Sprintf("%.1f%%", v*100)
	case MetricHours:
		return fmt.Sprintf("%.2fh", v)
	case MetricFloat1:
		return fmt.Sprintf("%.1f", v)
	case MetricFloat2:
		return fmt.Sprintf("%.2f", v)
	case MetricFloat3:
		return fmt.Sprintf("%.3f", v)
	default:
		return Number(v)
	}
}

// MetricUnit returns the unit suffix shown after a metric value. Percent
// metrics already carry their sign.
func MetricUnit(unit, format string) string {
	if unit == "" || format == MetricPercent {
		return ""
	}
	return " " + unit
}
