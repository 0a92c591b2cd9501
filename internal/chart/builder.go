package chart

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// xFields are consulted in order for a point's category.
var xFields = []string{"x", "label", "year", "category"}

// XY is one coerced data point.
type XY struct {
	X string
	Y float64
}

// Dataset is one series of a Config.
type Dataset struct {
	Label  string
	Points []XY
	// Color applies to the whole series; Colors holds per-slice colors for pie.
	Color  string
	Colors []string
	Fill   bool
}

// Config is the backend-neutral chart configuration produced by Build.
type Config struct {
	Kind     Kind
	Title    string
	XLabel   string
	YLabel   string
	Datasets []Dataset
}

// Categories returns the union of x values across datasets in first-seen
// order. An x repeated within one dataset gets as many slots as its largest
// repeat count.
func (c Config) Categories() []string {
	slots := make(map[string]int)
	var out []string
	for _, ds := range c.Datasets {
		seen := make(map[string]int)
		for _, p := range ds.Points {
			seen[p.X]++
			if seen[p.X] > slots[p.X] {
				slots[p.X]++
				out = append(out, p.X)
			}
		}
	}
	return out
}

// Points counts the data points across datasets.
func (c Config) Points() int {
	n := 0
	for _, ds := range c.Datasets {
		n += len(ds.Points)
	}
	return n
}

// Build maps a descriptor to a Config. Pie charts use only the first series;
// area charts become filled line charts.
func Build(d Descriptor) Config {
	kind := ParseKind(d.Type)
	cfg := Config{Title: d.Title, XLabel: d.XLabel, YLabel: d.YLabel}

	if kind == KindPie {
		cfg.Kind = KindPie
		var first Series
		if len(d.Series) > 0 {
			first = d.Series[0]
		}
		ds := Dataset{Label: first.Name, Points: normalize(first.Data)}
		for i := range ds.Points {
			ds.Colors = append(ds.Colors, ColorAt(i))
		}
		cfg.Datasets = []Dataset{ds}
		return cfg
	}

	cfg.Kind = kind
	if kind == KindArea {
		cfg.Kind = KindLine
	}
	for i, s := range d.Series {
		name := s.Name
		if name == "" {
			name = fmt.Sprintf("Series %d", i+1)
		}
		cfg.Datasets = append(cfg.Datasets, Dataset{
			Label:  name,
			Points: normalize(s.Data),
			Color:  ColorAt(i),
			Fill:   kind == KindArea,
		})
	}
	return cfg
}

func normalize(points []Point) []XY {
	out := make([]XY, 0, len(points))
	for _, p := range points {
		y, ok := coerceY(p["y"])
		if !ok {
			continue
		}
		out = append(out, XY{X: coerceX(p), Y: y})
	}
	return out
}

func coerceX(p Point) string {
	for _, key := range xFields {
		raw, ok := p[key]
		if !ok || isNull(raw) {
			continue
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			return s
		}
		return strings.TrimSpace(string(raw))
	}
	return ""
}

// coerceY converts a y value the way a numeric cast would: null, false and
// blank strings are 0, true is 1, numeric strings parse. A missing value,
// objects, arrays and non-numeric strings are dropped.
func coerceY(raw json.RawMessage) (float64, bool) {
	if len(raw) == 0 {
		return 0, false
	}
	if isNull(raw) {
		return 0, true
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, true
	}
	var b bool
	if err := json.Unmarshal(raw, &b); err == nil {
		if b {
			return 1, true
		}
		return 0, true
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, false
	}
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, true
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}
