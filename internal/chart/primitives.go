package chart

import (
	"fmt"
	"math"

	"github.com/JakeFAU/crawl-console/internal/format"
)

const (
	canvasWidth = 260.0

	pieHeight    = 200.0
	pieRadius    = 70.0
	pieMaxItems  = 6
	pieLegendX   = 155.0
	pieLegendY   = 30.0
	pieLegendGap = 18.0

	barPadding    = 14.0
	barLabelWidth = 110.0
	barValueWidth = 36.0
	barHeight     = 16.0
	barGap        = 10.0
	barMinHeight  = 140.0
	barTitleSpace = 14.0
	barLabelLimit = 16
	barLabelKeep  = 14
	barTrackColor = "#f3ebe3"
	barRadius     = 6.0

	// DefaultBarItems is the HBar cap used when maxItems <= 0.
	DefaultBarItems = 6

	histHeight     = 200.0
	histPadding    = 24.0
	histGap        = 8.0
	histMaxBuckets = 8
	histColor      = "#7fb7be"
	histDatePrefix = 11 // runes in "YYYY-MM-DD "

	unknownLabel = "unknown"
)

func labelOf(s string) string {
	if s == "" {
		return unknownLabel
	}
	return s
}

func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Pie draws the first six items as wedges starting at twelve o'clock. Shares
// are taken against the total of all items, so a capped pie leaves a gap. The
// legend shows each label with its count and rounded share.
// A single item is drawn as a full disc with a centered label.
func Pie(items []Item) Drawing {
	if len(items) == 0 {
		return Message(NoData)
	}
	total := 0.0
	for _, it := range items {
		total += finite(it.Value)
	}
	shown := items
	if len(shown) > pieMaxItems {
		shown = shown[:pieMaxItems]
	}
	if total == 0 {
		total = 1
	}

	cx, cy := canvasWidth/2, pieHeight/2
	scene := &Scene{Width: canvasWidth, Height: pieHeight}

	if len(shown) == 1 {
		value := finite(shown[0].Value)
		scene.add(
			Circle{CX: cx, CY: cy, R: pieRadius, Fill: ColorAt(0)},
			Text{X: cx, Y: cy, Class: "chart-title", Anchor: "middle",
				Value: fmt.Sprintf("%s %s (100%%)", labelOf(shown[0].Label), format.Number(value))},
		)
		return Drawing{Scene: scene}
	}

	var legend []Element
	start := -math.Pi / 2
	for i, it := range shown {
		value := finite(it.Value)
		end := start + value/total*2*math.Pi
		scene.add(Slice{CX: cx, CY: cy, R: pieRadius, Start: start, End: end, Fill: ColorAt(i)})
		legend = append(legend, Text{
			X:     pieLegendX,
			Y:     pieLegendY + float64(i)*pieLegendGap,
			Class: "chart-label",
			Value: fmt.Sprintf("%s %s (%d%%)", labelOf(it.Label), format.Number(value), format.Percent(value, total)),
		})
		start = end
	}
	scene.add(legend...)
	return Drawing{Scene: scene}
}

// HBar draws up to maxItems horizontal bars scaled against the largest shown
// value (at least 1), each over a full-width track.
func HBar(items []Item, title string, maxItems int) Drawing {
	if len(items) == 0 {
		return Message(NoData)
	}
	if maxItems <= 0 {
		maxItems = DefaultBarItems
	}
	list := items
	if len(list) > maxItems {
		list = list[:maxItems]
	}

	titleSpace := 0.0
	if title != "" {
		titleSpace = barTitleSpace
	}
	content := float64(len(list))*(barHeight+barGap) - barGap
	height := math.Max(barMinHeight, content+barPadding*2+titleSpace)
	maxValue := 1.0
	for _, it := range list {
		maxValue = math.Max(maxValue, finite(it.Value))
	}
	track := canvasWidth - barPadding*2 - barLabelWidth - barValueWidth
	startY := barPadding + titleSpace

	scene := &Scene{Width: canvasWidth, Height: height}
	if title != "" {
		scene.add(Text{X: barPadding, Y: 12, Class: "chart-title", Value: title})
	}
	var bars, labels, values []Element
	for i, it := range list {
		value := finite(it.Value)
		x := barPadding + barLabelWidth
		y := startY + float64(i)*(barHeight+barGap)
		bars = append(bars,
			Rect{X: x, Y: y, W: track, H: barHeight, RX: barRadius, Fill: barTrackColor},
			Rect{X: x, Y: y, W: value / maxValue * track, H: barHeight, RX: barRadius, Fill: ColorAt(i)},
		)
		labels = append(labels, Text{
			X: barPadding, Y: y + barHeight - 2, Class: "chart-label",
			Value: format.Truncate(labelOf(it.Label), barLabelLimit, barLabelKeep),
		})
		values = append(values, Text{
			X: canvasWidth - barPadding, Y: y + barHeight - 2, Class: "chart-label", Anchor: "end",
			Value: format.Number(value),
		})
	}
	scene.add(bars...)
	scene.add(labels...)
	scene.add(values...)
	return Drawing{Scene: scene}
}

// Histogram draws the last eight buckets in their given order with heights
// proportional to the largest count (at least 1). Axis labels drop the date
// prefix of each key.
func Histogram(buckets []Bucket) Drawing {
	if len(buckets) == 0 {
		return Message(NoData)
	}
	shown := buckets
	if len(shown) > histMaxBuckets {
		shown = shown[len(shown)-histMaxBuckets:]
	}

	chartWidth := canvasWidth - histPadding*2
	chartHeight := histHeight - histPadding*2
	maxValue := 1.0
	for _, b := range shown {
		maxValue = math.Max(maxValue, finite(b.Count))
	}
	n := float64(len(shown))
	barWidth := (chartWidth - histGap*(n-1)) / n

	scene := &Scene{Width: canvasWidth, Height: histHeight}
	var bars, values, labels []Element
	for i, b := range shown {
		value := finite(b.Count)
		h := value / maxValue * chartHeight
		x := histPadding + float64(i)*(barWidth+histGap)
		y := histHeight - histPadding - h
		bars = append(bars, Rect{X: x, Y: y, W: barWidth, H: h, RX: barRadius, Fill: histColor})
		values = append(values, Text{
			X: x + barWidth/2, Y: y - 6, Class: "chart-label", Anchor: "middle",
			Value: format.Number(value),
		})
		labels = append(labels, Text{
			X: x + barWidth/2, Y: histHeight - 6, Class: "chart-label", Anchor: "middle",
			Value: bucketLabel(b.Key),
		})
	}
	scene.add(bars...)
	scene.add(values...)
	scene.add(labels...)
	return Drawing{Scene: scene}
}

func bucketLabel(key string) string {
	runes := []rune(key)
	if len(runes) <= histDatePrefix {
		return key
	}
	return string(runes[histDatePrefix:])
}
