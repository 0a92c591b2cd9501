// Package chart turns report aggregates into drawings. The primitive
// renderers (Pie, HBar, Histogram) build a Scene that Paint serialises as SVG;
// the generic builder turns a page-analysis Descriptor into a backend-neutral
// Config that RenderConfig hands to go-echarts.
package chart

import "math"

// Placeholder texts.
const (
	NoData      = "No data"
	RenderError = "Unable to render chart."
)

// Palette colors are assigned by item index, wrapping around.
var Palette = []string{"#f05d5e", "#f8b45b", "#7fb7be", "#c5d86d", "#9b5de5", "#4d908e", "#ff7b00"}

// ColorAt returns the palette color for index i.
func ColorAt(i int) string {
	if i < 0 {
		i = -i
	}
	return Palette[i%len(Palette)]
}

// Item is one labelled value fed to Pie or HBar.
type Item struct {
	Label string
	Value float64
}

// Bucket is one time-histogram bin keyed "YYYY-MM-DD HH:MM".
type Bucket struct {
	Key   string
	Count float64
}

// Element is a primitive a Scene is composed of.
type Element interface {
	element()
}

// Slice is a pie wedge from Start to End radians, clockwise.
type Slice struct {
	CX, CY, R  float64
	Start, End float64
	Fill       string
}

// Span is the wedge angle in radians.
func (s Slice) Span() float64 { return s.End - s.Start }

// LargeArc reports whether the wedge spans more than half the circle.
func (s Slice) LargeArc() bool { return s.Span() > math.Pi }

// Circle is a filled disc.
type Circle struct {
	CX, CY, R float64
	Fill      string
}

// Rect is a rounded rectangle.
type Rect struct {
	X, Y, W, H float64
	RX         float64
	Fill       string
}

// Text is a label. Anchor is empty, "middle" or "end".
type Text struct {
	X, Y   float64
	Class  string
	Anchor string
	Value  string
}

func (Slice) element()  {}
func (Circle) element() {}
func (Rect) element()   {}
func (Text) element()   {}

// Scene is a fixed-size canvas of elements painted in order.
type Scene struct {
	Width, Height float64
	Elements      []Element
}

// Drawing is either a Scene or a placeholder message.
type Drawing struct {
	Scene       *Scene
	Placeholder string
}

// Empty reports whether the drawing is a placeholder.
func (d Drawing) Empty() bool { return d.Scene == nil }

// Message is a placeholder drawing showing text.
func Message(text string) Drawing { return Drawing{Placeholder: text} }

func (s *Scene) add(el ...Element) { s.Elements = append(s.Elements, el...) }

// Texts returns the scene's text values in paint order.
func (s *Scene) Texts() []string {
	var out []string
	for _, el := range s.Elements {
		if t, ok := el.(Text); ok {
			out = append(out, t.Value)
		}
	}
	return out
}
