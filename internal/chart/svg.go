package chart

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"math"
	"strconv"
)

// Paint writes the drawing as an inline SVG element, or the placeholder as a
// muted span.
func Paint(w io.Writer, d Drawing) error {
	if d.Empty() {
		msg := d.Placeholder
		if msg == "" {
			msg = NoData
		}
		_, err := fmt.Fprintf(w, `<span class="muted">%s</span>`, template.HTMLEscapeString(msg))
		return err
	}
	s := d.Scene
	var buf bytes.Buffer
	fmt.Fprintf(&buf, `<svg viewBox="0 0 %s %s" role="img" aria-label="Chart">`, coord(s.Width), coord(s.Height))
	for _, el := range s.Elements {
		paintElement(&buf, el)
	}
	buf.WriteString(`</svg>`)
	_, err := w.Write(buf.Bytes())
	return err
}

// HTML paints d into a string safe to embed in templates.
func HTML(d Drawing) template.HTML {
	var buf bytes.Buffer
	if err := Paint(&buf, d); err != nil {
		return template.HTML(`<span class="muted">` + template.HTMLEscapeString(RenderError) + `</span>`)
	}
	return template.HTML(buf.String()) //nolint:gosec // every interpolated value is escaped in paintElement
}

func paintElement(buf *bytes.Buffer, el Element) {
	switch e := el.(type) {
	case Slice:
		x1, y1 := e.CX+e.R*math.Cos(e.Start), e.CY+e.R*math.Sin(e.Start)
		x2, y2 := e.CX+e.R*math.Cos(e.End), e.CY+e.R*math.Sin(e.End)
		large := 0
		if e.LargeArc() {
			large = 1
		}
		fmt.Fprintf(buf, `<path d="M %s %s L %s %s A %s %s 0 %d 1 %s %s Z" fill="%s" />`,
			coord(e.CX), coord(e.CY), coord(x1), coord(y1), coord(e.R), coord(e.R),
			large, coord(x2), coord(y2), attr(e.Fill))
	case Circle:
		fmt.Fprintf(buf, `<circle cx="%s" cy="%s" r="%s" fill="%s" />`,
			coord(e.CX), coord(e.CY), coord(e.R), attr(e.Fill))
	case Rect:
		fmt.Fprintf(buf, `<rect x="%s" y="%s" width="%s" height="%s" fill="%s" rx="%s" />`,
			coord(e.X), coord(e.Y), coord(e.W), coord(e.H), attr(e.Fill), coord(e.RX))
	case Text:
		fmt.Fprintf(buf, `<text class="%s" x="%s" y="%s"`, attr(e.Class), coord(e.X), coord(e.Y))
		if e.Anchor != "" {
			fmt.Fprintf(buf, ` text-anchor="%s"`, attr(e.Anchor))
		}
		fmt.Fprintf(buf, `>%s</text>`, template.HTMLEscapeString(e.Value))
	}
}

func attr(s string) string { return template.HTMLEscapeString(s) }

func coord(v float64) string {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		v = 0
	}
	return strconv.FormatFloat(math.Round(v*100)/100, 'f', -1, 64)
}
