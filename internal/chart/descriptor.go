package chart

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
)

// Kind is a generic chart type.
type Kind string

// Supported kinds. Anything else builds as a bar chart.
const (
	KindBar  Kind = "bar"
	KindLine Kind = "line"
	KindArea Kind = "area"
	KindPie  Kind = "pie"
)

// ParseKind lowercases s and falls back to KindBar for empty or unknown input.
func ParseKind(s string) Kind {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindBar, KindLine, KindArea, KindPie:
		return k
	default:
		return KindBar
	}
}

// Point keeps the raw JSON members of one data point; coercion is the
// builder's job.
type Point map[string]json.RawMessage

// Series is one named list of points.
type Series struct {
	Name string  `json:"name"`
	Data []Point `json:"data"`
}

// Descriptor is a chart proposed by page analysis.
type Descriptor struct {
	Type   string   `json:"type"`
	Title  string   `json:"title"`
	XLabel string   `json:"x_label"`
	YLabel string   `json:"y_label"`
	Series []Series `json:"series"`
}

var errNotObject = errors.New("chart descriptor is not an object")

// UnmarshalJSON decodes leniently: non-string text fields read as empty and
// non-object series or points are skipped.
func (d *Descriptor) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil || raw == nil {
		return errNotObject
	}
	*d = Descriptor{
		Type:   rawString(raw["type"]),
		Title:  rawString(raw["title"]),
		XLabel: rawString(raw["x_label"]),
		YLabel: rawString(raw["y_label"]),
	}
	for _, elem := range rawArray(raw["series"]) {
		var fields map[string]json.RawMessage
		if err := json.Unmarshal(elem, &fields); err != nil || fields == nil {
			continue
		}
		s := Series{Name: rawString(fields["name"])}
		for _, p := range rawArray(fields["data"]) {
			var pt Point
			if err := json.Unmarshal(p, &pt); err != nil || pt == nil {
				continue
			}
			s.Data = append(s.Data, pt)
		}
		d.Series = append(d.Series, s)
	}
	return nil
}

// DecodeDescriptors reads a JSON array of descriptors, skipping elements that
// are not objects. Anything other than an array yields nil.
func DecodeDescriptors(raw json.RawMessage) []Descriptor {
	var out []Descriptor
	for _, elem := range rawArray(raw) {
		var d Descriptor
		if err := json.Unmarshal(elem, &d); err != nil {
			continue
		}
		out = append(out, d)
	}
	return out
}

func rawArray(raw json.RawMessage) []json.RawMessage {
	var elems []json.RawMessage
	if err := json.Unmarshal(raw, &elems); err != nil {
		return nil
	}
	return elems
}

func rawString(raw json.RawMessage) string {
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

func isNull(raw json.RawMessage) bool {
	return len(raw) == 0 || bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
