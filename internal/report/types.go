package report

import (
	"bytes"
	"encoding/json"

	"github.com/JakeFAU/crawl-console/internal/chart"
)

// Session is one entry of the session listing.
type Session struct {
	SessionID     string   `json:"session_id"`
	Count         float64  `json:"count"`
	LastTimestamp string   `json:"last_timestamp"`
	SampleURL     string   `json:"sample_url"`
	TopKeywords   []string `json:"top_keywords"`
}

// TimeWindow bounds the documents of a session.
type TimeWindow struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// ContentTypeCount is one row of the content-type breakdown.
type ContentTypeCount struct {
	Type  string  `json:"type"`
	Count float64 `json:"count"`
}

// DomainCount is one top-domain entry.
type DomainCount struct {
	Domain string  `json:"domain"`
	Count  float64 `json:"count"`
}

// TopicCount is one top-topic entry.
type TopicCount struct {
	Topic string  `json:"topic"`
	Count float64 `json:"count"`
}

// HistogramBucket counts documents per "YYYY-MM-DD HH:MM" bucket.
type HistogramBucket struct {
	Bucket string  `json:"bucket"`
	Count  float64 `json:"count"`
}

// LatestItem is one document of the recent-items timeline.
type LatestItem struct {
	Title       string   `json:"title"`
	URL         string   `json:"url"`
	Description string   `json:"description"`
	ContentType string   `json:"content_type"`
	Keywords    []string `json:"keywords"`
	Timestamp   string   `json:"timestamp"`
}

// Metric is a computed GQM measurement.
type Metric struct {
	Key    string   `json:"key"`
	Label  string   `json:"label"`
	Value  *float64 `json:"value"`
	Unit   string   `json:"unit"`
	Format string   `json:"format"`
}

// Question groups the metrics answering it.
type Question struct {
	ID      string   `json:"id"`
	Text    string   `json:"text"`
	Metrics []Metric `json:"metrics"`
}

// Goal is a Goal-Question-Metric goal.
type Goal struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Goal      string     `json:"goal"`
	Questions []Question `json:"questions"`
}

// GQM is the Goal-Question-Metric block of a summary.
type GQM struct {
	Goals []Goal `json:"goals"`
}

// Quantity is a count sent either as a bare number or as a metric object
// carrying a "value" member.
type Quantity float64

// UnmarshalJSON accepts a number, {"value": number} or null.
func (q *Quantity) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*q = 0
		return nil
	}
	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		*q = Quantity(n)
		return nil
	}
	var m struct {
		Value *float64 `json:"value"`
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return err
	}
	*q = 0
	if m.Value != nil {
		*q = Quantity(*m.Value)
	}
	return nil
}

// Summary is the pre-aggregated view of one crawl session.
type Summary struct {
	SessionID     string             `json:"session_id"`
	TotalItems    Quantity           `json:"total_items"`
	RawTotalItems float64            `json:"raw_total_items"`
	NewsScope     string             `json:"news_scope"`
	TimeWindow    TimeWindow         `json:"time_window"`
	ContentTypes  []ContentTypeCount `json:"content_types"`
	TopDomains    []DomainCount      `json:"top_domains"`
	TopTopics     []TopicCount       `json:"top_topics"`
	TimeHistogram []HistogramBucket  `json:"time_histogram"`
	LatestItems   []LatestItem       `json:"latest_items"`
	GQM           *GQM               `json:"gqm"`
}

// Insight is a page-analysis finding. The backend sends either a bare string
// (Text) or an object.
type Insight struct {
	Text        string `json:"-"`
	Title       string `json:"title"`
	Detail      string `json:"detail"`
	Description string `json:"description"`
	Evidence    string `json:"evidence"`
}

// UnmarshalJSON accepts a string or an object.
func (i *Insight) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*i = Insight{Text: s}
		return nil
	}
	type plain Insight
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*i = Insight(p)
	return nil
}

// PageAnalysis is the response of a single-page analysis.
type PageAnalysis struct {
	Summary  string
	Insights []Insight
	Charts   []chart.Descriptor
}

// UnmarshalJSON skips insights and charts that do not decode.
func (p *PageAnalysis) UnmarshalJSON(data []byte) error {
	var raw struct {
		Summary  json.RawMessage `json:"summary"`
		Insights json.RawMessage `json:"insights"`
		Charts   json.RawMessage `json:"charts"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*p = PageAnalysis{Charts: chart.DecodeDescriptors(raw.Charts)}
	_ = json.Unmarshal(raw.Summary, &p.Summary)
	var elems []json.RawMessage
	if json.Unmarshal(raw.Insights, &elems) == nil {
		for _, elem := range elems {
			if bytes.Equal(bytes.TrimSpace(elem), []byte("null")) {
				continue
			}
			var in Insight
			if json.Unmarshal(elem, &in) == nil {
				p.Insights = append(p.Insights, in)
			}
		}
	}
	return nil
}
