package report

import (
	"fmt"

	"github.com/JakeFAU/crawl-console/internal/chart"
	"github.com/JakeFAU/crawl-console/internal/format"
)

// Panel texts.
const (
	msgLoadingSessions = "Loading sessions…"
	msgLoadingSession  = "Loading session data…"
	msgNoSessions      = "No crawl sessions found yet."
	msgNoSessionOption = "No sessions"
	msgReady           = "Ready. Add guidance and generate a report."
	msgNeedDataset     = "Load a dataset first."
	msgGenerating      = "Generating report…"
	msgEmptyReport     = "LLM returned no content."
	msgReportDown      = "Reporting unavailable."
	msgChartsHint      = "Generate a report to render charts."
	msgGQMHint         = "Generate a report to render GQM metrics."
	msgSelectPage      = "Select an article to analyze."
	msgAnalyzing       = "Analyzing page..."
	msgNoPageSummary   = "No summary available for this page."
	msgNoInsights      = "No notable insights extracted."
	msgNoPageCharts    = "No chartable data found on this page."
	msgPageError       = "Page analysis error."
	msgNoPages         = "No pages"
	msgNoContentTypes  = "No data yet."
	msgNoRecent        = "No recent documents."
	msgNoChips         = "No data"

	maxPageCharts      = 3
	maxItemKeywords    = 6
	descriptionRunes   = 220
	pageLabelRunes     = 60
	defaultInsightName = "Insight"
	defaultGoalTitle   = "Goal"
)

// SessionOption is one entry of the session selector.
type SessionOption struct {
	ID       string
	Label    string
	Selected bool
}

// ContentTypeRow is one mini-card of the content-type breakdown.
type ContentTypeRow struct {
	Type    string
	Count   string
	Percent int
}

// Chip is a label with a count.
type Chip struct {
	Label string
	Count string
}

// TimelineEntry is one recent document.
type TimelineEntry struct {
	Title       string
	Meta        string
	Description string
	Keywords    []string
}

// PageOption is one entry of the page selector.
type PageOption struct {
	URL   string
	Label string
}

// MetricView is a formatted GQM metric.
type MetricView struct {
	Label string
	Value string
}

// QuestionView is a GQM question with its metrics.
type QuestionView struct {
	Text    string
	Metrics []MetricView
}

// GoalView is a GQM goal card.
type GoalView struct {
	Title     string
	Goal      string
	Questions []QuestionView
}

// InsightView is a page-analysis insight card.
type InsightView struct {
	Title    string
	Detail   string
	Evidence string
}

// PageChart is one rendered page-analysis chart.
type PageChart struct {
	Title string
	Chart chart.Config
}

// Panels is the complete reporting dashboard state. Slices are replaced,
// never mutated, so a shallow copy is a safe snapshot.
type Panels struct {
	Sessions  []SessionOption
	SessionID string
	Meta      string

	ContentTypes     []ContentTypeRow
	ContentTypesHint string
	Domains          []Chip
	DomainCount      string
	Topics           []Chip
	TopicCount       string
	Latest           []TimelineEntry
	LatestCount      string
	LatestHint       string
	Pages            []PageOption

	ReportOutput     string
	ReportBusy       bool
	ExportStatus     string
	ContentTypeChart chart.Drawing
	DomainChart      chart.Drawing
	TopicChart       chart.Drawing
	TimeChart        chart.Drawing
	Goals            []GoalView
	GQMHint          string

	PageSummary    string
	PageBusy       bool
	Insights       []InsightView
	InsightsHint   string
	PageCharts     []PageChart
	PageChartsHint string
}

func initialPanels() Panels {
	p := Panels{Sessions: []SessionOption{{Label: msgNoSessionOption}}}
	p.resetArtifacts()
	return p
}

// resetArtifacts returns every report-derived panel to its placeholder.
func (p *Panels) resetArtifacts() {
	p.ReportOutput = ""
	p.ReportBusy = false
	p.ExportStatus = ""
	p.ContentTypes, p.ContentTypesHint = nil, ""
	p.ContentTypeChart = chart.Message(msgChartsHint)
	p.DomainChart = chart.Message(msgChartsHint)
	p.TopicChart = chart.Message(msgChartsHint)
	p.TimeChart = chart.Message(msgChartsHint)
	p.Goals, p.GQMHint = nil, msgGQMHint
	p.resetPage(msgSelectPage)
}

func (p *Panels) resetPage(hint string) {
	p.PageSummary = msgSelectPage
	p.PageBusy = false
	p.Insights, p.InsightsHint = nil, ""
	p.PageCharts, p.PageChartsHint = nil, hint
}

func (p *Panels) clearSummaryLists() {
	p.ContentTypes, p.ContentTypesHint = nil, ""
	p.Domains, p.Topics, p.Latest = nil, nil, nil
	p.DomainCount, p.TopicCount, p.LatestCount, p.LatestHint = "", "", "", ""
}

func sessionOptions(sessions []Session, selected string) []SessionOption {
	if len(sessions) == 0 {
		return []SessionOption{{Label: msgNoSessionOption}}
	}
	out := make([]SessionOption, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, SessionOption{
			ID:       s.SessionID,
			Label:    fmt.Sprintf("%s · %s docs", s.SessionID, format.Number(s.Count)),
			Selected: s.SessionID == selected,
		})
	}
	return out
}

func sessionMeta(s Summary) string {
	start, end := format.NotAvailable, format.NotAvailable
	if s.TimeWindow.Start != "" {
		start = format.Date(s.TimeWindow.Start)
	}
	if s.TimeWindow.End != "" {
		end = format.Date(s.TimeWindow.End)
	}
	return fmt.Sprintf("Session %s · %s docs · %s → %s",
		s.SessionID, format.Number(float64(s.TotalItems)), start, end)
}

func contentTypeRows(items []ContentTypeCount) []ContentTypeRow {
	total := 0.0
	for _, it := range items {
		total += it.Count
	}
	out := make([]ContentTypeRow, 0, len(items))
	for _, it := range items {
		name := it.Type
		if name == "" {
			name = "unknown"
		}
		out = append(out, ContentTypeRow{Type: name, Count: format.Number(it.Count), Percent: format.Percent(it.Count, total)})
	}
	return out
}

func domainChips(items []DomainCount) []Chip {
	out := make([]Chip, 0, len(items))
	for _, it := range items {
		out = append(out, Chip{Label: it.Domain, Count: format.Number(it.Count)})
	}
	return out
}

func topicChips(items []TopicCount) []Chip {
	out := make([]Chip, 0, len(items))
	for _, it := range items {
		out = append(out, Chip{Label: it.Topic, Count: format.Number(it.Count)})
	}
	return out
}

func timeline(items []LatestItem) []TimelineEntry {
	out := make([]TimelineEntry, 0, len(items))
	for _, it := range items {
		ct := it.ContentType
		if ct == "" {
			ct = "unknown"
		}
		kw := it.Keywords
		if len(kw) > maxItemKeywords {
			kw = kw[:maxItemKeywords]
		}
		out = append(out, TimelineEntry{
			Title:       it.Title,
			Meta:        fmt.Sprintf("%s · %s", ct, it.URL),
			Description: format.Clip(it.Description, descriptionRunes),
			Keywords:    kw,
		})
	}
	return out
}

func pageOptions(items []LatestItem) []PageOption {
	if len(items) == 0 {
		return []PageOption{{Label: msgNoPages}}
	}
	out := make([]PageOption, 0, len(items))
	for _, it := range items {
		label := it.URL
		if it.Title != "" {
			label = format.Clip(it.Title, pageLabelRunes)
		}
		out = append(out, PageOption{URL: it.URL, Label: label})
	}
	return out
}

func goalViews(g *GQM) []GoalView {
	if g == nil {
		return nil
	}
	out := make([]GoalView, 0, len(g.Goals))
	for _, goal := range g.Goals {
		title := goal.Title
		if title == "" {
			title = defaultGoalTitle
		}
		gv := GoalView{Title: title, Goal: goal.Goal}
		for _, q := range goal.Questions {
			qv := QuestionView{Text: q.Text}
			for _, m := range q.Metrics {
				label := m.Label
				if label == "" {
					label = m.Key
				}
				qv.Metrics = append(qv.Metrics, MetricView{
					Label: label,
					Value: format.MetricValue(m.Value, m.Format) + format.MetricUnit(m.Unit, m.Format),
				})
			}
			gv.Questions = append(gv.Questions, qv)
		}
		out = append(out, gv)
	}
	return out
}

func insightViews(items []Insight) []InsightView {
	out := make([]InsightView, 0, len(items))
	for _, in := range items {
		if in.Text != "" {
			out = append(out, InsightView{Title: defaultInsightName, Detail: in.Text})
			continue
		}
		title := in.Title
		if title == "" {
			title = defaultInsightName
		}
		detail := in.Detail
		if detail == "" {
			detail = in.Description
		}
		out = append(out, InsightView{Title: title, Detail: detail, Evidence: in.Evidence})
	}
	return out
}

func pageCharts(descriptors []chart.Descriptor) []PageChart {
	if len(descriptors) > maxPageCharts {
		descriptors = descriptors[:maxPageCharts]
	}
	out := make([]PageChart, 0, len(descriptors))
	for i, d := range descriptors {
		title := d.Title
		if title == "" {
			title = fmt.Sprintf("Chart %d", i+1)
		}
		out = append(out, PageChart{Title: title, Chart: chart.Build(d)})
	}
	return out
}

func contentTypeItems(items []ContentTypeCount) []chart.Item {
	out := make([]chart.Item, 0, len(items))
	for _, it := range items {
		out = append(out, chart.Item{Label: it.Type, Value: it.Count})
	}
	return out
}

func domainItems(items []DomainCount) []chart.Item {
	out := make([]chart.Item, 0, len(items))
	for _, it := range items {
		out = append(out, chart.Item{Label: it.Domain, Value: it.Count})
	}
	return out
}

func topicItems(items []TopicCount) []chart.Item {
	out := make([]chart.Item, 0, len(items))
	for _, it := range items {
		out = append(out, chart.Item{Label: it.Topic, Value: it.Count})
	}
	return out
}

func histogramBuckets(items []HistogramBucket) []chart.Bucket {
	out := make([]chart.Bucket, 0, len(items))
	for _, it := range items {
		out = append(out, chart.Bucket{Key: it.Bucket, Count: it.Count})
	}
	return out
}
