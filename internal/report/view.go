package report

import (
	"fmt"
	"html/template"
	"io"

	"github.com/JakeFAU/crawl-console/internal/chart"
)

const panelsTemplate = `
{{define "sessions"}}<form class="session-picker" method="post" action="/reports/select">
  <select id="sessionSelect" name="session_id">
    {{- range .Sessions}}
    <option value="{{.ID}}"{{if .Selected}} selected{{end}}>{{.Label}}</option>
    {{- end}}
  </select>
  <button type="submit">Load</button>
  <button type="submit" formaction="/reports/sessions/refresh">Refresh</button>
</form>
<div id="sessionMeta" class="muted">{{.Meta}}</div>
{{end}}
{{define "chips"}}{{if .}}{{range .}}<span class="chip">{{.Label}}<strong>{{.Count}}</strong></span>{{end}}{{else}}<span class="muted">No data</span>{{end}}{{end}}
{{define "summary"}}<div class="report-summary">
  <div id="contentTypeList">
    {{- range .ContentTypes}}
    <div class="mini-card"><span>{{.Type}}</span><strong>{{.Count}}</strong><div class="bar"><div class="bar-fill" style="width:{{.Percent}}%"></div></div></div>
    {{- else}}{{with .ContentTypesHint}}<div class="muted">{{.}}</div>{{end}}{{end}}
  </div>
  <div><h4>Domains <span id="domainCount" class="muted">{{.DomainCount}}</span></h4><div id="domainList" class="chips-list">{{template "chips" .Domains}}</div></div>
  <div><h4>Topics <span id="keywordCount" class="muted">{{.TopicCount}}</span></h4><div id="keywordList" class="chips-list">{{template "chips" .Topics}}</div></div>
  <div><h4>Latest <span id="latestCount" class="muted">{{.LatestCount}}</span></h4>
    <div id="latestItems">
      {{- range .Latest}}
      <div class="timeline-item">
        <h5>{{.Title}}</h5>
        <div class="meta">{{.Meta}}</div>
        <div class="muted">{{.Description}}</div>
        {{- if .Keywords}}
        <div class="chips-list">{{range .Keywords}}<span class="chip">{{.}}</span>{{end}}</div>
        {{- end}}
      </div>
      {{- else}}{{with .LatestHint}}<div class="muted">{{.}}</div>{{end}}{{end}}
    </div>
  </div>
</div>
{{end}}
{{define "report"}}<div class="report-run">
  <form method="post" action="/reports/run">
    <textarea id="reportInstructions" name="instructions" placeholder="Guidance for the report"></textarea>
    <button id="generateReport" type="submit"{{if .ReportBusy}} disabled{{end}}>Generate report</button>
    <button type="submit" formaction="/reports/export">Export</button>
  </form>
  {{template "results" .}}
</div>
{{end}}
{{define "results"}}<div class="report-results">
  <pre id="reportOutput">{{.ReportOutput}}</pre>
  {{- with .ExportStatus}}
  <div id="exportStatus" class="muted">{{.}}</div>
  {{- end}}
  <div class="charts">
    <div id="contentTypeChart" class="chart">{{svg .ContentTypeChart}}</div>
    <div id="domainChart" class="chart">{{svg .DomainChart}}</div>
    <div id="keywordChart" class="chart">{{svg .TopicChart}}</div>
    <div id="timeChart" class="chart">{{svg .TimeChart}}</div>
  </div>
  <div id="gqmPanel">
    {{- range .Goals}}
    <div class="gqm-card">
      <h5>{{.Title}}</h5>
      <div class="gqm-goal">{{.Goal}}</div>
      {{- range .Questions}}
      <div class="gqm-question">{{.Text}}</div>
      {{- range .Metrics}}
      <div class="gqm-metric"><span>{{.Label}}</span><strong>{{.Value}}</strong></div>
      {{- end}}
      {{- end}}
    </div>
    {{- else}}<span class="muted">{{.GQMHint}}</span>{{end}}
  </div>
</div>
{{end}}
{{define "page"}}<div class="page-analysis">
  <form method="post" action="/reports/page">
    <select id="pageSelect" name="url">
      {{- range .Pages}}
      <option value="{{.URL}}">{{.Label}}</option>
      {{- end}}
    </select>
    <button id="analyzePage" type="submit"{{if .PageBusy}} disabled{{end}}>Analyze</button>
  </form>
  <div id="pageSummary">{{.PageSummary}}</div>
  <div id="pageInsights">
    {{- range .Insights}}
    <div class="insight-card"><h5>{{.Title}}</h5><div class="muted">{{.Detail}}</div>{{with .Evidence}}<div class="muted">{{.}}</div>{{end}}</div>
    {{- else}}{{with .InsightsHint}}<span class="muted">{{.}}</span>{{end}}{{end}}
  </div>
  <div id="pageCharts">
    {{- range .PageCharts}}
    <div class="chart-card"><h5>{{.Title}}</h5>{{embed .Chart}}</div>
    {{- else}}{{with .PageChartsHint}}<span class="muted">{{.}}</span>{{end}}{{end}}
  </div>
</div>
{{end}}
{{define "panels"}}<section id="reporting">
{{template "sessions" .}}{{template "summary" .}}{{template "report" .}}{{template "page" .}}</section>
{{end}}
{{define "document"}}<!doctype html>
<html lang="en">
<head><meta charset="utf-8"><title>Crawl report {{.SessionID}}</title></head>
<body>
<h1>Crawl report {{.SessionID}}</h1>
<p class="muted">{{.Meta}}</p>
<p class="muted">Generated {{.GeneratedAt}}</p>
{{template "summary" .Panels}}{{template "results" .Panels}}
</body>
</html>
{{end}}`

var views = template.Must(template.New("reports").Funcs(template.FuncMap{
	"svg":   chart.HTML,
	"embed": chart.Embed,
}).Parse(panelsTemplate))

// RenderPanels writes the reporting dashboard section.
func RenderPanels(w io.Writer, p Panels) error {
	if err := views.ExecuteTemplate(w, "panels", p); err != nil {
		return fmt.Errorf("render report panels: %w", err)
	}
	return nil
}

type document struct {
	Panels
	GeneratedAt string
}

func renderDocument(w io.Writer, doc document) error {
	if err := views.ExecuteTemplate(w, "document", doc); err != nil {
		return fmt.Errorf("render report document: %w", err)
	}
	return nil
}
