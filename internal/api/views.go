package api

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/JakeFAU/crawl-console/internal/jobs"
	"github.com/JakeFAU/crawl-console/internal/report"
	"github.com/JakeFAU/crawl-console/internal/stream"
)

// contentTypeChoices are offered by the start form.
var contentTypeChoices = []string{"html", "pdf", "json", "xml"}

const pageTemplate = `
{{define "status"}}<span id="connectionStatus" class="status{{if eq .String "live"}} live{{end}}">{{.Label}}</span>{{end}}
{{define "jobs"}}<div id="jobsPanel">
{{.Overview}}
<div id="jobsList">{{if .Empty}}<div class="muted">No crawl jobs yet.</div>{{else}}{{.List}}{{end}}</div>
</div>{{end}}
{{define "dashboard"}}<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<title>Crawl console</title>
</head>
<body>
<header><h1>Crawl console</h1>{{template "status" .Status}}</header>
<section id="start">
  <form id="startForm" method="post" action="/jobs">
    <input id="urlInput" name="url" type="url" placeholder="https://example.com" required>
    <input id="maxPagesInput" name="max_pages" type="number" min="1" value="5">
    {{- range .ContentTypes}}
    <label><input type="checkbox" name="content_types" value="{{.}}"{{if eq . "html"}} checked{{end}}> {{.}}</label>
    {{- end}}
    <input id="keywordsInput" name="keywords" placeholder="keywords, comma or space separated">
    <button type="submit">Start crawl</button>
  </form>
</section>
<section id="jobs">{{template "jobs" .JobsView}}</section>
{{.Reports}}
{{- if not .Export}}<p class="muted">Report export is disabled.</p>{{end}}
</body>
</html>
{{end}}`

var views = template.Must(template.New("console").Parse(pageTemplate))

type dashboardPage struct {
	Status  stream.State
	Jobs    []jobs.Record
	Totals  jobs.Aggregates
	Reports report.Panels
	Export  bool
	Now     time.Time
}

type jobsView struct {
	Overview template.HTML
	List     template.HTML
	Empty    bool
}

func buildJobsView(records []jobs.Record, totals jobs.Aggregates, now time.Time) (jobsView, error) {
	var overview, list bytes.Buffer
	if err := jobs.RenderOverview(&overview, totals); err != nil {
		return jobsView{}, err
	}
	if err := jobs.RenderList(&list, records, now); err != nil {
		return jobsView{}, err
	}
	// Both fragments come from html/template and are already escaped.
	return jobsView{
		Overview: template.HTML(overview.String()), //nolint:gosec
		List:     template.HTML(list.String()),     //nolint:gosec
		Empty:    len(records) == 0,
	}, nil
}

func renderDashboard(w io.Writer, page dashboardPage) error {
	jv, err := buildJobsView(page.Jobs, page.Totals, page.Now)
	if err != nil {
		return err
	}
	var reports bytes.Buffer
	if err := report.RenderPanels(&reports, page.Reports); err != nil {
		return err
	}
	data := struct {
		Status       stream.State
		ContentTypes []string
		JobsView     jobsView
		Reports      template.HTML
		Export       bool
	}{
		Status:       page.Status,
		ContentTypes: contentTypeChoices,
		JobsView:     jv,
		Reports:      template.HTML(reports.String()), //nolint:gosec
		Export:       page.Export,
	}
	return execute(w, "dashboard", data)
}

func renderJobs(w io.Writer, records []jobs.Record, totals jobs.Aggregates, now time.Time) error {
	jv, err := buildJobsView(records, totals, now)
	if err != nil {
		return err
	}
	return execute(w, "jobs", jv)
}

func renderStatus(w io.Writer, state stream.State) error {
	return execute(w, "status", state)
}

// execute renders into a buffer first so a failing template never leaves a
// half-written response.
func execute(w io.Writer, name string, data any) error {
	var buf bytes.Buffer
	if err := views.ExecuteTemplate(&buf, name, data); err != nil {
		return fmt.Errorf("render %s: %w", name, err)
	}
	_, err := w.Write(buf.Bytes())
	return err
}
