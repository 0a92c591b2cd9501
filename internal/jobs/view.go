package jobs

import (
	"fmt"
	"html/template"
	"io"
	"time"

	"github.com/JakeFAU/crawl-console/internal/format"
)

const listTemplate = `
{{define "job"}}<div class="job" data-job-id="{{.JobID}}">
  <div class="job-head">
    <div>
      <h3 class="job-title">{{.URL}}</h3>
      <div class="job-meta">job {{.JobID}} · max {{.MaxPages}} pages</div>
    </div>
    <form class="actions" method="post">
      <span class="badge {{.Status}}">{{.Status}}</span>
      <button class="action-btn" data-action="{{.PauseAction}}" formaction="/jobs/{{.JobID}}/{{.PauseAction}}">{{.PauseLabel}}</button>
      <button class="action-btn stop" data-action="stop" formaction="/jobs/{{.JobID}}/stop">Stop</button>
      <button class="action-btn" data-action="delete" formaction="/jobs/{{.JobID}}/delete">Delete</button>
    </form>
  </div>
  <div class="job-grid">
    <div class="job-stat"><span>Pages/sec</span><strong>{{.Rate}}</strong></div>
    <div class="job-stat"><span>Attempted</span><strong>{{.Attempted}}</strong></div>
    <div class="job-stat"><span>Collected</span><strong>{{.Collected}}</strong></div>
    <div class="job-stat"><span>Errors</span><strong>{{.Errors}}</strong></div>
    <div class="job-stat"><span>Queue</span><strong>{{.Queue}}</strong></div>
    <div class="job-stat"><span>Uptime</span><strong>{{.Uptime}}</strong></div>
    <div class="job-stat"><span>Last URL</span><strong class="mono">{{.LastURL}}</strong></div>
    {{- if .LastError}}
    <div class="job-stat"><span>Last error</span><strong class="mono">{{.LastError}}</strong></div>
    {{- end}}
  </div>
</div>
{{end}}
{{define "list"}}{{range .}}{{template "job" .}}{{end}}{{end}}
{{define "overview"}}<div class="overview">
  <div class="stat"><span>Running</span><strong id="statRunning">{{.Running}}</strong></div>
  <div class="stat"><span>Paused</span><strong id="statPaused">{{.Paused}}</strong></div>
  <div class="stat"><span>Stopped</span><strong id="statStopped">{{.Stopped}}</strong></div>
  <div class="stat"><span>Pages</span><strong id="statPages">{{.Pages}}</strong></div>
  <span id="jobsCount" class="muted">{{.JobsLabel}}</span>
</div>
{{end}}`

var views = template.Must(template.New("jobs").Parse(listTemplate))

// Card is the display model of one job.
type Card struct {
	JobID       string
	URL         string
	Status      Status
	MaxPages    int64
	PauseAction string
	PauseLabel  string
	Rate        string
	Attempted   string
	Collected   string
	Errors      string
	Queue       string
	Uptime      string
	LastURL     string
	LastError   string
}

// Overview is the display model of the aggregate counters.
type Overview struct {
	Running   string
	Paused    string
	Stopped   string
	Pages     string
	JobsLabel string
}

// NewCard builds the display model for rec. now drives the uptime column.
func NewCard(rec Record, now time.Time) Card {
	card := Card{
		JobID:       rec.JobID,
		URL:         rec.URL,
		Status:      rec.Status,
		MaxPages:    rec.MaxPages,
		PauseAction: "pause",
		PauseLabel:  "Pause",
		Rate:        format.Rate(rec.PagesPerSec),
		Attempted:   format.Count(rec.PagesAttempted),
		Collected:   format.Count(rec.PagesSuccess),
		Errors:      format.Count(rec.Errors),
		Queue:       format.Count(rec.QueueSize),
		Uptime:      format.Duration(0),
		LastURL:     rec.LastURL,
		LastError:   rec.LastError,
	}
	if rec.Status == StatusPaused {
		card.PauseAction = "resume"
		card.PauseLabel = "Resume"
	}
	if rec.StartTime != nil && *rec.StartTime > 0 {
		nowSec := float64(now.UnixNano()) / float64(time.Second)
		card.Uptime = format.Duration(nowSec - *rec.StartTime)
	}
	if card.LastURL == "" {
		card.LastURL = "-"
	}
	return card
}

// NewOverview builds the display model for the counters.
func NewOverview(agg Aggregates) Overview {
	return Overview{
		Running:   format.Number(float64(agg.Running)),
		Paused:    format.Number(float64(agg.Paused)),
		Stopped:   format.Number(float64(agg.Stopped)),
		Pages:     format.Count(agg.TotalPages),
		JobsLabel: format.Plural(agg.Jobs, "job", "jobs"),
	}
}

// RenderList writes the job cards for records in the given order.
func RenderList(w io.Writer, records []Record, now time.Time) error {
	cards := make([]Card, 0, len(records))
	for _, rec := range records {
		cards = append(cards, NewCard(rec, now))
	}
	if err := views.ExecuteTemplate(w, "list", cards); err != nil {
		return fmt.Errorf("render job list: %w", err)
	}
	return nil
}

// RenderOverview writes the aggregate counters.
func RenderOverview(w io.Writer, agg Aggregates) error {
	if err := views.ExecuteTemplate(w, "overview", NewOverview(agg)); err != nil {
		return fmt.Errorf("render overview: %w", err)
	}
	return nil
}
