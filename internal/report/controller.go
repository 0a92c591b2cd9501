// Package report drives the reporting dashboard: it lists crawl sessions,
// loads a session's summary, requests narrative reports and single-page
// analyses from the backend, and keeps the resulting panels ready for
// rendering. Failures are written into the affected panel and never
// propagate to callers.
package report

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/backend"
	"github.com/JakeFAU/crawl-console/internal/chart"
)

// ErrNoSession is returned by operations that need a loaded summary.
var ErrNoSession = errors.New("no session loaded")

// Controller owns the current session selection, its summary and every panel
// derived from it.
type Controller struct {
	src    Source
	logger *zap.Logger

	mu       sync.RWMutex
	sessions []Session
	current  string
	summary  *Summary
	report   string
	// gen increments on every session switch; responses captured under an
	// older generation are discarded.
	gen    uint64
	panels Panels
}

// NewController wires a Controller to its backend.
func NewController(src Source, logger *zap.Logger) *Controller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Controller{
		src:    src,
		logger: logger,
		panels: initialPanels(),
	}
}

// Panels returns a snapshot of the dashboard state.
func (c *Controller) Panels() Panels {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.panels
}

// Current returns the selected session id and a copy of its summary, if one
// is loaded.
func (c *Controller) Current() (string, *Summary) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.summary == nil {
		return c.current, nil
	}
	s := *c.summary
	return c.current, &s
}

// LoadSessions refreshes the session list and loads the selected session,
// keeping the current selection when it is still listed and otherwise
// falling back to the most recent session.
func (c *Controller) LoadSessions(ctx context.Context) {
	c.mu.Lock()
	c.panels.Meta = msgLoadingSessions
	c.mu.Unlock()

	sessions, err := c.src.Sessions(ctx)
	if err != nil {
		c.logger.Warn("list sessions failed", zap.Error(err))
		c.mu.Lock()
		c.panels.Meta = "Reporting unavailable: " + backend.Message(err)
		c.panels.clearSummaryLists()
		c.mu.Unlock()
		return
	}

	c.mu.Lock()
	c.sessions = sessions
	target := ""
	for _, s := range sessions {
		if s.SessionID == c.current && c.current != "" {
			target = c.current
			break
		}
	}
	if target == "" && len(sessions) > 0 {
		target = sessions[0].SessionID
	}
	c.panels.Sessions = sessionOptions(sessions, target)
	if target == "" {
		c.panels.Meta = msgNoSessions
	}
	c.mu.Unlock()

	if target != "" {
		c.SelectSession(ctx, target)
	}
}

// SelectSession switches to sessionID. Report, GQM and page panels reset to
// their placeholders immediately; the summary-derived panels fill in once the
// summary arrives, unless another switch happened meanwhile.
func (c *Controller) SelectSession(ctx context.Context, sessionID string) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return
	}

	c.mu.Lock()
	c.gen++
	gen := c.gen
	c.current = sessionID
	c.summary = nil
	c.report = ""
	c.panels.SessionID = sessionID
	c.panels.Sessions = sessionOptions(c.sessions, sessionID)
	c.panels.Meta = msgLoadingSession
	c.panels.resetArtifacts()
	c.mu.Unlock()

	summary, err := c.src.Summary(ctx, sessionID)

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding stale session summary", zap.String("session_id", sessionID))
		return
	}
	if err != nil {
		c.logger.Warn("load session failed", zap.String("session_id", sessionID), zap.Error(err))
		c.panels.Meta = "Error loading session: " + backend.Message(err)
		c.panels.ReportOutput = msgReportDown
		return
	}
	if summary.SessionID == "" {
		summary.SessionID = sessionID
	}
	c.current = summary.SessionID
	c.summary = &summary
	c.applySummaryLocked(summary)
}

func (c *Controller) applySummaryLocked(s Summary) {
	p := &c.panels
	p.SessionID = s.SessionID
	p.Meta = sessionMeta(s)
	p.Domains = domainChips(s.TopDomains)
	p.Topics = topicChips(s.TopTopics)
	p.DomainCount = pluralCount(len(s.TopDomains), "domains")
	p.TopicCount = pluralCount(len(s.TopTopics), "topics")
	p.Latest = timeline(s.LatestItems)
	p.LatestCount, p.LatestHint = "", msgNoRecent
	if len(s.LatestItems) > 0 {
		p.LatestCount, p.LatestHint = pluralCount(len(s.LatestItems), "shown"), ""
	}
	p.Pages = pageOptions(s.LatestItems)
	p.ReportOutput = msgReady
}

// RunReport re-fetches the current summary, asks the backend for a narrative
// report and renders the report charts and GQM panel.
func (c *Controller) RunReport(ctx context.Context, instructions string) {
	c.mu.Lock()
	if c.summary == nil {
		c.panels.ReportOutput = msgNeedDataset
		c.mu.Unlock()
		return
	}
	gen, sessionID := c.gen, c.current
	c.panels.ReportOutput = msgGenerating
	c.panels.ReportBusy = true
	c.mu.Unlock()

	summary, err := c.src.Summary(ctx, sessionID)
	var text string
	if err == nil {
		text, err = c.src.Run(ctx, sessionID, strings.TrimSpace(instructions))
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding stale report", zap.String("session_id", sessionID))
		return
	}
	c.panels.ReportBusy = false
	if err != nil {
		c.logger.Warn("report generation failed", zap.String("session_id", sessionID), zap.Error(err))
		c.panels.ReportOutput = "LLM error: " + backend.Message(err)
		return
	}
	if summary.SessionID == "" {
		summary.SessionID = sessionID
	}
	c.summary = &summary
	c.report = text

	p := &c.panels
	p.ReportOutput = text
	if strings.TrimSpace(text) == "" {
		p.ReportOutput = msgEmptyReport
	}
	p.ContentTypes = contentTypeRows(summary.ContentTypes)
	p.ContentTypesHint = ""
	if len(summary.ContentTypes) == 0 {
		p.ContentTypesHint = msgNoContentTypes
	}
	p.ContentTypeChart = chart.Pie(contentTypeItems(summary.ContentTypes))
	p.DomainChart = chart.HBar(domainItems(summary.TopDomains), "Domains", chart.DefaultBarItems)
	p.TopicChart = chart.HBar(topicItems(summary.TopTopics), "Topics", chart.DefaultBarItems)
	p.TimeChart = chart.Histogram(histogramBuckets(summary.TimeHistogram))
	p.Goals = goalViews(summary.GQM)
	p.GQMHint = ""
	if len(p.Goals) == 0 {
		p.GQMHint = msgGQMHint
	}
}

// AnalyzePage requests a single-page analysis for pageURL within the current
// session. An empty URL resets the page panels.
func (c *Controller) AnalyzePage(ctx context.Context, pageURL string) {
	pageURL = strings.TrimSpace(pageURL)

	c.mu.Lock()
	if pageURL == "" {
		c.panels.resetPage(msgSelectPage)
		c.mu.Unlock()
		return
	}
	gen, sessionID := c.gen, c.current
	p := &c.panels
	p.PageBusy = true
	p.PageSummary = msgAnalyzing
	p.Insights, p.InsightsHint = nil, ""
	p.PageCharts, p.PageChartsHint = nil, msgAnalyzing
	c.mu.Unlock()

	res, err := c.src.AnalyzePage(ctx, sessionID, pageURL)
	var charts []PageChart
	if err == nil {
		charts = pageCharts(res.Charts)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gen {
		c.logger.Debug("discarding stale page analysis",
			zap.String("session_id", sessionID), zap.String("url", pageURL))
		return
	}
	p.PageBusy = false
	if err != nil {
		c.logger.Warn("page analysis failed", zap.String("url", pageURL), zap.Error(err))
		p.PageSummary = msgPageError
		p.InsightsHint = backend.Message(err)
		p.PageCharts, p.PageChartsHint = nil, ""
		return
	}
	p.PageSummary = res.Summary
	if strings.TrimSpace(res.Summary) == "" {
		p.PageSummary = msgNoPageSummary
	}
	p.Insights = insightViews(res.Insights)
	if len(p.Insights) == 0 {
		p.InsightsHint = msgNoInsights
	}
	p.PageCharts = charts
	p.PageChartsHint = ""
	if len(charts) == 0 {
		p.PageChartsHint = msgNoPageCharts
	}
}

func pluralCount(n int, noun string) string {
	return strconv.Itoa(n) + " " + noun
}
