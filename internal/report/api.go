package report

import (
	"context"
	"fmt"
	"net/url"

	"github.com/JakeFAU/crawl-console/internal/backend"
)

// Backend report endpoints.
const (
	PathSessions = "/api/reports/sessions"
	PathSession  = "/api/reports/session"
	PathRun      = "/api/reports/run"
	PathPage     = "/api/reports/page"
)

// Source is the reporting backend as the Controller sees it.
type Source interface {
	Sessions(ctx context.Context) ([]Session, error)
	Summary(ctx context.Context, sessionID string) (Summary, error)
	Run(ctx context.Context, sessionID, instructions string) (string, error)
	AnalyzePage(ctx context.Context, sessionID, pageURL string) (PageAnalysis, error)
}

// API implements Source over HTTP.
type API struct {
	client *backend.Client
}

// NewAPI wraps a backend client.
func NewAPI(client *backend.Client) *API {
	return &API{client: client}
}

// Sessions lists crawl sessions, most recent first.
func (a *API) Sessions(ctx context.Context) ([]Session, error) {
	var resp struct {
		Sessions []Session `json:"sessions"`
	}
	if err := a.client.GetJSON(ctx, PathSessions, nil, &resp); err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return resp.Sessions, nil
}

// Summary fetches the aggregate view of one session. An empty id asks the
// backend for its default session.
func (a *API) Summary(ctx context.Context, sessionID string) (Summary, error) {
	var query url.Values
	if sessionID != "" {
		query = url.Values{"session_id": {sessionID}}
	}
	var out Summary
	if err := a.client.GetJSON(ctx, PathSession, query, &out); err != nil {
		return Summary{}, fmt.Errorf("load session %q: %w", sessionID, err)
	}
	return out, nil
}

// Run generates the narrative report for a session.
func (a *API) Run(ctx context.Context, sessionID, instructions string) (string, error) {
	req := struct {
		SessionID    string `json:"session_id"`
		Instructions string `json:"instructions"`
	}{sessionID, instructions}
	var resp struct {
		Report string `json:"report"`
	}
	if err := a.client.PostJSON(ctx, PathRun, req, &resp); err != nil {
		return "", fmt.Errorf("run report: %w", err)
	}
	return resp.Report, nil
}

// AnalyzePage asks for a summary, insights and chart proposals for one page.
func (a *API) AnalyzePage(ctx context.Context, sessionID, pageURL string) (PageAnalysis, error) {
	req := struct {
		SessionID string `json:"session_id"`
		URL       string `json:"url"`
	}{sessionID, pageURL}
	var out PageAnalysis
	if err := a.client.PostJSON(ctx, PathPage, req, &out); err != nil {
		return PageAnalysis{}, fmt.Errorf("analyze page: %w", err)
	}
	return out, nil
}
