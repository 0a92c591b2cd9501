package api

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/command"
	"github.com/JakeFAU/crawl-console/internal/jobs"
	"github.com/JakeFAU/crawl-console/internal/report"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
	"github.com/JakeFAU/crawl-console/internal/stream"
)

type fakeState struct{ v atomic.Int32 }

func (f *fakeState) State() stream.State { return stream.State(f.v.Load()) }

type mockCommander struct{ mock.Mock }

func (m *mockCommander) Submit(ctx context.Context, action command.Action, jobID string) error {
	return m.Called(action, jobID).Error(0)
}

func (m *mockCommander) SubmitStart(ctx context.Context, req command.StartRequest) error {
	return m.Called(req).Error(0)
}

type mockSource struct{ mock.Mock }

func (m *mockSource) Sessions(context.Context) ([]report.Session, error) {
	args := m.Called()
	sessions, _ := args.Get(0).([]report.Session)
	return sessions, args.Error(1)
}

func (m *mockSource) Summary(_ context.Context, id string) (report.Summary, error) {
	args := m.Called(id)
	return args.Get(0).(report.Summary), args.Error(1)
}

func (m *mockSource) Run(_ context.Context, id, instructions string) (string, error) {
	args := m.Called(id, instructions)
	return args.String(0), args.Error(1)
}

func (m *mockSource) AnalyzePage(_ context.Context, id, pageURL string) (report.PageAnalysis, error) {
	args := m.Called(id, pageURL)
	return args.Get(0).(report.PageAnalysis), args.Error(1)
}

type harness struct {
	server   *Server
	store    *jobs.Store
	state    *fakeState
	commands *mockCommander
	source   *mockSource
	reports  *report.Controller
}

func newHarness(t *testing.T, exporter *report.Exporter) *harness {
	t.Helper()
	h := &harness{
		store:    jobs.NewStore(),
		state:    &fakeState{},
		commands: &mockCommander{},
		source:   &mockSource{},
	}
	h.reports = report.NewController(h.source, zap.NewNop())
	h.server = NewServer(Deps{
		Store:    h.store,
		Stream:   h.state,
		Commands: h.commands,
		Reports:  h.reports,
		Exporter: exporter,
		Logger:   zap.NewNop(),
	})
	return h
}

func (h *harness) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(rec, req)
	return rec
}

func postForm(target string, form url.Values) *http.Request {
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req
}

func TestServer_Probes(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))

	rec = h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Contains(t, rec.Body.String(), "connecting")

	h.state.v.Store(int32(stream.StateLive))
	rec = h.do(httptest.NewRequest(http.MethodGet, "/readyz", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestServer_RequestIDPropagates(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	rec := h.do(req)
	require.Equal(t, "abc-123", rec.Header().Get("X-Request-ID"))
}

func TestServer_Metrics(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.do(httptest.NewRequest(http.MethodGet, "/healthz", nil))
	rec := h.do(httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "http_requests_total")
}

func TestServer_Dashboard(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.state.v.Store(int32(stream.StateDisconnected))
	h.store.ReplaceAll([]jobs.Record{{JobID: "j1", URL: "https://example.com/<x>", Status: jobs.StatusRunning}})

	rec := h.do(httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, `id="connectionStatus" class="status">Offline<`)
	require.Contains(t, body, `data-job-id="j1"`)
	require.Contains(t, body, "https://example.com/&lt;x&gt;")
	require.Contains(t, body, `id="reporting"`)
	require.Contains(t, body, `value="html" checked`)
	require.Contains(t, body, "Report export is disabled.")
}

func TestServer_JobsFragmentETag(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	rec := h.do(httptest.NewRequest(http.MethodGet, "/fragments/jobs", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "No crawl jobs yet.")
	etag := rec.Header().Get("ETag")
	require.NotEmpty(t, etag)

	req := httptest.NewRequest(http.MethodGet, "/fragments/jobs", nil)
	req.Header.Set("If-None-Match", etag)
	rec = h.do(req)
	require.Equal(t, http.StatusNotModified, rec.Code)
	require.Empty(t, rec.Body.String())

	h.store.MergePartial([]jobs.Patch{{JobID: "j2"}})
	req = httptest.NewRequest(http.MethodGet, "/fragments/jobs", nil)
	req.Header.Set("If-None-Match", etag)
	rec = h.do(req)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotEqual(t, etag, rec.Header().Get("ETag"))
	require.Contains(t, rec.Body.String(), `data-job-id="j2"`)
}

func TestServer_StatusFragment(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.state.v.Store(int32(stream.StateLive))
	rec := h.do(httptest.NewRequest(http.MethodGet, "/fragments/status", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, `<span id="connectionStatus" class="status live">Live</span>`, rec.Body.String())
}

func TestServer_StartJob(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	want := command.StartRequest{
		URL:          "https://example.com",
		MaxPages:     12,
		ContentTypes: []string{"html", "pdf"},
		Keywords:     []string{"cpi", "fuel"},
	}
	h.commands.On("SubmitStart", want).Return(nil).Once()

	rec := h.do(postForm("/jobs", url.Values{
		"url":           {"https://example.com"},
		"max_pages":     {"12"},
		"content_types": {"html", "pdf"},
		"keywords":      {"cpi, fuel"},
	}))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/", rec.Header().Get("Location"))
	h.commands.AssertExpectations(t)
}

func TestServer_StartJobRejected(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.commands.On("SubmitStart", mock.Anything).Return(command.ErrMissingURL).Once()

	rec := h.do(postForm("/jobs", url.Values{"url": {""}}))
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "url is required")
}

func TestServer_JobAction(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.commands.On("Submit", command.ActionPause, "j1").Return(nil).Once()

	rec := h.do(postForm("/jobs/j1/pause", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)

	rec = h.do(postForm("/jobs/j1/explode", nil))
	require.Equal(t, http.StatusNotFound, rec.Code)
	h.commands.AssertExpectations(t)
}

func TestServer_ReportFlow(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	summary := report.Summary{SessionID: "s1", TopDomains: []report.DomainCount{{Domain: "example.com", Count: 3}}}
	h.source.On("Sessions").Return([]report.Session{{SessionID: "s1"}}, nil)
	h.source.On("Summary", "s1").Return(summary, nil)
	h.source.On("Run", "s1", "be brief").Return("Narrative.", nil)
	h.source.On("AnalyzePage", "s1", "https://example.com/a").Return(report.PageAnalysis{Summary: "Page summary."}, nil)

	rec := h.do(postForm("/reports/sessions/refresh", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "/#reporting", rec.Header().Get("Location"))

	h.do(postForm("/reports/select", url.Values{"session_id": {"s1"}}))
	h.do(postForm("/reports/run", url.Values{"instructions": {"be brief"}}))
	h.do(postForm("/reports/page", url.Values{"url": {"https://example.com/a"}}))

	rec = h.do(httptest.NewRequest(http.MethodGet, "/reports", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	body := rec.Body.String()
	require.Contains(t, body, "Narrative.")
	require.Contains(t, body, "Page summary.")
	require.Contains(t, body, "example.com")
	h.source.AssertExpectations(t)
}

func TestServer_ReportErrorsStayInPanels(t *testing.T) {
	t.Parallel()

	h := newHarness(t, nil)
	h.source.On("Sessions").Return(nil, errors.New("dial tcp: refused"))

	rec := h.do(postForm("/reports/sessions/refresh", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Equal(t, "Reporting unavailable: dial tcp: refused", h.reports.Panels().Meta)
}

func TestServer_Export(t *testing.T) {
	t.Parallel()

	disabled := newHarness(t, nil)
	rec := disabled.do(postForm("/reports/export", nil))
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)

	blobs := memory.NewBlobStore()
	h := newHarness(t, report.NewExporter(blobs, nil, report.ExportConfig{Backend: "memory"}, nil))
	h.source.On("Summary", "s1").Return(report.Summary{SessionID: "s1"}, nil)
	h.source.On("Run", "s1", "").Return("Narrative.", nil)
	h.reports.SelectSession(context.Background(), "s1")
	h.reports.RunReport(context.Background(), "")

	rec = h.do(postForm("/reports/export", nil))
	require.Equal(t, http.StatusSeeOther, rec.Code)
	require.Len(t, blobs.Paths(), 2)
	require.True(t, strings.HasPrefix(h.reports.Panels().ExportStatus, "Exported to memory://reports/s1/"))
}

func TestRecoverMiddleware(t *testing.T) {
	t.Parallel()

	handler := recoverMiddleware(zap.NewNop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	}))
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	require.Contains(t, rec.Body.String(), "internal server error")
}
