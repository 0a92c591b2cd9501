package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/command"
	"github.com/JakeFAU/crawl-console/internal/jobs"
	"github.com/JakeFAU/crawl-console/internal/metrics"
	"github.com/JakeFAU/crawl-console/internal/report"
	"github.com/JakeFAU/crawl-console/internal/stream"
)

const requestTimeout = 2 * time.Minute

// Commander forwards job commands without waiting for the backend.
type Commander interface {
	Submit(ctx context.Context, action command.Action, jobID string) error
	SubmitStart(ctx context.Context, req command.StartRequest) error
}

// StateSource reports the push-channel connection state.
type StateSource interface {
	State() stream.State
}

// Deps are the components the Server presents. Exporter may be nil when
// exports are disabled.
type Deps struct {
	Store    *jobs.Store
	Stream   StateSource
	Commands Commander
	Reports  *report.Controller
	Exporter *report.Exporter
	Logger   *zap.Logger
}

// Server wires HTTP handlers to the console's models.
type Server struct {
	router chi.Router
	deps   Deps
	logger *zap.Logger
	now    func() time.Time
}

// NewServer constructs a Server with middleware and routes.
func NewServer(deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Server{deps: deps, logger: logger, now: time.Now}

	r := chi.NewRouter()
	r.Use(requestIDMiddleware)
	r.Use(loggingMiddleware(logger))
	r.Use(recoverMiddleware(logger))
	r.Use(metrics.Middleware)

	r.Get("/healthz", s.healthz)
	r.Get("/readyz", s.readyz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	r.Group(func(r chi.Router) {
		r.Use(timeoutMiddleware(requestTimeout))

		r.Get("/", s.dashboard)
		r.Get("/fragments/jobs", s.jobsFragment)
		r.Get("/fragments/status", s.statusFragment)

		r.Post("/jobs", s.startJob)
		r.Post("/jobs/{job_id}/{action}", s.jobAction)

		r.Route("/reports", func(r chi.Router) {
			r.Get("/", s.reportPanels)
			r.Post("/sessions/refresh", s.refreshSessions)
			r.Post("/select", s.selectSession)
			r.Post("/run", s.runReport)
			r.Post("/page", s.analyzePage)
			r.Post("/export", s.exportReport)
		})
	})

	s.router = r
	return s
}

// Handler returns the Router for use with http.Server.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) healthz(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readyz reports ready once the push channel is live.
func (s *Server) readyz(w http.ResponseWriter, _ *http.Request) {
	state := s.streamState()
	if state != stream.StateLive {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "not ready", "stream": state.String()})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ready", "stream": state.String()})
}

func (s *Server) dashboard(w http.ResponseWriter, _ *http.Request) {
	page := dashboardPage{
		Status:  s.streamState(),
		Jobs:    s.deps.Store.Snapshot(),
		Totals:  s.deps.Store.Aggregates(),
		Reports: s.deps.Reports.Panels(),
		Export:  s.deps.Exporter != nil,
		Now:     s.now(),
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderDashboard(w, page); err != nil {
		s.logger.Error("render dashboard failed", zap.Error(err))
	}
}

// jobsFragment serves the overview and job list, tagged with the store
// version so unchanged polls cost a 304.
func (s *Server) jobsFragment(w http.ResponseWriter, r *http.Request) {
	version := s.deps.Store.Version()
	etag := `"jobs-` + strconv.FormatUint(version, 10) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if match := r.Header.Get("If-None-Match"); match != "" && match == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := renderJobs(w, s.deps.Store.Snapshot(), s.deps.Store.Aggregates(), s.now()); err != nil {
		s.logger.Error("render jobs failed", zap.Error(err))
	}
}

func (s *Server) statusFragment(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-cache")
	if err := renderStatus(w, s.streamState()); err != nil {
		s.logger.Error("render status failed", zap.Error(err))
	}
}

func (s *Server) startJob(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}
	maxPages, _ := strconv.Atoi(strings.TrimSpace(r.PostForm.Get("max_pages")))
	req := command.StartRequest{
		URL:          r.PostForm.Get("url"),
		MaxPages:     maxPages,
		ContentTypes: r.PostForm["content_types"],
		Keywords:     command.SplitKeywords(r.PostForm.Get("keywords")),
	}
	if err := s.deps.Commands.SubmitStart(r.Context(), req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	redirectHome(w, r, "")
}

func (s *Server) jobAction(w http.ResponseWriter, r *http.Request) {
	action, err := command.ParseAction(chi.URLParam(r, "action"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err := s.deps.Commands.Submit(r.Context(), action, chi.URLParam(r, "job_id")); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	redirectHome(w, r, "")
}

func (s *Server) reportPanels(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := report.RenderPanels(w, s.deps.Reports.Panels()); err != nil {
		s.logger.Error("render report panels failed", zap.Error(err))
	}
}

func (s *Server) refreshSessions(w http.ResponseWriter, r *http.Request) {
	s.deps.Reports.LoadSessions(r.Context())
	redirectHome(w, r, "reporting")
}

func (s *Server) selectSession(w http.ResponseWriter, r *http.Request) {
	s.deps.Reports.SelectSession(r.Context(), r.FormValue("session_id"))
	redirectHome(w, r, "reporting")
}

func (s *Server) runReport(w http.ResponseWriter, r *http.Request) {
	s.deps.Reports.RunReport(r.Context(), r.FormValue("instructions"))
	redirectHome(w, r, "reporting")
}

func (s *Server) analyzePage(w http.ResponseWriter, r *http.Request) {
	s.deps.Reports.AnalyzePage(r.Context(), r.FormValue("url"))
	redirectHome(w, r, "reporting")
}

func (s *Server) exportReport(w http.ResponseWriter, r *http.Request) {
	if s.deps.Exporter == nil {
		writeError(w, http.StatusServiceUnavailable, "report export is disabled")
		return
	}
	if _, err := s.deps.Reports.Export(r.Context(), s.deps.Exporter); err != nil {
		s.logger.Warn("report export failed", zap.Error(err))
	}
	redirectHome(w, r, "reporting")
}

func (s *Server) streamState() stream.State {
	if s.deps.Stream == nil {
		return stream.StateConnecting
	}
	return s.deps.Stream.State()
}

// redirectHome answers a form post with 303 See Other back to the dashboard.
func redirectHome(w http.ResponseWriter, r *http.Request, anchor string) {
	target := "/"
	if anchor != "" {
		target += "#" + anchor
	}
	http.Redirect(w, r, target, http.StatusSeeOther)
}

type requestIDKey struct{}

// RequestID returns the id assigned to the request carrying ctx.
func RequestID(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey{}).(string)
	return id
}

func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get("X-Request-ID")
		if reqID == "" {
			reqID = uuid.NewString()
		}
		ctx := context.WithValue(r.Context(), requestIDKey{}, reqID)
		w.Header().Set("X-Request-ID", reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func loggingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := &responseWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(ww, r)
			logger.Debug("request completed",
				zap.String("request_id", RequestID(r.Context())),
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.status),
				zap.Duration("duration", time.Since(start)),
			)
		})
	}
}

func recoverMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rec := recover(); rec != nil {
					if rec == http.ErrAbortHandler {
						panic(rec)
					}
					logger.Error("panic recovered",
						zap.String("request_id", RequestID(r.Context())),
						zap.Any("panic", rec),
					)
					writeError(w, http.StatusInternalServerError, "internal server error")
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

func timeoutMiddleware(d time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.TimeoutHandler(next, d, "request timed out")
	}
}

type responseWriter struct {
	http.ResponseWriter
	status int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.status = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	n, err := rw.ResponseWriter.Write(b)
	if err != nil {
		return n, fmt.Errorf("write response: %w", err)
	}
	return n, nil
}

func (rw *responseWriter) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
