// Package command sends job control commands to the crawl backend. Results
// are never awaited by the dashboard: the stream delivers the resulting state
// changes.
package command

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/backend"
	"github.com/JakeFAU/crawl-console/internal/metrics"
)

// Action is a job control verb.
type Action string

// Supported actions.
const (
	ActionStart  Action = "start"
	ActionPause  Action = "pause"
	ActionResume Action = "resume"
	ActionStop   Action = "stop"
	ActionDelete Action = "delete"
)

// DefaultMaxPages applies when a start request has no positive page budget.
const DefaultMaxPages = 5

// DefaultContentType applies when a start request selects no content types.
const DefaultContentType = "html"

const submitTimeout = 30 * time.Second

var (
	// ErrMissingURL rejects a start request without a URL.
	ErrMissingURL = errors.New("url is required")
	// ErrMissingJobID rejects a job command without a job id.
	ErrMissingJobID = errors.New("job id is required")
	// ErrUnknownAction rejects verbs other than pause, resume, stop and delete.
	ErrUnknownAction = errors.New("unknown job action")
)

// ParseAction validates a job verb. Start is not a job verb.
func ParseAction(s string) (Action, error) {
	switch a := Action(strings.ToLower(strings.TrimSpace(s))); a {
	case ActionPause, ActionResume, ActionStop, ActionDelete:
		return a, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownAction, s)
	}
}

// Path is the backend endpoint for a.
func (a Action) Path() string {
	return "/api/crawl/" + string(a)
}

// StartRequest is the body of a start command.
type StartRequest struct {
	URL          string   `json:"url"`
	MaxPages     int      `json:"max_pages"`
	ContentTypes []string `json:"content_types"`
	Keywords     []string `json:"keywords"`
}

// Normalize trims the URL and fills defaults.
func (r StartRequest) Normalize() (StartRequest, error) {
	r.URL = strings.TrimSpace(r.URL)
	if r.URL == "" {
		return StartRequest{}, ErrMissingURL
	}
	if r.MaxPages <= 0 {
		r.MaxPages = DefaultMaxPages
	}
	types := make([]string, 0, len(r.ContentTypes))
	for _, t := range r.ContentTypes {
		if t = strings.TrimSpace(t); t != "" {
			types = append(types, t)
		}
	}
	if len(types) == 0 {
		types = []string{DefaultContentType}
	}
	r.ContentTypes = types
	if r.Keywords == nil {
		r.Keywords = []string{}
	}
	return r, nil
}

// SplitKeywords splits free text on commas and whitespace, dropping empties.
func SplitKeywords(s string) []string {
	return strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || unicode.IsSpace(r)
	})
}

// Remover drops a job from the local model. jobs.Store satisfies it.
type Remover interface {
	Remove(jobID string) bool
}

// Client issues commands against the backend.
type Client struct {
	api    *backend.Client
	store  Remover
	logger *zap.Logger
	wg     sync.WaitGroup
}

// New wires a Client. store may be nil when no local model is kept.
func New(api *backend.Client, store Remover, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{api: api, store: store, logger: logger}
}

// Do sends a job command and waits for the backend's answer. Delete also
// removes the job from the local model, whatever the answer.
func (c *Client) Do(ctx context.Context, action Action, jobID string) error {
	jobID = strings.TrimSpace(jobID)
	if jobID == "" {
		return ErrMissingJobID
	}
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	body := struct {
		JobID string `json:"job_id"`
	}{jobID}
	err := c.api.PostJSON(ctx, action.Path(), body, nil)
	if action == ActionDelete && c.store != nil {
		c.store.Remove(jobID)
	}
	metrics.ObserveCommand(string(action), err)
	if err != nil {
		return fmt.Errorf("%s job %s: %w", action, jobID, err)
	}
	return nil
}

// Start launches a crawl and returns the backend's job id.
func (c *Client) Start(ctx context.Context, req StartRequest) (string, error) {
	req, err := req.Normalize()
	if err != nil {
		return "", err
	}
	var resp struct {
		JobID string `json:"job_id"`
	}
	err = c.api.PostJSON(ctx, ActionStart.Path(), req, &resp)
	metrics.ObserveCommand(string(ActionStart), err)
	if err != nil {
		return "", fmt.Errorf("start crawl of %s: %w", req.URL, err)
	}
	return resp.JobID, nil
}

// Submit runs Do on a background goroutine and logs the outcome. Argument
// errors are returned immediately.
func (c *Client) Submit(ctx context.Context, action Action, jobID string) error {
	if strings.TrimSpace(jobID) == "" {
		return ErrMissingJobID
	}
	if _, err := ParseAction(string(action)); err != nil {
		return err
	}
	c.goDetached(ctx, func(ctx context.Context) {
		if err := c.Do(ctx, action, jobID); err != nil {
			c.logger.Warn("job command failed",
				zap.String("action", string(action)),
				zap.String("job_id", jobID),
				zap.String("message", backend.Message(err)),
				zap.Error(err),
			)
			return
		}
		c.logger.Info("job command sent", zap.String("action", string(action)), zap.String("job_id", jobID))
	})
	return nil
}

// SubmitStart validates req and runs Start on a background goroutine.
func (c *Client) SubmitStart(ctx context.Context, req StartRequest) error {
	req, err := req.Normalize()
	if err != nil {
		return err
	}
	c.goDetached(ctx, func(ctx context.Context) {
		jobID, err := c.Start(ctx, req)
		if err != nil {
			c.logger.Warn("start crawl failed",
				zap.String("url", req.URL),
				zap.String("message", backend.Message(err)),
				zap.Error(err),
			)
			return
		}
		c.logger.Info("crawl started", zap.String("url", req.URL), zap.String("job_id", jobID))
	})
	return nil
}

// Wait blocks until every submitted command has finished.
func (c *Client) Wait() {
	c.wg.Wait()
}

// goDetached runs fn outside the caller's cancellation, keeping its values.
func (c *Client) goDetached(ctx context.Context, fn func(context.Context)) {
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), submitTimeout)
		defer cancel()
		fn(ctx)
	}()
}
