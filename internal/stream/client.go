package stream

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/JakeFAU/crawl-console/internal/jobs"
	"github.com/JakeFAU/crawl-console/internal/metrics"
)

// DefaultReconnectDelay is the fixed wait between a drop and the next dial.
const DefaultReconnectDelay = 1500 * time.Millisecond

const malformedLogInterval = 5 * time.Second

// State is the connection lifecycle of a Client.
type State int32

// Connection states.
const (
	StateConnecting State = iota
	StateLive
	StateDisconnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateLive:
		return "live"
	case StateDisconnected:
		return "disconnected"
	default:
		return fmt.Sprintf("state(%d)", int32(s))
	}
}

// Label is the text shown by the connection-status indicator.
func (s State) Label() string {
	switch s {
	case StateLive:
		return "Live"
	case StateDisconnected:
		return "Offline"
	default:
		return "Connecting"
	}
}

// Store receives decoded events. jobs.Store satisfies it.
type Store interface {
	ReplaceAll(records []jobs.Record)
	MergePartial(patches []jobs.Patch)
	Remove(jobID string) bool
}

// Dialer opens the push channel and returns its body.
type Dialer interface {
	Dial(ctx context.Context) (io.ReadCloser, error)
}

// Config tunes a Client.
//   - ReconnectDelay: wait after a drop before redialing (default 1.5s).
//   - MaxFrameBytes: per-frame size cap (default 1 MiB).
//   - OnState: optional callback invoked on every state transition, from the
//     Run goroutine.
type Config struct {
	ReconnectDelay time.Duration
	MaxFrameBytes  int
	OnState        func(State)
	Logger         *zap.Logger
}

// Client maintains the push-channel connection and feeds the Store.
type Client struct {
	dialer    Dialer
	store     Store
	cfg       Config
	logger    *zap.Logger
	state     atomic.Int32
	malformed rate.Sometimes
}

// New wires a Client. It does not dial until Run is called.
func New(dialer Dialer, store Store, cfg Config) *Client {
	if cfg.ReconnectDelay <= 0 {
		cfg.ReconnectDelay = DefaultReconnectDelay
	}
	if cfg.MaxFrameBytes <= 0 {
		cfg.MaxFrameBytes = DefaultMaxFrameBytes
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		dialer:    dialer,
		store:     store,
		cfg:       cfg,
		logger:    logger,
		malformed: rate.Sometimes{First: 1, Interval: malformedLogInterval},
	}
}

// State reports the current connection state.
func (c *Client) State() State {
	return State(c.state.Load())
}

// Run connects and dispatches events until ctx is cancelled, reconnecting
// indefinitely after transport failures. It always returns ctx.Err().
func (c *Client) Run(ctx context.Context) error {
	for {
		c.setState(StateConnecting)
		body, err := c.dialer.Dial(ctx)
		if err == nil {
			c.setState(StateLive)
			err = c.consume(ctx, body)
			if cerr := body.Close(); cerr != nil {
				c.logger.Debug("close stream body", zap.Error(cerr))
			}
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.setState(StateDisconnected)
		metrics.ObserveStreamReconnect()
		c.logger.Warn("stream disconnected; reconnect scheduled",
			zap.Error(err),
			zap.Duration("delay", c.cfg.ReconnectDelay),
		)
		timer := time.NewTimer(c.cfg.ReconnectDelay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// consume reads frames on a separate goroutine and applies them here, in
// arrival order. It returns when the transport fails or ctx ends.
func (c *Client) consume(ctx context.Context, body io.Reader) error {
	frames := make(chan Frame)
	errc := make(chan error, 1)
	done := make(chan struct{})
	defer close(done)

	go func() {
		dec := NewDecoder(body, c.cfg.MaxFrameBytes)
		for {
			frame, err := dec.Next()
			if err != nil {
				if errors.Is(err, io.EOF) {
					err = errors.New("stream closed by server")
				}
				errc <- err
				return
			}
			select {
			case frames <- frame:
			case <-done:
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case frame := <-frames:
			c.dispatch(frame)
		case err := <-errc:
			return fmt.Errorf("read stream: %w", err)
		}
	}
}

func (c *Client) dispatch(frame Frame) {
	evt, err := Decode(frame.Data)
	if err != nil {
		metrics.ObserveStreamMalformed()
		c.malformed.Do(func() {
			c.logger.Warn("dropping malformed stream event",
				zap.Error(err),
				zap.Int("bytes", len(frame.Data)),
			)
		})
		return
	}
	c.Apply(evt)
}

// Apply routes one decoded event to the Store and reports whether the event
// type was recognised.
func (c *Client) Apply(evt Event) bool {
	switch evt.Type {
	case TypeSnapshot:
		c.store.ReplaceAll(evt.Snapshot)
	case TypeStats, TypeJobStarted:
		c.store.MergePartial(evt.Patches)
	case TypeJobDeleted:
		c.store.Remove(evt.JobID)
	default:
		c.logger.Debug("ignoring unknown stream event", zap.String("type", string(evt.Type)))
		return false
	}
	metrics.ObserveStreamEvent(string(evt.Type))
	return true
}

func (c *Client) setState(s State) {
	prev := State(c.state.Swap(int32(s)))
	if prev == s {
		return
	}
	metrics.SetStreamState(int(s))
	c.logger.Info("stream state changed", zap.Stringer("from", prev), zap.Stringer("to", s))
	if c.cfg.OnState != nil {
		c.cfg.OnState(s)
	}
}

// HTTPDialer dials a Server-Sent-Events endpoint.
type HTTPDialer struct {
	// Client must not carry a whole-request timeout; the body stays open for
	// the life of the connection.
	Client *http.Client
	URL    string
}

// Dial issues the GET and returns the open body on a 200 response.
func (d HTTPDialer) Dial(ctx context.Context) (io.ReadCloser, error) {
	client := d.Client
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build stream request: %w", err)
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("dial stream: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		_ = resp.Body.Close()
		return nil, fmt.Errorf("dial stream: unexpected status %d", resp.StatusCode)
	}
	return resp.Body, nil
}
