package stream

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/jobs"
)

// pipeDialer hands every dialed connection's write end to the test.
type pipeDialer struct {
	conns chan *io.PipeWriter
	fail  chan error
}

func newPipeDialer() *pipeDialer {
	return &pipeDialer{conns: make(chan *io.PipeWriter, 8), fail: make(chan error, 8)}
}

func (d *pipeDialer) Dial(ctx context.Context) (io.ReadCloser, error) {
	select {
	case err := <-d.fail:
		return nil, err
	default:
	}
	pr, pw := io.Pipe()
	select {
	case d.conns <- pw:
	case <-ctx.Done():
		return nil, ctx.Err()
	}
	return pr, nil
}

func (d *pipeDialer) next(t *testing.T) *io.PipeWriter {
	t.Helper()
	select {
	case pw := <-d.conns:
		return pw
	case <-time.After(2 * time.Second):
		t.Fatal("client did not dial")
		return nil
	}
}

type stateLog struct {
	mu     sync.Mutex
	states []State
}

func (l *stateLog) record(s State) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.states = append(l.states, s)
}

func (l *stateLog) labels() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]string, 0, len(l.states))
	for _, s := range l.states {
		out = append(out, s.Label())
	}
	return out
}

func send(t *testing.T, pw *io.PipeWriter, payload string) {
	t.Helper()
	_, err := io.WriteString(pw, "data: "+payload+"\n\n")
	require.NoError(t, err)
}

func startClient(t *testing.T, dialer Dialer, store Store, log *stateLog) (*Client, func()) {
	t.Helper()
	cfg := Config{ReconnectDelay: 10 * time.Millisecond}
	if log != nil {
		cfg.OnState = log.record
	}
	client := New(dialer, store, cfg)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- client.Run(ctx) }()
	return client, func() {
		cancel()
		select {
		case err := <-done:
			require.ErrorIs(t, err, context.Canceled)
		case <-time.After(2 * time.Second):
			t.Fatal("Run did not return after cancel")
		}
	}
}

func TestClientDispatchesInOrder(t *testing.T) {
	t.Parallel()

	store := jobs.NewStore()
	dialer := newPipeDialer()
	client, stop := startClient(t, dialer, store, nil)
	defer stop()

	pw := dialer.next(t)
	send(t, pw, `{"type":"snapshot","jobs":[{"job_id":"a","status":"running","pages_success":3},{"job_id":"b","status":"paused"}]}`)
	send(t, pw, `{"type":"stats","jobs":[{"job_id":"a","pages_success":10},{"job_id":"c","status":"running"}]}`)
	send(t, pw, `{"type":"job_deleted","job_id":"b"}`)
	send(t, pw, `{"type":"job_started","job":{"job_id":"d","status":"running","url":"https://d"}}`)

	require.Eventually(t, func() bool { return store.Len() == 3 }, 2*time.Second, 5*time.Millisecond)
	_, ok := store.Get("b")
	require.False(t, ok)
	a, ok := store.Get("a")
	require.True(t, ok)
	require.EqualValues(t, 10, a.PagesSuccess)
	require.Equal(t, jobs.StatusRunning, a.Status)
	require.Equal(t, StateLive, client.State())
}

func TestClientMalformedMessageKeepsConnection(t *testing.T) {
	t.Parallel()

	store := jobs.NewStore()
	dialer := newPipeDialer()
	client, stop := startClient(t, dialer, store, nil)
	defer stop()

	pw := dialer.next(t)
	send(t, pw, `{"type":"snapshot","jobs":[{"job_id":"a","status":"running","pages_success":5}]}`)
	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 5*time.Millisecond)
	before := store.Aggregates()
	version := store.Version()

	send(t, pw, `{not json`)
	send(t, pw, `{"type":"stats","jobs":{"job_id":"a"}}`)
	send(t, pw, `{"type":"heartbeat"}`)
	send(t, pw, `{"type":"stats","jobs":[{"job_id":"a","pages_success":6}]}`)

	require.Eventually(t, func() bool { return store.Aggregates().TotalPages == 6 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, version+1, store.Version(), "only the valid stats event mutated the store")
	require.Equal(t, before.Running, store.Aggregates().Running)
	require.Equal(t, StateLive, client.State())
	require.Empty(t, dialer.conns, "malformed payloads do not trigger a reconnect")
}

func TestClientReconnectsAfterTransportError(t *testing.T) {
	t.Parallel()

	store := jobs.NewStore()
	dialer := newPipeDialer()
	log := &stateLog{}
	client, stop := startClient(t, dialer, store, log)
	defer stop()

	pw := dialer.next(t)
	require.Eventually(t, func() bool { return client.State() == StateLive }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, pw.CloseWithError(errors.New("connection reset")))

	pw = dialer.next(t)
	send(t, pw, `{"type":"snapshot","jobs":[{"job_id":"z"}]}`)
	require.Eventually(t, func() bool { return store.Len() == 1 }, 2*time.Second, 5*time.Millisecond)

	require.Equal(t, []string{"Live", "Offline", "Connecting", "Live"}, log.labels())
}

func TestClientRetriesFailedDials(t *testing.T) {
	t.Parallel()

	dialer := newPipeDialer()
	for range 3 {
		dialer.fail <- errors.New("connection refused")
	}
	log := &stateLog{}
	client, stop := startClient(t, dialer, jobs.NewStore(), log)
	defer stop()

	dialer.next(t)
	require.Eventually(t, func() bool { return client.State() == StateLive }, 2*time.Second, 5*time.Millisecond)

	offline := 0
	for _, label := range log.labels() {
		if label == "Offline" {
			offline++
		}
	}
	require.Equal(t, 3, offline)
}

func TestHTTPDialer(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/stream" || r.Header.Get("Accept") != "text/event-stream" {
			http.Error(w, "nope", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "text/event-stream")
		_, _ = io.WriteString(w, "data: {\"type\":\"snapshot\",\"jobs\":[]}\n\n")
	}))
	defer srv.Close()

	body, err := HTTPDialer{Client: srv.Client(), URL: srv.URL + "/api/stream"}.Dial(context.Background())
	require.NoError(t, err)
	frame, err := NewDecoder(body, 0).Next()
	require.NoError(t, err)
	require.NoError(t, body.Close())
	evt, err := Decode(frame.Data)
	require.NoError(t, err)
	require.Equal(t, TypeSnapshot, evt.Type)

	_, err = HTTPDialer{Client: srv.Client(), URL: srv.URL + "/missing"}.Dial(context.Background())
	require.ErrorContains(t, err, "unexpected status 404")
}

func TestStateLabels(t *testing.T) {
	t.Parallel()

	require.Equal(t, "Connecting", StateConnecting.Label())
	require.Equal(t, "Live", StateLive.Label())
	require.Equal(t, "Offline", StateDisconnected.Label())
	require.Equal(t, "disconnected", StateDisconnected.String())
}
