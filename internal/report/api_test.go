package report

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/backend"
)

func newTestAPI(t *testing.T, handler http.HandlerFunc) *API {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	client, err := backend.New(srv.URL, srv.Client())
	require.NoError(t, err)
	return NewAPI(client)
}

func TestAPIRoundTrips(t *testing.T) {
	t.Parallel()

	var runBody, pageBody map[string]string
	api := newTestAPI(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.URL.Path {
		case PathSessions:
			fmt.Fprint(w, `{"sessions":[{"session_id":"s1","count":12,"top_keywords":["cpi"]}]}`)
		case PathSession:
			fmt.Fprintf(w, `{"session_id":%q,"total_items":{"value":42},"gqm":null}`, r.URL.Query().Get("session_id"))
		case PathRun:
			_ = json.NewDecoder(r.Body).Decode(&runBody)
			fmt.Fprint(w, `{"report":"narrative"}`)
		case PathPage:
			_ = json.NewDecoder(r.Body).Decode(&pageBody)
			fmt.Fprint(w, `{"summary":"s","insights":"not a list","charts":{"bad":true}}`)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	})
	ctx := context.Background()

	sessions, err := api.Sessions(ctx)
	require.NoError(t, err)
	require.Equal(t, []Session{{SessionID: "s1", Count: 12, TopKeywords: []string{"cpi"}}}, sessions)

	summary, err := api.Summary(ctx, "s1")
	require.NoError(t, err)
	require.Equal(t, "s1", summary.SessionID)
	require.InDelta(t, 42, float64(summary.TotalItems), 0)
	require.Nil(t, summary.GQM)

	text, err := api.Run(ctx, "s1", "be brief")
	require.NoError(t, err)
	require.Equal(t, "narrative", text)
	require.Equal(t, map[string]string{"session_id": "s1", "instructions": "be brief"}, runBody)

	page, err := api.AnalyzePage(ctx, "s1", "https://example.com")
	require.NoError(t, err)
	require.Equal(t, "s", page.Summary)
	require.Empty(t, page.Insights)
	require.Empty(t, page.Charts)
	require.Equal(t, "https://example.com", pageBody["url"])
}

func TestAPISurfacesBackendMessage(t *testing.T) {
	t.Parallel()

	api := newTestAPI(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"session_id is required"}`)
	})
	_, err := api.Run(context.Background(), "", "")
	require.Error(t, err)
	require.Equal(t, "session_id is required", backend.Message(err))
}

func TestQuantityShapes(t *testing.T) {
	t.Parallel()

	for raw, want := range map[string]float64{`7`: 7, `{"value": 3.5}`: 3.5, `{"value": null}`: 0, `null`: 0} {
		var q Quantity
		require.NoError(t, json.Unmarshal([]byte(raw), &q), raw)
		require.InDelta(t, want, float64(q), 0, raw)
	}
	var q Quantity
	require.Error(t, json.Unmarshal([]byte(`"many"`), &q))
}

func TestRenderPanelsEscapes(t *testing.T) {
	t.Parallel()

	p := initialPanels()
	p.Meta = `<img src=x onerror=alert(1)>`
	p.ReportOutput = "<b>bold</b>"
	p.Domains = []Chip{{Label: "<script>", Count: "1"}}

	var sb strings.Builder
	require.NoError(t, RenderPanels(&sb, p))
	out := sb.String()
	require.NotContains(t, out, "<img")
	require.NotContains(t, out, "<script>")
	require.Contains(t, out, "&lt;b&gt;bold&lt;/b&gt;")
	require.Contains(t, out, msgChartsHint)
	require.Contains(t, out, `action="/reports/run"`)
}
