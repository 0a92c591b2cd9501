package report

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/chart"
	"github.com/JakeFAU/crawl-console/internal/id"
	"github.com/JakeFAU/crawl-console/internal/metrics"
)

// ErrNoReport is returned by Export before a report has been generated for the
// current session.
var ErrNoReport = errors.New("no report generated for the current session")

// DefaultExportPrefix is the object prefix used when none is configured.
const DefaultExportPrefix = "reports"

// BlobStore persists exported objects and returns their URI.
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// Publisher announces finished exports.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// ExportConfig names the export destination.
type ExportConfig struct {
	// Backend labels metrics and notifications ("local", "gcs", "memory").
	Backend string
	Prefix  string
	Topic   string
}

// Exporter writes report bundles to a BlobStore and optionally publishes a
// notification for each.
type Exporter struct {
	blobs  BlobStore
	pub    Publisher
	cfg    ExportConfig
	ids    id.Generator
	now    func() time.Time
	logger *zap.Logger
}

// NewExporter wires an Exporter. pub may be nil to skip notifications.
func NewExporter(blobs BlobStore, pub Publisher, cfg ExportConfig, logger *zap.Logger) *Exporter {
	if cfg.Prefix == "" {
		cfg.Prefix = DefaultExportPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{
		blobs:  blobs,
		pub:    pub,
		cfg:    cfg,
		ids:    id.UUIDv7{},
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Bundle is the machine-readable export of one report.
type Bundle struct {
	ExportID    string            `json:"export_id"`
	SessionID   string            `json:"session_id"`
	GeneratedAt time.Time         `json:"generated_at"`
	Report      string            `json:"report"`
	Summary     Summary           `json:"summary"`
	Charts      map[string]string `json:"charts"`
}

// ExportResult describes a finished export.
type ExportResult struct {
	ExportID  string   `json:"export_id"`
	SessionID string   `json:"session_id"`
	URIs      []string `json:"uris"`
	MessageID string   `json:"message_id,omitempty"`
}

// Notification is the payload published after an export.
type Notification struct {
	ExportID    string    `json:"export_id"`
	SessionID   string    `json:"session_id"`
	Backend     string    `json:"backend"`
	URIs        []string  `json:"uris"`
	GeneratedAt time.Time `json:"generated_at"`
}

// Export writes the current report as an HTML document and a JSON bundle.
// The outcome is also shown in the report panel.
func (c *Controller) Export(ctx context.Context, exp *Exporter) (ExportResult, error) {
	c.mu.RLock()
	gen := c.gen
	var summary Summary
	if c.summary != nil {
		summary = *c.summary
	}
	hasSummary, report, panels := c.summary != nil, c.report, c.panels
	c.mu.RUnlock()

	var (
		res ExportResult
		err error
	)
	switch {
	case !hasSummary:
		err = ErrNoSession
	case report == "":
		err = ErrNoReport
	default:
		res, err = exp.write(ctx, summary, report, panels)
	}

	c.mu.Lock()
	if gen == c.gen {
		if err != nil {
			c.panels.ExportStatus = "Export failed: " + err.Error()
		} else {
			c.panels.ExportStatus = "Exported to " + strings.Join(res.URIs, ", ")
		}
	}
	c.mu.Unlock()
	return res, err
}

func (e *Exporter) write(ctx context.Context, summary Summary, report string, panels Panels) (res ExportResult, err error) {
	defer func() { metrics.ObserveExport(e.cfg.Backend, err) }()

	exportID, err := e.ids.NewID()
	if err != nil {
		return ExportResult{}, fmt.Errorf("export id: %w", err)
	}
	now := e.now()
	dir := path.Join(e.cfg.Prefix, objectSafe(summary.SessionID), exportID)
	res = ExportResult{ExportID: exportID, SessionID: summary.SessionID}

	var doc bytes.Buffer
	if err := renderDocument(&doc, document{Panels: panels, GeneratedAt: now.Format(time.RFC3339)}); err != nil {
		return ExportResult{}, err
	}
	uri, err := e.blobs.PutObject(ctx, path.Join(dir, "report.html"), "text/html; charset=utf-8", &doc)
	if err != nil {
		return ExportResult{}, fmt.Errorf("store report document: %w", err)
	}
	res.URIs = append(res.URIs, uri)

	bundle := Bundle{
		ExportID:    exportID,
		SessionID:   summary.SessionID,
		GeneratedAt: now,
		Report:      report,
		Summary:     summary,
		Charts: map[string]string{
			"content_types": string(chart.HTML(panels.ContentTypeChart)),
			"domains":       string(chart.HTML(panels.DomainChart)),
			"topics":        string(chart.HTML(panels.TopicChart)),
			"timeline":      string(chart.HTML(panels.TimeChart)),
		},
	}
	payload, err := json.MarshalIndent(bundle, "", "  ")
	if err != nil {
		return ExportResult{}, fmt.Errorf("encode report bundle: %w", err)
	}
	uri, err = e.blobs.PutObject(ctx, path.Join(dir, "report.json"), "application/json", bytes.NewReader(payload))
	if err != nil {
		return ExportResult{}, fmt.Errorf("store report bundle: %w", err)
	}
	res.URIs = append(res.URIs, uri)

	if e.pub != nil {
		msgID, err := e.pub.Publish(ctx, e.cfg.Topic, Notification{
			ExportID:    exportID,
			SessionID:   summary.SessionID,
			Backend:     e.cfg.Backend,
			URIs:        res.URIs,
			GeneratedAt: now,
		})
		if err != nil {
			return ExportResult{}, fmt.Errorf("publish export notification: %w", err)
		}
		res.MessageID = msgID
	}
	e.logger.Info("report exported",
		zap.String("session_id", summary.SessionID),
		zap.String("export_id", exportID),
		zap.Strings("uris", res.URIs),
	)
	return res, nil
}

// objectSafe keeps a session id usable as a single path segment.
func objectSafe(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return "default"
	}
	return strings.NewReplacer("/", "_", "\\", "_", "..", "_").Replace(s)
}
