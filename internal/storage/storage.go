// Package storage selects the blob store that receives exported reports.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/storage/gcs"
	"github.com/JakeFAU/crawl-console/internal/storage/local"
	"github.com/JakeFAU/crawl-console/internal/storage/memory"
)

// Supported backends.
const (
	BackendNone   = "none"
	BackendLocal  = "local"
	BackendGCS    = "gcs"
	BackendMemory = "memory"
)

// ErrDisabled is returned by Open when exports are switched off.
var ErrDisabled = errors.New("report export is disabled")

// BlobStore persists an object and returns its URI.
type BlobStore interface {
	PutObject(ctx context.Context, path, contentType string, r io.Reader) (string, error)
}

// Config selects and configures a backend.
type Config struct {
	Backend   string
	LocalDir  string
	GCSBucket string
}

// Open builds the configured BlobStore. The returned close func is never nil.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (BlobStore, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, noop, ErrDisabled
	case BackendLocal:
		store, err := local.New(local.Config{BaseDir: cfg.LocalDir})
		if err != nil {
			return nil, noop, fmt.Errorf("open local export store: %w", err)
		}
		return store, noop, nil
	case BackendGCS:
		store, err := gcs.Open(ctx, gcs.Config{Bucket: cfg.GCSBucket}, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open gcs export store: %w", err)
		}
		return store, store.Close, nil
	case BackendMemory:
		return memory.NewBlobStore(), noop, nil
	default:
		return nil, noop, fmt.Errorf("unknown export backend %q", cfg.Backend)
	}
}
