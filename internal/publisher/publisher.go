// Package publisher selects where export notifications are announced.
package publisher

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/JakeFAU/crawl-console/internal/publisher/memory"
	"github.com/JakeFAU/crawl-console/internal/publisher/pubsub"
)

// Supported notifiers.
const (
	BackendNone   = "none"
	BackendMemory = "memory"
	BackendPubSub = "pubsub"
)

// ErrDisabled is returned by Open when no notifier is configured.
var ErrDisabled = errors.New("export notifications are disabled")

// Publisher announces a payload on a topic and returns the message id.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Config selects and configures a notifier.
type Config struct {
	Backend   string
	ProjectID string
	Topic     string
}

// Open builds the configured Publisher. The returned close func is never nil.
func Open(ctx context.Context, cfg Config, logger *zap.Logger) (Publisher, func() error, error) {
	noop := func() error { return nil }
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "", BackendNone:
		return nil, noop, ErrDisabled
	case BackendMemory:
		return memory.New(), noop, nil
	case BackendPubSub:
		pub, err := pubsub.Open(ctx, cfg.ProjectID, cfg.Topic, logger)
		if err != nil {
			return nil, noop, fmt.Errorf("open pubsub notifier: %w", err)
		}
		return pub, pub.Close, nil
	default:
		return nil, noop, fmt.Errorf("unknown notifier %q", cfg.Backend)
	}
}
