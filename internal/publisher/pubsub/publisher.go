// Package pubsub announces report exports on a Google Cloud Pub/Sub topic.
package pubsub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/pubsub"
	"go.uber.org/zap"
	"google.golang.org/api/option"
)

// Publisher publishes JSON payloads to a single topic.
type Publisher struct {
	client *pubsub.Client
	topic  *pubsub.Topic
	owned  bool
}

// New wraps an existing client. The caller keeps ownership of client.
func New(client *pubsub.Client, topicID string) (*Publisher, error) {
	if client == nil {
		return nil, errors.New("pubsub client is required")
	}
	topicID = strings.TrimSpace(topicID)
	if topicID == "" {
		return nil, errors.New("topic name is required")
	}
	return &Publisher{client: client, topic: client.Topic(topicID)}, nil
}

// Open creates a client using Application Default Credentials (or opts) and
// checks that the topic exists.
func Open(ctx context.Context, projectID, topicID string, logger *zap.Logger, opts ...option.ClientOption) (*Publisher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}
	p, err := New(client, topicID)
	if err == nil {
		var exists bool
		exists, err = p.topic.Exists(ctx)
		switch {
		case err != nil:
			err = fmt.Errorf("check pubsub topic %q: %w", topicID, err)
		case !exists:
			err = fmt.Errorf("pubsub topic %q does not exist in project %q", topicID, projectID)
		}
	}
	if err != nil {
		if cerr := client.Close(); cerr != nil {
			logger.Warn("close pubsub client after failed open", zap.Error(cerr))
		}
		return nil, err
	}
	p.owned = true
	return p, nil
}

// Publish marshals payload to JSON and waits for the server-assigned message
// id. The topic argument is informational; messages always go to the topic
// the Publisher was opened with.
func (p *Publisher) Publish(ctx context.Context, _ string, payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	result := p.topic.Publish(ctx, &pubsub.Message{
		Data:       data,
		Attributes: map[string]string{"content_type": "application/json"},
	})
	id, err := result.Get(ctx)
	if err != nil {
		return "", fmt.Errorf("publish message: %w", err)
	}
	return id, nil
}

// Close flushes pending messages and releases the client when Open created it.
func (p *Publisher) Close() error {
	p.topic.Stop()
	if !p.owned {
		return nil
	}
	if err := p.client.Close(); err != nil {
		return fmt.Errorf("close pubsub client: %w", err)
	}
	return nil
}
