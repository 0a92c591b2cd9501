package pubsub_test

import (
	"context"
	"encoding/json"
	"testing"

	"cloud.google.com/go/pubsub"
	"cloud.google.com/go/pubsub/pstest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	publisher "github.com/JakeFAU/crawl-console/internal/publisher/pubsub"
)

func fakeServer(t *testing.T) (*pstest.Server, []option.ClientOption) {
	t.Helper()
	srv := pstest.NewServer()
	t.Cleanup(func() { _ = srv.Close() })

	conn, err := grpc.NewClient(srv.Addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return srv, []option.ClientOption{option.WithGRPCConn(conn)}
}

func TestOpenAndPublish(t *testing.T) {
	ctx := context.Background()
	srv, opts := fakeServer(t)

	admin, err := pubsub.NewClient(ctx, "project-id", opts...)
	require.NoError(t, err)
	_, err = admin.CreateTopic(ctx, "exports")
	require.NoError(t, err)

	pub, err := publisher.Open(ctx, "project-id", "exports", nil, opts...)
	require.NoError(t, err)

	id, err := pub.Publish(ctx, "exports", map[string]string{"export_id": "e1"})
	require.NoError(t, err)
	assert.NotEmpty(t, id)
	require.NoError(t, pub.Close())

	msgs := srv.Messages()
	require.Len(t, msgs, 1)
	var got map[string]string
	require.NoError(t, json.Unmarshal(msgs[0].Data, &got))
	assert.Equal(t, "e1", got["export_id"])
	assert.Equal(t, "application/json", msgs[0].Attributes["content_type"])
}

func TestOpenMissingTopic(t *testing.T) {
	_, opts := fakeServer(t)
	_, err := publisher.Open(context.Background(), "project-id", "absent", nil, opts...)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not exist")
}

func TestNewValidation(t *testing.T) {
	_, err := publisher.New(nil, "exports")
	assert.Error(t, err)
}

func TestPublishUnencodablePayload(t *testing.T) {
	ctx := context.Background()
	_, opts := fakeServer(t)
	client, err := pubsub.NewClient(ctx, "project-id", opts...)
	require.NoError(t, err)
	_, err = client.CreateTopic(ctx, "exports")
	require.NoError(t, err)

	pub, err := publisher.New(client, "exports")
	require.NoError(t, err)
	defer func() { _ = pub.Close() }()

	_, err = pub.Publish(ctx, "exports", func() {})
	assert.ErrorContains(t, err, "marshal payload")
}
