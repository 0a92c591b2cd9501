package publisher_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/crawl-console/internal/publisher"
	"github.com/JakeFAU/crawl-console/internal/publisher/memory"
)

func TestOpen(t *testing.T) {
	ctx := context.Background()

	pub, closeFn, err := publisher.Open(ctx, publisher.Config{}, nil)
	require.ErrorIs(t, err, publisher.ErrDisabled)
	assert.Nil(t, pub)
	assert.NoError(t, closeFn())

	pub, _, err = publisher.Open(ctx, publisher.Config{Backend: "Memory"}, nil)
	require.NoError(t, err)
	assert.IsType(t, &memory.Publisher{}, pub)

	_, _, err = publisher.Open(ctx, publisher.Config{Backend: "kafka"}, nil)
	assert.ErrorContains(t, err, `"kafka"`)
}
