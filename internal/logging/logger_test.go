package logging

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestNewPresets(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		opts    Options
		debugOn bool
		warnOn  bool
	}{
		{name: "development", opts: Options{Development: true}, debugOn: true, warnOn: true},
		{name: "production", opts: Options{}, debugOn: false, warnOn: true},
		{name: "level override", opts: Options{Development: true, Level: "warn"}, debugOn: false, warnOn: true},
		{name: "production debug", opts: Options{Level: " DEBUG "}, debugOn: true, warnOn: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			logger, err := New(tt.opts)
			require.NoError(t, err)
			require.Equal(t, tt.debugOn, logger.Core().Enabled(zapcore.DebugLevel))
			require.Equal(t, tt.warnOn, logger.Core().Enabled(zapcore.WarnLevel))
			require.NoError(t, Sync(logger))
		})
	}
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	t.Parallel()

	_, err := New(Options{Level: "loud"})
	require.ErrorContains(t, err, "parse log level")
}

func TestSyncNil(t *testing.T) {
	t.Parallel()

	require.NoError(t, Sync(nil))
}

func TestSyncObserved(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	logger := zap.New(core)
	logger.Info("hello", zap.String("job_id", "j1"))
	require.NoError(t, Sync(logger))
	require.Equal(t, 1, logs.Len())
	require.Equal(t, "j1", logs.All()[0].ContextMap()["job_id"])
}
