package observability

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNewLogger(t *testing.T) {
	tests := []struct {
		name    string
		cfg     LoggerConfig
		wantErr string
	}{
		{name: "defaults", cfg: LoggerConfig{}},
		{name: "json info", cfg: LoggerConfig{Level: "info", Format: "json"}},
		{name: "console debug", cfg: LoggerConfig{Level: "DEBUG", Format: "console"}},
		{name: "text alias", cfg: LoggerConfig{Level: "warn", Format: "text"}},
		{name: "invalid level", cfg: LoggerConfig{Level: "verbose"}, wantErr: "invalid log level"},
		{name: "invalid format", cfg: LoggerConfig{Format: "xml"}, wantErr: "invalid log format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger, err := NewLogger(tt.cfg)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				assert.Nil(t, logger)
				return
			}
			require.NoError(t, err)
			require.NotNil(t, logger)
			_ = logger.Sync()
		})
	}
}

func TestNewLogger_File(t *testing.T) {
	path := filepath.Join(t.TempDir(), "router.log")

	logger, err := NewLogger(LoggerConfig{Level: "info", Format: "json", File: path})
	require.NoError(t, err)

	logger.Info("decision recorded", zap.String("tier", "FAST"))
	logger.Debug("filtered out")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"msg":"decision recorded"`)
	assert.Contains(t, string(data), `"tier":"FAST"`)
	assert.NotContains(t, string(data), "filtered out")
}

func TestLoggerFromContext(t *testing.T) {
	fallback := zap.NewNop()
	assert.Same(t, fallback, LoggerFromContext(context.Background(), fallback))

	scoped := zap.NewExample()
	ctx := WithLogger(context.Background(), scoped)
	assert.Same(t, scoped, LoggerFromContext(ctx, fallback))
}
