package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/subdesk/subdesk/internal/config"
	"github.com/subdesk/subdesk/internal/types"
	"go.uber.org/zap/zapcore"
)

func TestNewLoggerLevel(t *testing.T) {
	cfg := config.GetDefaultConfig()
	cfg.Deployment.Mode = types.ModeAPI
	cfg.Logging.Level = types.LogLevelWarn

	log, err := NewLogger(cfg)
	require.NoError(t, err)
	assert.False(t, log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Desugar().Core().Enabled(zapcore.WarnLevel))
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, zapcore.DebugLevel, parseLevel(types.LogLevelDebug))
	assert.Equal(t, zapcore.ErrorLevel, parseLevel(types.LogLevelError))
	assert.Equal(t, zapcore.InfoLevel, parseLevel(types.LogLevel("verbose")))
}
