package logger

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewPicksLevelByEnvironment(t *testing.T) {
	dev, err := New("development")
	require.NoError(t, err)
	require.True(t, dev.Core().Enabled(zapcore.DebugLevel))

	prod, err := New("production")
	require.NoError(t, err)
	require.False(t, prod.Core().Enabled(zapcore.DebugLevel))
	require.True(t, prod.Core().Enabled(zapcore.InfoLevel))
}

func TestInitReplacesGlobals(t *testing.T) {
	before := zap.L()
	logger, err := Init("test")
	require.NoError(t, err)
	t.Cleanup(func() { zap.ReplaceGlobals(before) })

	require.Same(t, logger, zap.L())
}
