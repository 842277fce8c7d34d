package logging

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	dir := t.TempDir()

	logger, err := New(Config{Level: "debug", Format: "console", OutputPath: filepath.Join(dir, "debug.log")})
	require.NoError(t, err)
	require.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger, err = New(Config{Level: "bogus", OutputPath: filepath.Join(dir, "info.log")})
	require.NoError(t, err)
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
}

func TestOrNop(t *testing.T) {
	require.NotNil(t, OrNop(nil))
	require.False(t, OrNop(nil).Core().Enabled(zapcore.ErrorLevel))
}
