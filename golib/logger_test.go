package golib

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWritesRollingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "portrait.log")

	logger, err := NewLogger(LogConfig{Level: "info", Path: path})
	require.NoError(t, err)

	logger.Debug("hidden")
	logger.Info("portrait stored")
	_ = logger.Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)
	assert.True(t, strings.Contains(out, `"msg":"portrait stored"`), out)
	assert.False(t, strings.Contains(out, "hidden"), out)
}
