package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTextToWriter(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "WARN", Out: &buf})
	require.NoError(t, err)

	logger.Info("hidden")
	logger.WithField("row", 5).Warn("row failed")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "row failed")
	assert.Contains(t, buf.String(), "row=5")
}

func TestNewJSON(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Options{Level: "debug", Format: "json", Out: &buf})
	require.NoError(t, err)

	logger.Debug("hello")
	assert.Contains(t, buf.String(), `"message":"hello"`)
}

func TestNewBadLevelDefaultsToInfo(t *testing.T) {
	logger, err := New(Options{Level: "loud", Out: &bytes.Buffer{}})
	require.NoError(t, err)
	assert.Equal(t, logrus.InfoLevel, logger.GetLevel())
}

func TestNewFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "logs", "pipecrm.log")
	logger, err := New(Options{File: path})
	require.NoError(t, err)

	logger.Info("to file")

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "to file")
}
