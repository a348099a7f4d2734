package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_WritesPerLevelFiles(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "logs")
	l, err := NewLogger(dir)
	require.NoError(t, err)
	defer l.Close()

	l.Info("speed %.2f", 34.56)
	l.Warning("session %s discarded", "abc")
	l.Error("camera %d lost", 0)

	read := func(name string) string {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err)
		return string(data)
	}

	assert.Contains(t, read(InfoFile), "speed 34.56")
	assert.Contains(t, read(WarningFile), "session abc discarded")
	assert.Contains(t, read(ErrorFile), "camera 0 lost")
	assert.NotContains(t, read(InfoFile), "camera 0 lost")
}

func TestLogger_CleanLogs(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	require.NoError(t, err)
	defer l.Close()

	l.Warning("old warning")
	require.NoError(t, l.CleanLogs(WarningFile))

	data, err := os.ReadFile(filepath.Join(l.Dir(), WarningFile))
	require.NoError(t, err)
	assert.Empty(t, string(data))

	assert.Error(t, l.CleanLogs("missing.log"))
}

func TestLogger_CloseIsIdempotent(t *testing.T) {
	l, err := NewLogger(t.TempDir())
	require.NoError(t, err)

	assert.NoError(t, l.Close())
	assert.NoError(t, l.Close())
}
