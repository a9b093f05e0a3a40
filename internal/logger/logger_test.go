package logger

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestInitWritesLeveledLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "ghpanel.log")
	require.NoError(t, Init(path, "info"))
	t.Cleanup(func() { _ = Close() })

	Debugf("hidden %d", 1)
	Infof("fetched %s", "/user")
	Warnf("retrying in %v", "2s")
	L().Infow("cache", "key", "repositories", "hit", true)
	require.NoError(t, L().Sync())

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(raw)
	require.Contains(t, out, "INFO")
	require.Contains(t, out, "fetched /user")
	require.Contains(t, out, "WARN")
	require.Contains(t, out, `"key": "repositories"`)
	require.False(t, strings.Contains(out, "hidden"))
}

func TestInitRejectsUnknownLevel(t *testing.T) {
	err := Init(filepath.Join(t.TempDir(), "x.log"), "loud")
	require.Error(t, err)
}

func TestLoggingBeforeInitIsNoop(t *testing.T) {
	require.NoError(t, Close())
	require.NotPanics(t, func() { Errorf("nothing %s", "here") })
}
