package bookstore

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	t.Run("no file gives defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("overrides merge over defaults", func(t *testing.T) {
		path := writeFile(t, "shelfdb.yaml", `
page: 2
slow_query_threshold: 250ms
log_format: json
`)
		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 2, cfg.Page)
		assert.Equal(t, 5, cfg.PageSize)
		assert.Equal(t, 250*time.Millisecond, cfg.SlowQueryThreshold)
		assert.Equal(t, "json", cfg.LogFormat)
		assert.Equal(t, "books", cfg.Collection)
	})

	t.Run("empty file", func(t *testing.T) {
		cfg, err := LoadConfig(writeFile(t, "empty.yaml", ""))
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("unknown field is rejected", func(t *testing.T) {
		_, err := LoadConfig(writeFile(t, "typo.yaml", "pagesize: 3\n"))
		assert.Error(t, err)
	})

	t.Run("invalid values", func(t *testing.T) {
		for name, content := range map[string]string{
			"page":       "page: 0\n",
			"page size":  "page_size: -1\n",
			"collection": "collection: \"\"\n",
			"level":      "log_level: loud\n",
			"format":     "log_format: xml\n",
		} {
			t.Run(name, func(t *testing.T) {
				_, err := LoadConfig(writeFile(t, "bad.yaml", content))
				assert.Error(t, err)
			})
		}
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	cfg := DefaultConfig()
	cfg.LogFormat = "json"
	cfg.LogLevel = "warn"

	logger := cfg.NewLogger(&buf)
	logger.Info("hidden")
	logger.Warn("shown", "k", "v")

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.True(t, strings.HasPrefix(out, "{"), out)
	assert.Contains(t, out, `"k":"v"`)
}
