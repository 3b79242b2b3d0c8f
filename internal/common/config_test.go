package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	t.Setenv("AQ_SOURCE", "")
	t.Setenv("AQ_FETCH_TIMEOUT", "")
	t.Setenv("CLICKHOUSE_PORT", "")

	cfg := DefaultConfig()

	assert.Equal(t, DefaultSource, cfg.Source)
	assert.Equal(t, 60*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 5, cfg.PreviewRows)
	assert.Equal(t, "localhost:9000", cfg.ClickHouseAddr())
	assert.Equal(t, filepath.Join("./out", "charts"), cfg.ChartDir())
}

func TestDefaultConfig_EnvOverride(t *testing.T) {
	t.Setenv("AQ_SOURCE", "/data/aq.csv")
	t.Setenv("AQ_FETCH_TIMEOUT", "5s")
	t.Setenv("CLICKHOUSE_PORT", "19000")
	t.Setenv("AQ_PREVIEW_ROWS", "not-a-number")

	cfg := DefaultConfig()

	assert.Equal(t, "/data/aq.csv", cfg.Source)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 19000, cfg.ClickHousePort)
	assert.Equal(t, 5, cfg.PreviewRows)
}

func TestLoadConfig(t *testing.T) {
	t.Run("empty path returns defaults", func(t *testing.T) {
		cfg, err := LoadConfig("")
		require.NoError(t, err)
		assert.Equal(t, DefaultConfig(), cfg)
	})

	t.Run("yaml overlay", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "aq.yaml")
		body := "source: local.csv.gz\npreview_rows: 10\nfetch_timeout: 2m\nclickhouse_database: aq_test\n"
		require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

		cfg, err := LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "local.csv.gz", cfg.Source)
		assert.Equal(t, 10, cfg.PreviewRows)
		assert.Equal(t, 2*time.Minute, cfg.FetchTimeout)
		assert.Equal(t, "aq_test", cfg.ClickHouseDatabase)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})

	t.Run("invalid yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("preview_rows: [oops"), 0o644))

		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestNewLogger(t *testing.T) {
	logger, err := NewLogger("debug", "console")
	require.NoError(t, err)
	assert.NotNil(t, logger)

	_, err = NewLogger("loud", "json")
	assert.Error(t, err)

	_, err = NewLogger("info", "xml")
	assert.Error(t, err)
}

func TestStats(t *testing.T) {
	s := NewStats()
	s.AddRows(3)
	s.AddBytes(128)
	s.AddMalformed(1)
	s.AddMissing(2)

	assert.Equal(t, uint64(3), s.GetTotalRows())
	assert.Equal(t, uint64(128), s.GetTotalBytes())
	assert.Equal(t, uint64(1), s.GetMalformed())
	assert.Equal(t, uint64(2), s.GetMissing())
}
