package main

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/klauspost/pgzip"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const body = "No,year,month,day,hour,PM2.5\n1,2013,3,1,0,4\n"

func TestDestName(t *testing.T) {
	for _, tt := range []struct {
		compress string
		want     string
	}{
		{"none", "a.csv"},
		{"", "a.csv"},
		{"gz", "a.csv.gz"},
		{"zstd", "a.csv.zst"},
	} {
		got, err := destName("a.csv", tt.compress)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}

	_, err := destName("a.csv", "bz2")
	assert.Error(t, err)
}

func TestDownloadFile(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	ctx := context.Background()
	dir := t.TempDir()

	t.Run("plain", func(t *testing.T) {
		dest := filepath.Join(dir, "plain.csv")
		res, err := downloadFile(ctx, srv.Client(), srv.URL, dest, "none", time.Second, false)
		require.NoError(t, err)
		assert.Equal(t, int64(len(body)), res.BytesIn)
		assert.Equal(t, res.BytesIn, res.BytesOut)

		data, err := os.ReadFile(dest)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))

		_, err = os.Stat(dest + ".tmp")
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("existing file skipped", func(t *testing.T) {
		dest := filepath.Join(dir, "plain.csv")
		res, err := downloadFile(ctx, srv.Client(), srv.URL, dest, "none", time.Second, false)
		require.NoError(t, err)
		assert.True(t, res.Skipped)
	})

	t.Run("gzip", func(t *testing.T) {
		dest := filepath.Join(dir, "data.csv.gz")
		_, err := downloadFile(ctx, srv.Client(), srv.URL, dest, "gz", time.Second, false)
		require.NoError(t, err)

		f, err := os.Open(dest)
		require.NoError(t, err)
		defer f.Close()
		zr, err := pgzip.NewReader(f)
		require.NoError(t, err)
		data, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))
	})

	t.Run("zstd", func(t *testing.T) {
		dest := filepath.Join(dir, "data.csv.zst")
		_, err := downloadFile(ctx, srv.Client(), srv.URL, dest, "zst", time.Second, false)
		require.NoError(t, err)

		raw, err := os.ReadFile(dest)
		require.NoError(t, err)
		zr, err := zstd.NewReader(bytes.NewReader(raw))
		require.NoError(t, err)
		defer zr.Close()
		data, err := io.ReadAll(zr)
		require.NoError(t, err)
		assert.Equal(t, body, string(data))
	})

	t.Run("http error leaves no file", func(t *testing.T) {
		dest := filepath.Join(dir, "missing.csv")
		_, err := downloadFile(ctx, srv.Client(), srv.URL+"/missing", dest, "none", time.Second, false)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "HTTP 404")

		_, err = os.Stat(dest)
		assert.True(t, os.IsNotExist(err))
	})
}
