package ics

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const tinyCalendar = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nEND:VCALENDAR\r\n"

func TestFetchLocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "local.ics")
	require.NoError(t, os.WriteFile(path, []byte(tinyCalendar), 0o600))

	f := NewFetcher(t.TempDir())
	for _, u := range []string{path, "file://" + path} {
		res, err := f.FetchOne(context.Background(), Source{ID: "local", URL: u})
		require.NoError(t, err, u)
		assert.Equal(t, tinyCalendar, string(res.Body))
		assert.False(t, res.FromCache)
	}

	_, err := f.FetchOne(context.Background(), Source{ID: "missing", URL: filepath.Join(t.TempDir(), "nope.ics")})
	assert.Error(t, err)
}

func TestFetchUsesETag(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(tinyCalendar))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "remote", URL: srv.URL + "/cal.ics?token=secret"}

	first, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.False(t, first.FromCache)
	assert.Equal(t, tinyCalendar, string(first.Body))

	second, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, second.FromCache)
	assert.Equal(t, first.Body, second.Body)
	assert.Equal(t, int32(2), hits.Load())
}

func TestFetchFallsBackToCache(t *testing.T) {
	var failing atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if failing.Load() {
			http.Error(w, "down", http.StatusInternalServerError)
			return
		}
		_, _ = w.Write([]byte(tinyCalendar))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{ID: "remote", URL: srv.URL + "/cal.ics"}

	_, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)

	failing.Store(true)
	res, err := f.FetchOne(context.Background(), src)
	require.NoError(t, err)
	assert.True(t, res.FromCache)
	assert.Equal(t, tinyCalendar, string(res.Body))

	// A fresh cache has nothing to fall back to.
	_, err = NewFetcher(t.TempDir()).FetchOne(context.Background(), src)
	assert.Error(t, err)
}

func TestFetchAllCollectsErrors(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ok.ics")
	require.NoError(t, os.WriteFile(path, []byte(tinyCalendar), 0o600))

	f := NewFetcher(t.TempDir())
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "ok", URL: path},
		{ID: "empty"},
		{ID: "gone", URL: path + ".missing"},
	})
	require.Len(t, results, 1)
	assert.Equal(t, "ok", results[0].Source.ID)
	assert.Len(t, errs, 2)
}

func TestRedactURL(t *testing.T) {
	assert.Equal(t, "https://example.com/...(redacted)", redactURL("https://example.com/private/cal.ics?token=abc"))
	assert.Equal(t, "file://team.ics", redactURL("/srv/cal/team.ics"))
	assert.Equal(t, "file://team.ics", redactURL("file:///srv/cal/team.ics"))
}
