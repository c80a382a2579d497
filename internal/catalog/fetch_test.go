package catalog

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFetchRemoteCachesAndRevalidates(t *testing.T) {
	hits := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`[{"title":"x"}]`))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir())
	src := Source{Name: "events", Location: srv.URL}

	body, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"x"}]`, string(body))

	// Second fetch revalidates and reuses the cached body on 304.
	body, err = f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, `[{"title":"x"}]`, string(body))
	assert.Equal(t, 2, hits)
}

func TestFetchRemoteFallsBackToCacheOnError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(`[1,2,3]`))
	}))

	f := NewFetcher(t.TempDir())
	src := Source{Name: "events", Location: srv.URL}

	_, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)

	// Server goes away; the cached body keeps the load alive.
	srv.Close()
	body, err := f.Fetch(context.Background(), src)
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(body))
}

func TestFetchLocalFile(t *testing.T) {
	f := NewFetcher(t.TempDir())
	_, err := f.Fetch(context.Background(), Source{Name: "events", Location: "/does/not/exist.json"})
	require.Error(t, err)
}
