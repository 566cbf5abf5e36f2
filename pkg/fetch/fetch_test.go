package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPFetchResolvesAgainstOrigin(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/Content-Meta/StudyX.json" {
			http.NotFound(w, r)
			return
		}
		assert.Equal(t, "application/json", r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	f := NewHTTP(srv.URL+"/", time.Second)
	body, err := f.Fetch(context.Background(), "/Content-Meta/StudyX.json")
	require.NoError(t, err)
	assert.JSONEq(t, `{"ok":true}`, string(body))

	_, err = f.Fetch(context.Background(), "Content-Meta/missing.json")
	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, http.StatusNotFound, se.StatusCode)
}

func TestHTTPFetchTimesOut(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	f := NewHTTP(srv.URL, 50*time.Millisecond)
	_, err := f.Fetch(context.Background(), "/slow.json")
	assert.Error(t, err)
}

func TestDirFetch(t *testing.T) {
	root := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(root, "Content-Meta"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(root, "Content-Meta", "Dotnotes.json"), []byte(`{}`), 0o644))

	d := Dir{Root: root}
	body, err := d.Fetch(context.Background(), "/Content-Meta/Dotnotes.json")
	require.NoError(t, err)
	assert.Equal(t, "{}", string(body))

	// path traversal stays inside the root
	_, err = d.Fetch(context.Background(), "/../../etc/passwd")
	assert.Error(t, err)
}

func TestNewPicksImplementation(t *testing.T) {
	_, ok := New("https://engram.example", 0).(*HTTP)
	assert.True(t, ok)
	_, ok = New("./public", 0).(Dir)
	assert.True(t, ok)
}

func TestHTTPFetchRejectsOversizedBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"branches":{}}`))
	}))
	defer srv.Close()

	f := NewHTTP(srv.URL, time.Second)
	f.MaxBytes = 8
	_, err := f.Fetch(context.Background(), "/Content-Meta/StudyX.json")
	assert.ErrorIs(t, err, ErrTooLarge)

	f.MaxBytes = int64(len(`{"branches":{}}`))
	body, err := f.Fetch(context.Background(), "/Content-Meta/StudyX.json")
	require.NoError(t, err, "a body exactly at the limit is accepted")
	assert.JSONEq(t, `{"branches":{}}`, string(body))
}
