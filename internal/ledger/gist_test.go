package ledger_test

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vidpipe/internal/ledger"
)

func newClient(t *testing.T, apiBase string) *ledger.Client {
	t.Helper()
	c, err := ledger.New(apiBase, "gist123", "token-abc", "seen.json", 5*time.Second, nil)
	require.NoError(t, err)
	return c
}

func TestLoadParsesIdentifierList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodGet, r.Method)
		require.Equal(t, "/gists/gist123", r.URL.Path)
		require.Equal(t, "Bearer token-abc", r.Header.Get("Authorization"))

		payload := map[string]any{
			"files": map[string]any{
				"seen.json": map[string]any{
					"content": `["abc123", "def456"]`,
				},
			},
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	ids, err := newClient(t, srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"abc123", "def456"}, ids)
}

func TestLoadMissingFileStartsEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"files": map[string]any{}})
	}))
	defer srv.Close()

	ids, err := newClient(t, srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.Empty(t, ids)
}

func TestLoadServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Load(context.Background())
	require.ErrorIs(t, err, ledger.ErrUnavailable)
}

func TestLoadUnreachableHostIsUnavailable(t *testing.T) {
	c, err := ledger.New("http://127.0.0.1:1", "gist123", "", "seen.json", 200*time.Millisecond, nil)
	require.NoError(t, err)

	_, err = c.Load(context.Background())
	require.ErrorIs(t, err, ledger.ErrUnavailable)
}

func TestLoadMalformedContentIsNotUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"files": map[string]any{
				"seen.json": map[string]any{"content": "not json"},
			},
		}
		json.NewEncoder(w).Encode(payload)
	}))
	defer srv.Close()

	_, err := newClient(t, srv.URL).Load(context.Background())
	require.Error(t, err)
	require.NotErrorIs(t, err, ledger.ErrUnavailable)
}

func TestLoadFollowsTruncatedRawURL(t *testing.T) {
	mux := http.NewServeMux()
	srv := httptest.NewServer(mux)
	defer srv.Close()

	mux.HandleFunc("/raw/seen.json", func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `["abc123"]`)
	})
	mux.HandleFunc("/gists/gist123", func(w http.ResponseWriter, r *http.Request) {
		payload := map[string]any{
			"files": map[string]any{
				"seen.json": map[string]any{
					"content":   `["abc`,
					"truncated": true,
					"raw_url":   srv.URL + "/raw/seen.json",
				},
			},
		}
		json.NewEncoder(w).Encode(payload)
	})

	ids, err := newClient(t, srv.URL).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, []string{"abc123"}, ids)
}

func TestWriteSendsMergedList(t *testing.T) {
	var patched struct {
		Files map[string]struct {
			Content string `json:"content"`
		} `json:"files"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPatch, r.Method)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&patched))
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Write(context.Background(), []string{"abc123", "def456", "new789"})
	require.NoError(t, err)

	var ids []string
	require.NoError(t, json.Unmarshal([]byte(patched.Files["seen.json"].Content), &ids))
	require.Equal(t, []string{"abc123", "def456", "new789"}, ids)
}

func TestWriteServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusBadGateway)
	}))
	defer srv.Close()

	err := newClient(t, srv.URL).Write(context.Background(), []string{"a"})
	require.ErrorIs(t, err, ledger.ErrUnavailable)
}
