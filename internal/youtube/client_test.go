package youtube_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vidpipe/internal/youtube"
)

// fakeAPI serves the minimal slice of the YouTube Data API the client uses.
func fakeAPI(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/search", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "channel", r.URL.Query().Get("type"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"id": map[string]any{"channelId": "UCchan1"}},
			},
		})
	})

	mux.HandleFunc("/channels", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "UCchan1", r.URL.Query().Get("id"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"contentDetails": map[string]any{
					"relatedPlaylists": map[string]any{"uploads": "UUchan1"},
				}},
			},
		})
	})

	mux.HandleFunc("/playlistItems", func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "UUchan1", r.URL.Query().Get("playlistId"))
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{"snippet": map[string]any{
					"title":       "Newest Video",
					"description": "fresh content",
					"publishedAt": "2026-08-28T08:00:00Z",
					"resourceId":  map[string]any{"videoId": "vid-new"},
				}},
				{"snippet": map[string]any{
					"title":       "Older Video",
					"description": "older content",
					"publishedAt": "2026-08-27T08:00:00Z",
					"resourceId":  map[string]any{"videoId": "vid-old"},
				}},
				{"snippet": map[string]any{
					"title":       "Ancient Video",
					"description": "out of window",
					"publishedAt": "2026-08-01T08:00:00Z",
					"resourceId":  map[string]any{"videoId": "vid-ancient"},
				}},
			},
		})
	})

	mux.HandleFunc("/videos", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{
			"items": []map[string]any{
				{
					"id":             "vid-new",
					"contentDetails": map[string]any{"duration": "PT15M33S"},
					"statistics": map[string]any{
						"viewCount":    "1200",
						"likeCount":    "80",
						"commentCount": "7",
					},
				},
				{
					"id":             "vid-old",
					"contentDetails": map[string]any{"duration": "PT1H2M"},
					"statistics":     map[string]any{"viewCount": "300"},
				},
			},
		})
	})

	return httptest.NewServer(mux)
}

func TestQueryReturnsWindowedRecordsAscending(t *testing.T) {
	srv := fakeAPI(t)
	defer srv.Close()

	client, err := youtube.New(srv.URL, "test-key", 5*time.Second, nil)
	require.NoError(t, err)

	since := time.Date(2026, 8, 26, 0, 0, 0, 0, time.UTC)
	records, err := client.Query(context.Background(), "@SomeChannel", since, 10)
	require.NoError(t, err)
	require.Len(t, records, 2) // vid-ancient is outside the window

	// Oldest first.
	require.Equal(t, "vid-old", records[0].ID)
	require.Equal(t, "vid-new", records[1].ID)

	newest := records[1]
	require.Equal(t, "@SomeChannel", newest.Channel)
	require.Equal(t, "youtube", newest.ContentType)
	require.Equal(t, "Newest Video", newest.Title)
	require.Equal(t, "PT15M33S", newest.Duration)
	require.Equal(t, "https://www.youtube.com/watch?v=vid-new", newest.URL)
	require.NotNil(t, newest.Stats)
	require.Equal(t, int64(1200), newest.Stats.Views)
	require.Equal(t, int64(80), newest.Stats.Likes)
}

func TestQueryEmptyWindowIsNotAnError(t *testing.T) {
	srv := fakeAPI(t)
	defer srv.Close()

	client, err := youtube.New(srv.URL, "test-key", 5*time.Second, nil)
	require.NoError(t, err)

	since := time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)
	records, err := client.Query(context.Background(), "@SomeChannel", since, 10)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestQueryServerErrorIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "backend down", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client, err := youtube.New(srv.URL, "test-key", 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "@SomeChannel", time.Now().Add(-24*time.Hour), 10)
	require.ErrorIs(t, err, youtube.ErrUnavailable)
}

func TestQueryQuotaExhaustionIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "quotaExceeded", http.StatusForbidden)
	}))
	defer srv.Close()

	client, err := youtube.New(srv.URL, "test-key", 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "@SomeChannel", time.Now().Add(-24*time.Hour), 10)
	require.ErrorIs(t, err, youtube.ErrUnavailable)
}

func TestQueryUnknownChannel(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"items": []any{}})
	}))
	defer srv.Close()

	client, err := youtube.New(srv.URL, "test-key", 5*time.Second, nil)
	require.NoError(t, err)

	_, err = client.Query(context.Background(), "@NoSuchChannel", time.Now().Add(-24*time.Hour), 10)
	require.ErrorIs(t, err, youtube.ErrChannelNotFound)
}
