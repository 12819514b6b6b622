// Package youtube queries the YouTube Data API v3 for recent uploads.
// See https://developers.google.com/youtube/v3/docs/
package youtube

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vidpipe/internal/models"
)

// ErrUnavailable reports that the source could not be reached or answered
// with a server-side failure. It is distinct from "no new content": an
// empty result inside the window is a normal outcome, this error is not.
var ErrUnavailable = errors.New("content source unavailable")

// ErrChannelNotFound reports that a subscribed channel could not be
// resolved. The channel is skipped, not the run.
var ErrChannelNotFound = errors.New("channel not found")

// Client wraps the YouTube Data API with the lookups this pipeline needs.
type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	log        *slog.Logger
}

// New builds a YouTube client.
func New(baseURL, apiKey string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("youtube: api key required")
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		log:        log,
	}, nil
}

// Query returns the channel's uploads published after since, oldest first,
// capped at max items. The channel may be a handle ("@somechannel") or a
// plain channel name.
func (c *Client) Query(ctx context.Context, channel string, since time.Time, max int) ([]models.RawRecord, error) {
	channelID, err := c.resolveChannelID(ctx, channel)
	if err != nil {
		return nil, err
	}

	playlistID, err := c.uploadsPlaylistID(ctx, channelID)
	if err != nil {
		return nil, err
	}

	items, err := c.recentPlaylistItems(ctx, playlistID, max)
	if err != nil {
		return nil, err
	}

	var inWindow []playlistItem
	for _, item := range items {
		if item.publishedAt.After(since) {
			inWindow = append(inWindow, item)
		}
	}
	if len(inWindow) == 0 {
		return nil, nil
	}

	details, err := c.videoDetails(ctx, videoIDs(inWindow))
	if err != nil {
		return nil, err
	}

	records := make([]models.RawRecord, 0, len(inWindow))
	for _, item := range inWindow {
		rec := models.RawRecord{
			ID:          item.videoID,
			Channel:     channel,
			ContentType: "youtube",
			Title:       item.title,
			Description: item.description,
			PublishedAt: item.publishedAt,
			URL:         "https://www.youtube.com/watch?v=" + item.videoID,
		}
		if d, ok := details[item.videoID]; ok {
			rec.Duration = d.duration
			rec.Stats = d.stats
		}
		records = append(records, rec)
	}

	// Oldest first, matching the batch artifact contract.
	for i, j := 0, len(records)-1; i < j; i, j = i+1, j-1 {
		records[i], records[j] = records[j], records[i]
	}
	return records, nil
}

func (c *Client) resolveChannelID(ctx context.Context, channel string) (string, error) {
	name := strings.TrimPrefix(strings.TrimSpace(channel), "@")

	var parsed struct {
		Items []struct {
			ID struct {
				ChannelID string `json:"channelId"`
			} `json:"id"`
		} `json:"items"`
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", name)
	params.Set("type", "channel")
	params.Set("maxResults", "1")
	if err := c.get(ctx, "/search", params, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Items) == 0 || parsed.Items[0].ID.ChannelID == "" {
		return "", fmt.Errorf("%w: %s", ErrChannelNotFound, channel)
	}
	return parsed.Items[0].ID.ChannelID, nil
}

func (c *Client) uploadsPlaylistID(ctx context.Context, channelID string) (string, error) {
	var parsed struct {
		Items []struct {
			ContentDetails struct {
				RelatedPlaylists struct {
					Uploads string `json:"uploads"`
				} `json:"relatedPlaylists"`
			} `json:"contentDetails"`
		} `json:"items"`
	}
	params := url.Values{}
	params.Set("part", "contentDetails")
	params.Set("id", channelID)
	if err := c.get(ctx, "/channels", params, &parsed); err != nil {
		return "", err
	}
	if len(parsed.Items) == 0 || parsed.Items[0].ContentDetails.RelatedPlaylists.Uploads == "" {
		return "", fmt.Errorf("%w: no uploads playlist for channel %s", ErrChannelNotFound, channelID)
	}
	return parsed.Items[0].ContentDetails.RelatedPlaylists.Uploads, nil
}

type playlistItem struct {
	videoID     string
	title       string
	description string
	publishedAt time.Time
}

func (c *Client) recentPlaylistItems(ctx context.Context, playlistID string, max int) ([]playlistItem, error) {
	var parsed struct {
		Items []struct {
			Snippet struct {
				Title       string `json:"title"`
				Description string `json:"description"`
				PublishedAt string `json:"publishedAt"`
				ResourceID  struct {
					VideoID string `json:"videoId"`
				} `json:"resourceId"`
			} `json:"snippet"`
		} `json:"items"`
	}
	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("playlistId", playlistID)
	params.Set("maxResults", strconv.Itoa(max))
	if err := c.get(ctx, "/playlistItems", params, &parsed); err != nil {
		return nil, err
	}

	items := make([]playlistItem, 0, len(parsed.Items))
	for _, raw := range parsed.Items {
		ts, err := time.Parse(time.RFC3339, raw.Snippet.PublishedAt)
		if err != nil {
			c.log.Warn("skipping item with unparseable publishedAt",
				slog.String("video_id", raw.Snippet.ResourceID.VideoID),
				slog.String("published_at", raw.Snippet.PublishedAt),
			)
			continue
		}
		items = append(items, playlistItem{
			videoID:     raw.Snippet.ResourceID.VideoID,
			title:       raw.Snippet.Title,
			description: raw.Snippet.Description,
			publishedAt: ts.UTC(),
		})
	}
	return items, nil
}

type videoDetail struct {
	duration string
	stats    *models.Stats
}

func (c *Client) videoDetails(ctx context.Context, ids []string) (map[string]videoDetail, error) {
	var parsed struct {
		Items []struct {
			ID             string `json:"id"`
			ContentDetails struct {
				Duration string `json:"duration"`
			} `json:"contentDetails"`
			Statistics struct {
				ViewCount    string `json:"viewCount"`
				LikeCount    string `json:"likeCount"`
				CommentCount string `json:"commentCount"`
			} `json:"statistics"`
		} `json:"items"`
	}
	params := url.Values{}
	params.Set("part", "contentDetails,statistics")
	params.Set("id", strings.Join(ids, ","))
	if err := c.get(ctx, "/videos", params, &parsed); err != nil {
		return nil, err
	}

	details := make(map[string]videoDetail, len(parsed.Items))
	for _, item := range parsed.Items {
		d := videoDetail{duration: item.ContentDetails.Duration}
		if item.Statistics.ViewCount != "" {
			d.stats = &models.Stats{
				Views:    parseCount(item.Statistics.ViewCount),
				Likes:    parseCount(item.Statistics.LikeCount),
				Comments: parseCount(item.Statistics.CommentCount),
			}
		}
		details[item.ID] = d
	}
	return details, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, target any) error {
	params.Set("key", c.apiKey)
	endpoint := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("youtube: build request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUnavailable, path, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: read %s response: %v", ErrUnavailable, path, err)
	}

	switch {
	case resp.StatusCode == http.StatusOK:
	case resp.StatusCode == http.StatusTooManyRequests,
		resp.StatusCode == http.StatusForbidden, // quota exhaustion
		resp.StatusCode >= http.StatusInternalServerError:
		return fmt.Errorf("%w: %s: http %d", ErrUnavailable, path, resp.StatusCode)
	default:
		return fmt.Errorf("youtube: %s: http %d: %s", path, resp.StatusCode, summarize(body))
	}

	if err := json.Unmarshal(body, target); err != nil {
		return fmt.Errorf("youtube: decode %s response: %w", path, err)
	}
	return nil
}

func videoIDs(items []playlistItem) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.videoID)
	}
	return ids
}

func parseCount(raw string) int64 {
	n, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil {
		return 0
	}
	return n
}

func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
