// Package ledger persists the set of already-processed video IDs in a
// GitHub gist, giving scheduled runs durable state without any
// infrastructure of their own.
package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// ErrUnavailable reports that the ledger store could not be reached or
// refused the request. The filter stage fails closed on it: without a
// trustworthy ledger no filtered batch may be emitted.
var ErrUnavailable = errors.New("ledger unavailable")

// Client reads and writes the ledger gist.
type Client struct {
	httpClient *http.Client
	apiBase    string
	gistID     string
	token      string
	file       string
	log        *slog.Logger
}

// New builds a ledger client. token may be empty for public read-only
// gists, but writes then fail.
func New(apiBase, gistID, token, file string, timeout time.Duration, log *slog.Logger) (*Client, error) {
	if strings.TrimSpace(gistID) == "" {
		return nil, errors.New("ledger: gist id required")
	}
	if strings.TrimSpace(file) == "" {
		return nil, errors.New("ledger: gist file name required")
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		apiBase:    strings.TrimRight(apiBase, "/"),
		gistID:     gistID,
		token:      token,
		file:       file,
		log:        log,
	}, nil
}

type gistFile struct {
	Content   string `json:"content"`
	Truncated bool   `json:"truncated"`
	RawURL    string `json:"raw_url"`
}

type gistPayload struct {
	Files map[string]gistFile `json:"files"`
}

// Load fetches the current identifier list. A gist that does not yet
// contain the ledger file yields an empty list (first run); any transport
// or server failure yields ErrUnavailable.
func (c *Client) Load(ctx context.Context) ([]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.gistURL(), nil)
	if err != nil {
		return nil, fmt.Errorf("ledger: build request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: fetch gist: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: read gist response: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: fetch gist: http %d: %s",
			ErrUnavailable, resp.StatusCode, summarize(body))
	}

	var payload gistPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("ledger: decode gist payload: %w", err)
	}

	file, ok := payload.Files[c.file]
	if !ok {
		c.log.Info("ledger file absent in gist, starting empty", slog.String("file", c.file))
		return []string{}, nil
	}

	content := file.Content
	if file.Truncated {
		// The gist API truncates large files; the raw URL serves the whole thing.
		content, err = c.fetchRaw(ctx, file.RawURL)
		if err != nil {
			return nil, err
		}
	}

	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return []string{}, nil
	}

	var ids []string
	if err := json.Unmarshal([]byte(trimmed), &ids); err != nil {
		return nil, fmt.Errorf("ledger: parse %s: %w", c.file, err)
	}
	return ids, nil
}

// Write persists the full merged identifier list. Callers must pass the
// loaded snapshot plus this run's additions; Write never computes the merge
// itself, keeping the read-modify-write cycle explicit at the call site.
func (c *Client) Write(ctx context.Context, ids []string) error {
	content, err := json.MarshalIndent(ids, "", "  ")
	if err != nil {
		return fmt.Errorf("ledger: marshal identifier list: %w", err)
	}

	update := map[string]any{
		"files": map[string]any{
			c.file: map[string]string{"content": string(content)},
		},
	}
	encoded, err := json.Marshal(update)
	if err != nil {
		return fmt.Errorf("ledger: marshal gist update: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.gistURL(), bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("ledger: build update request: %w", err)
	}
	c.setHeaders(req)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: update gist: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%w: update gist: http %d: %s",
			ErrUnavailable, resp.StatusCode, summarize(body))
	}
	return nil
}

func (c *Client) fetchRaw(ctx context.Context, rawURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("ledger: build raw request: %w", err)
	}
	c.setHeaders(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: fetch raw content: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("%w: read raw content: %v", ErrUnavailable, err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: fetch raw content: http %d", ErrUnavailable, resp.StatusCode)
	}
	return string(body), nil
}

func (c *Client) gistURL() string {
	return c.apiBase + "/gists/" + c.gistID
}

func (c *Client) setHeaders(req *http.Request) {
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

func summarize(body []byte) string {
	s := strings.TrimSpace(string(body))
	if len(s) > 200 {
		s = s[:200] + "..."
	}
	return s
}
