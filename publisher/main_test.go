package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"vidpipe/internal/models"
)

// flakyUpserter fails a configurable number of times per URL, then succeeds,
// recording every entry it accepted.
type flakyUpserter struct {
	failures map[string]int
	calls    map[string]int
	accepted []models.PublishedEntry
}

func newFlakyUpserter(failures map[string]int) *flakyUpserter {
	return &flakyUpserter{failures: failures, calls: map[string]int{}}
}

func (u *flakyUpserter) Upsert(_ context.Context, entry models.PublishedEntry) error {
	u.calls[entry.URL]++
	if u.calls[entry.URL] <= u.failures[entry.URL] {
		return errors.New("cluster busy")
	}
	u.accepted = append(u.accepted, entry)
	return nil
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func normalized(id string) models.NormalizedResult {
	return models.NormalizedResult{
		SourceID: id,
		Status:   models.StatusNormalized,
		Record: &models.NormalizedRecord{
			Title:       "Title " + id,
			Channel:     "@c",
			ContentType: "youtube",
			PublishDate: "2026-08-27",
			Duration:    "5m",
			URL:         "https://www.youtube.com/watch?v=" + id,
			Summary:     []string{"point"},
		},
	}
}

func rejected(id, reason string) models.NormalizedResult {
	return models.NormalizedResult{SourceID: id, Status: models.StatusRejected, Reason: reason}
}

func TestPublishCountsEveryOutcome(t *testing.T) {
	kb := newFlakyUpserter(nil)
	results := []models.NormalizedResult{
		normalized("vid1"),
		rejected("vid2", "summary is not a list of strings"),
		normalized("vid3"),
	}

	summary := publish(context.Background(), discard(), kb, results, 1, time.Millisecond)
	require.Equal(t, 2, summary.Published)
	require.Equal(t, 1, summary.Rejected)
	require.Zero(t, summary.PublishFailed)
	require.Len(t, kb.accepted, 2)
	require.Equal(t, "Title vid1", kb.accepted[0].Title)
}

func TestPublishRetriesTransientFailure(t *testing.T) {
	url := "https://www.youtube.com/watch?v=vid1"
	kb := newFlakyUpserter(map[string]int{url: 2})

	summary := publish(context.Background(), discard(), kb, []models.NormalizedResult{normalized("vid1")}, 4, time.Millisecond)
	require.Equal(t, 1, summary.Published)
	require.Zero(t, summary.PublishFailed)
	require.Equal(t, 3, kb.calls[url])
}

func TestPublishExhaustedRetriesFailTheRecordNotTheBatch(t *testing.T) {
	failing := "https://www.youtube.com/watch?v=vid1"
	kb := newFlakyUpserter(map[string]int{failing: 10})

	summary := publish(context.Background(), discard(), kb, []models.NormalizedResult{
		normalized("vid1"),
		normalized("vid2"),
	}, 2, time.Millisecond)

	require.Equal(t, 1, summary.PublishFailed)
	require.Equal(t, 1, summary.Published)
	require.Equal(t, 2, kb.calls[failing])
	require.Len(t, kb.accepted, 1)
	require.Equal(t, "Title vid2", kb.accepted[0].Title)
}

func TestPublishRerunIsIdempotentAtTheUpsertKey(t *testing.T) {
	kb := newFlakyUpserter(nil)
	results := []models.NormalizedResult{normalized("vid1")}

	publish(context.Background(), discard(), kb, results, 1, time.Millisecond)
	publish(context.Background(), discard(), kb, results, 1, time.Millisecond)

	// Same URL both times: the knowledge base keys on it, so a re-run
	// overwrites rather than duplicates.
	require.Len(t, kb.accepted, 2)
	require.Equal(t, kb.accepted[0].URL, kb.accepted[1].URL)
}

func TestUpsertWithRetryStopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	kb := canceledUpserter{}
	err := upsertWithRetry(ctx, kb, models.PublishedEntry{URL: "u"}, 3, time.Millisecond)
	require.ErrorIs(t, err, context.Canceled)
}

type canceledUpserter struct{}

func (canceledUpserter) Upsert(ctx context.Context, _ models.PublishedEntry) error {
	return ctx.Err()
}
