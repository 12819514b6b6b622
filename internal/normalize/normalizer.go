// Package normalize turns filtered raw records into the canonical schema
// via a generative completion step. The model's output is treated as
// untrusted input: every response is validated field by field, and a record
// that cannot be validated is rejected without aborting the batch.
package normalize

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"sync"
	"time"

	"vidpipe/internal/llm"
	"vidpipe/internal/models"
)

// Completer is the slice of the completion client this package needs.
type Completer interface {
	CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Normalizer runs the transformation over a batch with bounded parallelism.
type Normalizer struct {
	completer   Completer
	concurrency int
	log         *slog.Logger
}

// New builds a Normalizer. concurrency caps in-flight completion calls.
func New(completer Completer, concurrency int, log *slog.Logger) *Normalizer {
	if concurrency <= 0 {
		concurrency = 1
	}
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Normalizer{completer: completer, concurrency: concurrency, log: log}
}

// Run normalizes every record and returns one result per input, in input
// order. It always waits for all outstanding calls: the returned batch is
// complete, never partial.
func (n *Normalizer) Run(ctx context.Context, records []models.RawRecord) []models.NormalizedResult {
	results := make([]models.NormalizedResult, len(records))
	sem := make(chan struct{}, n.concurrency)
	var wg sync.WaitGroup

	for i, rec := range records {
		wg.Add(1)
		go func(i int, rec models.RawRecord) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = n.normalizeOne(ctx, rec)
		}(i, rec)
	}
	wg.Wait()

	return results
}

// candidate mirrors the response contract. Summary stays raw so a null,
// missing, or mistyped field can be coerced or rejected explicitly instead
// of surprising us at unmarshal time.
type candidate struct {
	Title       string          `json:"title"`
	PublishDate string          `json:"publish_date"`
	Duration    string          `json:"duration"`
	Summary     json.RawMessage `json:"summary"`
	Stats       *string         `json:"stats"`
}

func (n *Normalizer) normalizeOne(ctx context.Context, rec models.RawRecord) models.NormalizedResult {
	reject := func(reason string) models.NormalizedResult {
		n.log.Warn("record rejected", slog.String("id", rec.ID), slog.String("reason", reason))
		return models.NormalizedResult{SourceID: rec.ID, Status: models.StatusRejected, Reason: reason}
	}

	response, err := n.completer.CompleteJSON(ctx, systemPrompt, buildUserPrompt(rec))
	if err != nil {
		return reject(fmt.Sprintf("completion failed: %v", err))
	}

	var cand candidate
	if err := llm.DecodeJSON(response, &cand); err != nil {
		return reject(fmt.Sprintf("response is not valid JSON: %v", err))
	}

	record, reason := n.validate(rec, cand)
	if reason != "" {
		return reject(reason)
	}

	return models.NormalizedResult{
		SourceID: rec.ID,
		Status:   models.StatusNormalized,
		Record:   record,
	}
}

// validate checks the candidate against the canonical schema and assembles
// the normalized record. Identity fields (channel, content type, URL) come
// from the source record, never from the model: the URL is the upsert key
// and must stay beyond the model's reach.
func (n *Normalizer) validate(rec models.RawRecord, cand candidate) (*models.NormalizedRecord, string) {
	title := strings.TrimSpace(cand.Title)
	if title == "" {
		title = strings.TrimSpace(rec.Title)
	}
	if title == "" {
		return nil, "title is empty"
	}

	if strings.TrimSpace(rec.Channel) == "" {
		return nil, "source record has no channel"
	}
	if strings.TrimSpace(rec.URL) == "" {
		return nil, "source record has no URL"
	}

	publishDate, ok := parseCalendarDate(cand.PublishDate)
	if !ok {
		return nil, fmt.Sprintf("publish_date %q is not a calendar date", cand.PublishDate)
	}

	duration := HumanDuration(cand.Duration)
	if duration == "" {
		duration = HumanDuration(rec.Duration)
	}
	if duration == "" {
		return nil, "duration is empty"
	}

	summary, ok := coerceSummary(cand.Summary)
	if !ok {
		return nil, "summary is not a list of strings"
	}

	stats := cand.Stats
	if stats != nil && strings.TrimSpace(*stats) == "" {
		stats = nil
	}
	if stats == nil && rec.Stats != nil {
		line := fmt.Sprintf("%d views, %d likes, %d comments",
			rec.Stats.Views, rec.Stats.Likes, rec.Stats.Comments)
		stats = &line
	}

	contentType := rec.ContentType
	if contentType == "" {
		contentType = "youtube"
	}

	return &models.NormalizedRecord{
		Title:       title,
		Channel:     rec.Channel,
		ContentType: contentType,
		PublishDate: publishDate,
		Duration:    duration,
		URL:         rec.URL,
		Summary:     summary,
		Stats:       stats,
	}, ""
}

// parseCalendarDate accepts a date-only value or a full timestamp and
// returns the date-only form.
func parseCalendarDate(raw string) (string, bool) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return "", false
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if ts, err := time.Parse(layout, trimmed); err == nil {
			return ts.UTC().Format("2006-01-02"), true
		}
	}
	return "", false
}

// coerceSummary enforces the list invariant: null or missing becomes an
// empty list, a JSON array of strings passes through, anything else (a bare
// string, a number, an object) fails validation.
func coerceSummary(raw json.RawMessage) ([]string, bool) {
	trimmed := strings.TrimSpace(string(raw))
	if trimmed == "" || trimmed == "null" {
		return []string{}, true
	}

	var items []string
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil, false
	}

	out := make([]string, 0, len(items))
	for _, item := range items {
		if cleaned := strings.TrimSpace(item); cleaned != "" {
			out = append(out, cleaned)
		}
	}
	return out, true
}
