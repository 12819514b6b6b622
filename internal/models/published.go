package models

import "time"

// PublishedEntry is the knowledge-base representation of a normalized
// record. The store keys it by a digest of URL, so publishing the same
// record twice updates one document instead of creating a second.
type PublishedEntry struct {
	SourceID    string    `json:"source_id"`
	Title       string    `json:"title"`
	Channel     string    `json:"channel"`
	ContentType string    `json:"content_type"`
	PublishDate string    `json:"publish_date"`
	Duration    string    `json:"duration"`
	URL         string    `json:"url"`
	Summary     []string  `json:"summary"`
	Stats       *string   `json:"stats,omitempty"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// EntryFromResult builds the knowledge-base document for a normalized result.
func EntryFromResult(res NormalizedResult, now time.Time) PublishedEntry {
	rec := res.Record
	return PublishedEntry{
		SourceID:    res.SourceID,
		Title:       rec.Title,
		Channel:     rec.Channel,
		ContentType: rec.ContentType,
		PublishDate: rec.PublishDate,
		Duration:    rec.Duration,
		URL:         rec.URL,
		Summary:     rec.Summary,
		Stats:       rec.Stats,
		UpdatedAt:   now.UTC(),
	}
}
