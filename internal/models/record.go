package models

import "time"

// Stats carries the optional activity counters reported by the source.
type Stats struct {
	Views    int64 `json:"views"`
	Likes    int64 `json:"likes"`
	Comments int64 `json:"comments"`
}

// RawRecord is one discovered video exactly as the source reported it.
// Duration keeps the source-native encoding (ISO-8601 "PT1H2M3S" for the
// YouTube API, already-humanized for other connectors).
type RawRecord struct {
	ID          string    `json:"id"`
	Channel     string    `json:"channel"`
	ContentType string    `json:"content_type"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	PublishedAt time.Time `json:"published_at"`
	Duration    string    `json:"duration"`
	URL         string    `json:"url"`
	Stats       *Stats    `json:"stats,omitempty"`
}

// NormalizedRecord is the canonical structured form produced by the
// normalizer stage. Every field except Stats is required and non-null;
// Summary is always a list, possibly empty.
type NormalizedRecord struct {
	Title       string   `json:"title"`
	Channel     string   `json:"channel"`
	ContentType string   `json:"content_type"`
	PublishDate string   `json:"publish_date"` // YYYY-MM-DD
	Duration    string   `json:"duration"`     // human-readable, e.g. "1h 2m 3s"
	URL         string   `json:"url"`
	Summary     []string `json:"summary"`
	Stats       *string  `json:"stats,omitempty"`
}

// Per-record normalization outcomes.
const (
	StatusNormalized = "normalized"
	StatusRejected   = "rejected"
)

// NormalizedResult ties a normalization outcome to its source record.
// Record is nil when Status is StatusRejected; Reason is empty when
// Status is StatusNormalized.
type NormalizedResult struct {
	SourceID string            `json:"source_id"`
	Status   string            `json:"status"`
	Reason   string            `json:"reason,omitempty"`
	Record   *NormalizedRecord `json:"record,omitempty"`
}
