package models

import "time"

// RunSummary enumerates per-stage counts so silent data loss stays
// observable even though individual record failures never abort a run.
type RunSummary struct {
	Stage         string    `json:"stage"`
	RunID         string    `json:"run_id"`
	FinishedAt    time.Time `json:"finished_at"`
	Retrieved     int       `json:"retrieved,omitempty"`
	FilteredSeen  int       `json:"filtered_seen,omitempty"`
	FilteredNew   int       `json:"filtered_new,omitempty"`
	Normalized    int       `json:"normalized,omitempty"`
	Rejected      int       `json:"rejected,omitempty"`
	Published     int       `json:"published,omitempty"`
	PublishFailed int       `json:"publish_failed,omitempty"`
}
