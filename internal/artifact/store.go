// Package artifact implements the durable hand-off between stage binaries.
// Each stage writes one dated JSON file; the next stage reads it in a later
// process. A missing file signals an upstream failure and is reported as
// ErrNotFound, while a file holding zero records is a legitimate empty batch.
package artifact

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"vidpipe/internal/models"
)

// SchemaVersion is stamped into every envelope so a stage can refuse input
// written by an incompatible build.
const SchemaVersion = 1

// Stage names used in artifact file names and envelopes.
const (
	StageRaw        = "raw"
	StageFiltered   = "filtered"
	StageNormalized = "normalized"
)

// ErrNotFound reports that no artifact exists for the requested stage and
// date. Callers must treat it differently from an empty batch.
var ErrNotFound = errors.New("artifact not found")

// Meta is the self-describing envelope header shared by all batch artifacts.
type Meta struct {
	SchemaVersion int       `json:"schema_version"`
	Stage         string    `json:"stage"`
	RunID         string    `json:"run_id"`
	GeneratedAt   time.Time `json:"generated_at"`
}

// NewMeta stamps a fresh envelope header for the given stage.
func NewMeta(stage string) Meta {
	return Meta{
		SchemaVersion: SchemaVersion,
		Stage:         stage,
		RunID:         uuid.NewString(),
		GeneratedAt:   time.Now().UTC(),
	}
}

// RawBatch is the retriever's output artifact.
type RawBatch struct {
	Meta
	Records []models.RawRecord `json:"records"`
}

// FilteredBatch is the dedup filter's output artifact. Records are the
// subset of the raw batch confirmed absent from the ledger.
type FilteredBatch struct {
	Meta
	Records []models.RawRecord `json:"records"`
}

// NormalizedBatch is the normalizer's output artifact: one result per
// filtered record, normalized or rejected, never partial.
type NormalizedBatch struct {
	Meta
	Results []models.NormalizedResult `json:"results"`
}

// Store reads and writes stage artifacts under a shared data directory.
type Store struct {
	dir string
}

// NewStore creates the data directory if needed and returns a store over it.
func NewStore(dir string) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("artifact store: data dir required")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("artifact store: create data dir: %w", err)
	}
	return &Store{dir: dir}, nil
}

// Date formats a timestamp as the calendar date used in artifact file names.
func Date(t time.Time) string {
	return t.UTC().Format("2006-01-02")
}

func (s *Store) path(stage, date string) string {
	return filepath.Join(s.dir, stage+"_"+date+".json")
}

// WriteRaw persists the retriever's batch for the given date.
func (s *Store) WriteRaw(date string, batch RawBatch) error {
	return s.write(StageRaw, date, batch)
}

// ReadRaw loads the retriever's batch for the given date.
func (s *Store) ReadRaw(date string) (*RawBatch, error) {
	var batch RawBatch
	if err := s.read(StageRaw, date, &batch); err != nil {
		return nil, err
	}
	if err := checkMeta(batch.Meta, StageRaw); err != nil {
		return nil, err
	}
	return &batch, nil
}

// WriteFiltered persists the dedup filter's batch for the given date.
func (s *Store) WriteFiltered(date string, batch FilteredBatch) error {
	return s.write(StageFiltered, date, batch)
}

// ReadFiltered loads the dedup filter's batch for the given date.
func (s *Store) ReadFiltered(date string) (*FilteredBatch, error) {
	var batch FilteredBatch
	if err := s.read(StageFiltered, date, &batch); err != nil {
		return nil, err
	}
	if err := checkMeta(batch.Meta, StageFiltered); err != nil {
		return nil, err
	}
	return &batch, nil
}

// WriteNormalized persists the normalizer's batch for the given date.
func (s *Store) WriteNormalized(date string, batch NormalizedBatch) error {
	return s.write(StageNormalized, date, batch)
}

// ReadNormalized loads the normalizer's batch for the given date.
func (s *Store) ReadNormalized(date string) (*NormalizedBatch, error) {
	var batch NormalizedBatch
	if err := s.read(StageNormalized, date, &batch); err != nil {
		return nil, err
	}
	if err := checkMeta(batch.Meta, StageNormalized); err != nil {
		return nil, err
	}
	return &batch, nil
}

// LatestRawGeneratedAt returns the generated_at of the newest raw artifact,
// used by the retriever as its lookback watermark. Returns ErrNotFound when
// no raw artifact exists yet.
func (s *Store) LatestRawGeneratedAt() (time.Time, error) {
	matches, err := filepath.Glob(filepath.Join(s.dir, StageRaw+"_*.json"))
	if err != nil {
		return time.Time{}, fmt.Errorf("artifact store: list raw artifacts: %w", err)
	}
	if len(matches) == 0 {
		return time.Time{}, ErrNotFound
	}

	// Dated file names sort chronologically.
	sort.Strings(matches)
	raw, err := os.ReadFile(matches[len(matches)-1])
	if err != nil {
		return time.Time{}, fmt.Errorf("artifact store: read latest raw artifact: %w", err)
	}

	var batch RawBatch
	if err := json.Unmarshal(raw, &batch); err != nil {
		return time.Time{}, fmt.Errorf("artifact store: decode latest raw artifact: %w", err)
	}
	if batch.GeneratedAt.IsZero() {
		return time.Time{}, fmt.Errorf("artifact store: latest raw artifact has no generated_at")
	}
	return batch.GeneratedAt, nil
}

// write marshals the batch and lands it atomically: a torn write must never
// be observable as a valid artifact by the next stage.
func (s *Store) write(stage, date string, batch any) error {
	payload, err := json.MarshalIndent(batch, "", "  ")
	if err != nil {
		return fmt.Errorf("artifact store: marshal %s batch: %w", stage, err)
	}

	target := s.path(stage, date)
	tmp, err := os.CreateTemp(s.dir, stage+"_*.tmp")
	if err != nil {
		return fmt.Errorf("artifact store: create temp file: %w", err)
	}

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("artifact store: write %s batch: %w", stage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("artifact store: sync %s batch: %w", stage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("artifact store: close temp file: %w", err)
	}

	if err := os.Rename(tmp.Name(), target); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("artifact store: publish %s batch: %w", stage, err)
	}
	return nil
}

func (s *Store) read(stage, date string, target any) error {
	raw, err := os.ReadFile(s.path(stage, date))
	if err != nil {
		if os.IsNotExist(err) {
			return fmt.Errorf("%w: %s for %s", ErrNotFound, stage, date)
		}
		return fmt.Errorf("artifact store: read %s batch: %w", stage, err)
	}
	if err := json.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("artifact store: decode %s batch: %w", stage, err)
	}
	return nil
}

func checkMeta(meta Meta, stage string) error {
	if meta.SchemaVersion != SchemaVersion {
		return fmt.Errorf("artifact store: %s batch has schema version %d, want %d",
			stage, meta.SchemaVersion, SchemaVersion)
	}
	if meta.Stage != stage {
		return fmt.Errorf("artifact store: batch labeled %q, want %q", meta.Stage, stage)
	}
	return nil
}
