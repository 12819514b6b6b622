package main

import (
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"

	"vidpipe/internal/dedupe"
	"vidpipe/internal/models"
)

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func record(id string) models.RawRecord {
	return models.RawRecord{ID: id, Channel: "@c", Title: "t " + id}
}

func TestPartitionSplitsSeenFromNew(t *testing.T) {
	set := dedupe.NewSet([]string{"abc123"})

	fresh, seen := partition(discard(), set, []models.RawRecord{
		record("abc123"), // already in the ledger
		record("def456"),
		record("ghi789"),
	})

	require.Equal(t, 1, seen)
	require.Len(t, fresh, 2)
	require.Equal(t, "def456", fresh[0].ID)
	require.Equal(t, "ghi789", fresh[1].ID)

	// The ledger delta is exactly the emitted records.
	require.Equal(t, []string{"def456", "ghi789"}, set.Added())
	require.Equal(t, []string{"abc123", "def456", "ghi789"}, set.Merged())
}

func TestPartitionDropsIntraBatchDuplicates(t *testing.T) {
	set := dedupe.NewSet(nil)

	fresh, seen := partition(discard(), set, []models.RawRecord{
		record("dup"), record("dup"), record("other"),
	})

	require.Equal(t, 1, seen)
	require.Len(t, fresh, 2)
	require.Equal(t, []string{"dup", "other"}, set.Added())
}

func TestPartitionHonorsExclusions(t *testing.T) {
	set := dedupe.NewSet([]string{"old1"})
	set.Exclude([]string{"banned"})

	fresh, seen := partition(discard(), set, []models.RawRecord{
		record("banned"), record("new1"),
	})

	require.Equal(t, 1, seen)
	require.Len(t, fresh, 1)
	require.Equal(t, "new1", fresh[0].ID)

	// Exclusions never enter the ledger.
	require.Equal(t, []string{"old1", "new1"}, set.Merged())
}

func TestPartitionEmptyBatch(t *testing.T) {
	set := dedupe.NewSet([]string{"x"})

	fresh, seen := partition(discard(), set, nil)
	require.Empty(t, fresh)
	require.Zero(t, seen)
	require.Empty(t, set.Added())
}
