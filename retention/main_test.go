package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func writeAged(t *testing.T, dir, name string, age time.Duration) {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte("{}"), 0o644))
	stamp := time.Now().Add(-age)
	require.NoError(t, os.Chtimes(path, stamp, stamp))
}

func TestPruneArtifactsRemovesOnlyOldArtifacts(t *testing.T) {
	dir := t.TempDir()
	writeAged(t, dir, "raw_2026-07-01.json", 40*24*time.Hour)
	writeAged(t, dir, "filtered_2026-07-01.json", 40*24*time.Hour)
	writeAged(t, dir, "normalized_2026-07-01.json", 40*24*time.Hour)
	writeAged(t, dir, "raw_2026-08-27.json", 24*time.Hour)
	writeAged(t, dir, "notes.txt", 40*24*time.Hour)           // not an artifact
	writeAged(t, dir, "backup_2026-07-01.json", 400*time.Hour) // unknown prefix

	removed, err := pruneArtifacts(dir, 30*24*time.Hour, time.Now())
	require.NoError(t, err)
	require.Equal(t, 3, removed)

	survivors, err := os.ReadDir(dir)
	require.NoError(t, err)
	names := make([]string, 0, len(survivors))
	for _, entry := range survivors {
		names = append(names, entry.Name())
	}
	require.ElementsMatch(t, []string{"raw_2026-08-27.json", "notes.txt", "backup_2026-07-01.json"}, names)
}

func TestPruneArtifactsEmptyDir(t *testing.T) {
	removed, err := pruneArtifacts(t.TempDir(), time.Hour, time.Now())
	require.NoError(t, err)
	require.Zero(t, removed)
}

func TestPruneArtifactsMissingDir(t *testing.T) {
	_, err := pruneArtifacts(filepath.Join(t.TempDir(), "nope"), time.Hour, time.Now())
	require.Error(t, err)
}

func TestIsArtifactFile(t *testing.T) {
	require.True(t, isArtifactFile("raw_2026-08-28.json"))
	require.True(t, isArtifactFile("filtered_2026-08-28.json"))
	require.True(t, isArtifactFile("normalized_2026-08-28.json"))
	require.False(t, isArtifactFile("raw_2026-08-28.json.tmp"))
	require.False(t, isArtifactFile("ledger.json"))
	require.False(t, isArtifactFile("raw_notes.txt"))
}
