package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"vidpipe/internal/config"
	"vidpipe/internal/logger"
)

// Stage artifacts accumulate one file per stage per day. The knowledge base
// itself is never pruned here; only the hand-off files age out.
func main() {
	log := logger.New("retention")
	cfg, err := config.LoadRetention()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ticker := time.NewTicker(cfg.Interval)
	defer ticker.Stop()

	log.Info("retention job running",
		slog.String("data_dir", cfg.DataDir),
		slog.Duration("interval", cfg.Interval),
		slog.Duration("max_age", cfg.MaxAge),
	)

	runOnce(log, cfg)

	for {
		select {
		case <-ctx.Done():
			log.Info("shutdown signal received")
			return
		case <-ticker.C:
			runOnce(log, cfg)
		}
	}
}

func runOnce(log *slog.Logger, cfg *config.Retention) {
	removed, err := pruneArtifacts(cfg.DataDir, cfg.MaxAge, time.Now())
	if err != nil {
		log.Warn("retention run failed (will retry on next interval)", slog.Any("err", err))
		return
	}

	if removed > 0 {
		log.Info("retention run completed", slog.Int("removed", removed))
	} else {
		log.Debug("retention run completed, no old artifacts found")
	}
}

// pruneArtifacts deletes stage artifact files whose modification time is
// older than maxAge. Non-artifact files in the data dir are left alone.
func pruneArtifacts(dir string, maxAge time.Duration, now time.Time) (int, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, err
	}

	cutoff := now.Add(-maxAge)
	removed := 0
	for _, entry := range entries {
		if entry.IsDir() || !isArtifactFile(entry.Name()) {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		if err := os.Remove(filepath.Join(dir, entry.Name())); err != nil {
			return removed, err
		}
		removed++
	}
	return removed, nil
}

func isArtifactFile(name string) bool {
	if !strings.HasSuffix(name, ".json") {
		return false
	}
	for _, prefix := range []string{"raw_", "filtered_", "normalized_"} {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}
