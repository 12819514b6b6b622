package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"vidpipe/internal/artifact"
	"vidpipe/internal/config"
	"vidpipe/internal/elasticsearch"
	"vidpipe/internal/events"
	"vidpipe/internal/logger"
	"vidpipe/internal/models"
)

type entryUpserter interface {
	Upsert(ctx context.Context, entry models.PublishedEntry) error
}

func main() {
	log := logger.New("publisher")
	cfg, err := config.LoadPublisher()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := artifact.NewStore(cfg.DataDir)
	if err != nil {
		log.Error("init artifact store", slog.Any("err", err))
		os.Exit(1)
	}

	esClient, err := elasticsearch.New(cfg.ElasticsearchAddr, cfg.ElasticsearchIndex, log)
	if err != nil {
		log.Error("init elasticsearch", slog.Any("err", err))
		os.Exit(1)
	}

	emitter := events.New(cfg.KafkaBrokers, cfg.EventsTopic, log)
	defer emitter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	date := artifact.Date(time.Now())
	normalized, err := store.ReadNormalized(date)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			log.Error("no normalized artifact for today, normalizer did not run or failed", slog.String("date", date))
		} else {
			log.Error("read normalized artifact", slog.Any("err", err))
		}
		os.Exit(1)
	}

	summary := publish(ctx, log, esClient, normalized.Results, cfg.MaxAttempts, cfg.BackoffBase)
	summary.RunID = normalized.RunID
	emitter.Emit(ctx, summary)

	log.Info("run complete",
		slog.String("date", date),
		slog.Int("published", summary.Published),
		slog.Int("rejected", summary.Rejected),
		slog.Int("publish_failed", summary.PublishFailed),
	)
}

// publish upserts every normalized result into the knowledge base. Rejected
// records are surfaced in the counts, never silently dropped. A failing
// upsert is retried with exponential backoff; exhaustion marks that record
// failed and the batch continues.
func publish(ctx context.Context, log *slog.Logger, kb entryUpserter, results []models.NormalizedResult, maxAttempts int, backoffBase time.Duration) models.RunSummary {
	summary := models.RunSummary{
		Stage:      "published",
		FinishedAt: time.Now().UTC(),
	}

	for _, res := range results {
		if res.Status != models.StatusNormalized {
			summary.Rejected++
			log.Warn("skipping rejected record",
				slog.String("id", res.SourceID),
				slog.String("reason", res.Reason),
			)
			continue
		}

		entry := models.EntryFromResult(res, time.Now())
		if err := upsertWithRetry(ctx, kb, entry, maxAttempts, backoffBase); err != nil {
			summary.PublishFailed++
			log.Error("publish failed",
				slog.String("id", res.SourceID),
				slog.String("url", entry.URL),
				slog.Any("err", err),
			)
			continue
		}

		summary.Published++
		log.Info("published", slog.String("id", res.SourceID), slog.String("title", entry.Title))
	}

	return summary
}

func upsertWithRetry(ctx context.Context, kb entryUpserter, entry models.PublishedEntry, maxAttempts int, backoffBase time.Duration) error {
	if maxAttempts <= 0 {
		maxAttempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < maxAttempts; attempt++ {
		if attempt > 0 {
			backoff := backoffBase << uint(attempt-1)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		if lastErr = kb.Upsert(ctx, entry); lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) || errors.Is(lastErr, context.DeadlineExceeded) {
			return lastErr
		}
	}
	return lastErr
}
