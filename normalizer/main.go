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
	"vidpipe/internal/events"
	"vidpipe/internal/llm"
	"vidpipe/internal/logger"
	"vidpipe/internal/models"
	"vidpipe/internal/normalize"
)

func main() {
	log := logger.New("normalizer")
	cfg, err := config.LoadNormalizer()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := artifact.NewStore(cfg.DataDir)
	if err != nil {
		log.Error("init artifact store", slog.Any("err", err))
		os.Exit(1)
	}

	completer, err := llm.New(llm.Config{
		APIKey:      cfg.LLMAPIKey,
		BaseURL:     cfg.LLMBaseURL,
		Model:       cfg.LLMModel,
		Timeout:     cfg.RequestTimeout,
		MaxAttempts: cfg.MaxAttempts,
		BackoffBase: cfg.BackoffBase,
		BackoffMax:  cfg.BackoffMax,
	})
	if err != nil {
		log.Error("init completion client", slog.Any("err", err))
		os.Exit(1)
	}

	emitter := events.New(cfg.KafkaBrokers, cfg.EventsTopic, log)
	defer emitter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	date := artifact.Date(time.Now())
	filtered, err := store.ReadFiltered(date)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			log.Error("no filtered artifact for today, filter did not run or failed", slog.String("date", date))
		} else {
			log.Error("read filtered artifact", slog.Any("err", err))
		}
		os.Exit(1)
	}

	norm := normalize.New(completer, cfg.Concurrency, log)
	results := norm.Run(ctx, filtered.Records)

	batch := artifact.NormalizedBatch{
		Meta:    artifact.NewMeta(artifact.StageNormalized),
		Results: results,
	}
	if err := store.WriteNormalized(date, batch); err != nil {
		log.Error("write normalized artifact", slog.Any("err", err))
		os.Exit(1)
	}

	normalized, rejected := tally(results)
	summary := models.RunSummary{
		Stage:      artifact.StageNormalized,
		RunID:      batch.RunID,
		FinishedAt: time.Now().UTC(),
		Normalized: normalized,
		Rejected:   rejected,
	}
	emitter.Emit(ctx, summary)

	log.Info("run complete",
		slog.String("date", date),
		slog.Int("normalized", normalized),
		slog.Int("rejected", rejected),
	)
}

func tally(results []models.NormalizedResult) (normalized, rejected int) {
	for _, res := range results {
		if res.Status == models.StatusNormalized {
			normalized++
		} else {
			rejected++
		}
	}
	return normalized, rejected
}
