package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sort"
	"syscall"
	"time"

	"vidpipe/internal/artifact"
	"vidpipe/internal/config"
	"vidpipe/internal/events"
	"vidpipe/internal/logger"
	"vidpipe/internal/models"
	"vidpipe/internal/youtube"
)

type sourceClient interface {
	Query(ctx context.Context, channel string, since time.Time, max int) ([]models.RawRecord, error)
}

func main() {
	log := logger.New("retriever")
	cfg, err := config.LoadRetriever()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	subs, err := config.LoadSubscriptions(cfg.SubscriptionsFile)
	if err != nil {
		log.Error("load subscriptions", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := artifact.NewStore(cfg.DataDir)
	if err != nil {
		log.Error("init artifact store", slog.Any("err", err))
		os.Exit(1)
	}

	source, err := youtube.New(cfg.APIBaseURL, cfg.APIKey, cfg.RequestTimeout, log)
	if err != nil {
		log.Error("init source client", slog.Any("err", err))
		os.Exit(1)
	}

	emitter := events.New(cfg.KafkaBrokers, cfg.EventsTopic, log)
	defer emitter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	since := lookbackStart(store, cfg.Lookback, log)
	log.Info("retrieving new content",
		slog.Time("since", since),
		slog.Int("subscriptions", len(subs)),
	)

	records, err := retrieve(ctx, log, source, subs, since, cfg.MaxPerChannel)
	if err != nil {
		// Source unreachable: produce no artifact at all, so downstream
		// stages see "upstream failed" rather than a fake empty day.
		log.Error("retrieval failed", slog.Any("err", err))
		os.Exit(1)
	}

	batch := artifact.RawBatch{
		Meta:    artifact.NewMeta(artifact.StageRaw),
		Records: records,
	}
	date := artifact.Date(time.Now())
	if err := store.WriteRaw(date, batch); err != nil {
		log.Error("write raw artifact", slog.Any("err", err))
		os.Exit(1)
	}

	summary := models.RunSummary{
		Stage:      artifact.StageRaw,
		RunID:      batch.RunID,
		FinishedAt: time.Now().UTC(),
		Retrieved:  len(records),
	}
	emitter.Emit(ctx, summary)

	log.Info("run complete", slog.String("date", date), slog.Int("retrieved", len(records)))
}

// lookbackStart derives the query window's start from the previous raw
// artifact, falling back to the configured lookback on the first run.
func lookbackStart(store *artifact.Store, lookback time.Duration, log *slog.Logger) time.Time {
	fallback := time.Now().UTC().Add(-lookback)

	last, err := store.LatestRawGeneratedAt()
	if err != nil {
		if !errors.Is(err, artifact.ErrNotFound) {
			log.Warn("read last run watermark", slog.Any("err", err))
		}
		return fallback
	}
	if last.Before(fallback) {
		// A long gap between runs still only reaches back the configured
		// window; deeper backfills are an operator decision.
		return fallback
	}
	return last
}

// retrieve queries every subscription and returns the combined batch sorted
// by publish time ascending. An unreachable source aborts the run;
// an unresolvable channel only skips that channel.
func retrieve(ctx context.Context, log *slog.Logger, source sourceClient, subs []config.Subscription, since time.Time, maxPerChannel int) ([]models.RawRecord, error) {
	var records []models.RawRecord
	for _, sub := range subs {
		if sub.Type != "youtube" {
			log.Warn("unsupported subscription type, skipping",
				slog.String("channel", sub.Channel),
				slog.String("type", sub.Type),
			)
			continue
		}

		found, err := source.Query(ctx, sub.Channel, since, maxPerChannel)
		if err != nil {
			if errors.Is(err, youtube.ErrChannelNotFound) {
				log.Warn("channel not found, skipping", slog.String("channel", sub.Channel))
				continue
			}
			return nil, err
		}

		log.Debug("channel queried",
			slog.String("channel", sub.Channel),
			slog.Int("found", len(found)),
		)
		records = append(records, found...)
	}

	sort.SliceStable(records, func(i, j int) bool {
		return records[i].PublishedAt.Before(records[j].PublishedAt)
	})
	return records, nil
}
