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
	"vidpipe/internal/dedupe"
	"vidpipe/internal/events"
	"vidpipe/internal/ledger"
	"vidpipe/internal/logger"
	"vidpipe/internal/models"
)

func main() {
	log := logger.New("filter")
	cfg, err := config.LoadFilter()
	if err != nil {
		log.Error("load config", slog.Any("err", err))
		os.Exit(1)
	}

	store, err := artifact.NewStore(cfg.DataDir)
	if err != nil {
		log.Error("init artifact store", slog.Any("err", err))
		os.Exit(1)
	}

	led, err := ledger.New(cfg.GistAPIBase, cfg.GistID, cfg.GistToken, cfg.LedgerFile, cfg.RequestTimeout, log)
	if err != nil {
		log.Error("init ledger client", slog.Any("err", err))
		os.Exit(1)
	}

	emitter := events.New(cfg.KafkaBrokers, cfg.EventsTopic, log)
	defer emitter.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	date := artifact.Date(time.Now())
	raw, err := store.ReadRaw(date)
	if err != nil {
		if errors.Is(err, artifact.ErrNotFound) {
			log.Error("no raw artifact for today, retriever did not run or failed", slog.String("date", date))
		} else {
			log.Error("read raw artifact", slog.Any("err", err))
		}
		os.Exit(1)
	}

	// Fail closed: without the ledger we cannot tell new from seen, and
	// emitting anyway would risk duplicate publication downstream.
	ids, err := led.Load(ctx)
	if err != nil {
		log.Error("load ledger", slog.Any("err", err))
		os.Exit(1)
	}

	set := dedupe.NewSet(ids)
	set.Exclude(cfg.Exclusions)

	fresh, seen := partition(log, set, raw.Records)

	batch := artifact.FilteredBatch{
		Meta:    artifact.NewMeta(artifact.StageFiltered),
		Records: fresh,
	}
	// The filtered artifact lands before the ledger write. A crash between
	// the two re-runs this partition tomorrow against the old ledger, which
	// can re-emit today's records; the publisher's idempotent upsert absorbs
	// that. The reverse order would lose records instead.
	if err := store.WriteFiltered(date, batch); err != nil {
		log.Error("write filtered artifact", slog.Any("err", err))
		os.Exit(1)
	}

	if added := set.Added(); len(added) > 0 {
		if err := led.Write(ctx, set.Merged()); err != nil {
			log.Error("merge ledger", slog.Any("err", err), slog.Int("pending", len(added)))
			os.Exit(1)
		}
		log.Info("ledger merged", slog.Int("added", len(added)))
	}

	summary := models.RunSummary{
		Stage:        artifact.StageFiltered,
		RunID:        batch.RunID,
		FinishedAt:   time.Now().UTC(),
		FilteredSeen: seen,
		FilteredNew:  len(fresh),
	}
	emitter.Emit(ctx, summary)

	log.Info("run complete",
		slog.String("date", date),
		slog.Int("seen", seen),
		slog.Int("new", len(fresh)),
	)
}

// partition splits the raw batch into new records (emitted and marked) and
// already-seen ones (counted only). Ledger entries and static exclusions
// are treated uniformly as seen.
func partition(log *slog.Logger, set *dedupe.Set, records []models.RawRecord) ([]models.RawRecord, int) {
	fresh := make([]models.RawRecord, 0, len(records))
	seen := 0
	for _, rec := range records {
		if set.Seen(rec.ID) {
			seen++
			log.Debug("already seen", slog.String("id", rec.ID))
			continue
		}
		set.Mark(rec.ID)
		fresh = append(fresh, rec)
	}
	return fresh, seen
}
