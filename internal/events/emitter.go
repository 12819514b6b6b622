// Package events publishes run summaries to Kafka so operators can watch
// the daily counts without scraping stage logs. Emission is best effort:
// observability must never fail a pipeline run.
package events

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"

	"github.com/segmentio/kafka-go"

	"vidpipe/internal/models"
)

// Emitter writes run-summary events. A nil receiver or an emitter built
// with no brokers is a no-op, so stages can emit unconditionally.
type Emitter struct {
	writer *kafka.Writer
	log    *slog.Logger
}

// New builds an emitter. With an empty broker list it returns a disabled
// emitter that drops every event.
func New(brokers []string, topic string, log *slog.Logger) *Emitter {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	if len(brokers) == 0 {
		return &Emitter{log: log}
	}
	return &Emitter{
		writer: kafka.NewWriter(kafka.WriterConfig{
			Brokers:     brokers,
			Topic:       topic,
			MaxAttempts: 3,
		}),
		log: log,
	}
}

// Emit publishes one run summary, keyed by stage. Failures are logged and
// swallowed.
func (e *Emitter) Emit(ctx context.Context, summary models.RunSummary) {
	if e == nil || e.writer == nil {
		return
	}

	payload, err := json.Marshal(summary)
	if err != nil {
		e.log.Error("marshal run summary", slog.Any("err", err))
		return
	}

	msg := kafka.Message{
		Key:   []byte(summary.Stage),
		Value: payload,
	}
	if err := e.writer.WriteMessages(ctx, msg); err != nil {
		e.log.Warn("emit run summary", slog.Any("err", err), slog.String("stage", summary.Stage))
	}
}

// Close releases the underlying writer.
func (e *Emitter) Close() {
	if e == nil || e.writer == nil {
		return
	}
	if err := e.writer.Close(); err != nil {
		e.log.Warn("close event writer", slog.Any("err", err))
	}
}
