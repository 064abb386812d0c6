// Package worker consumes queued transaction ids and resolves each delivery
// through a one-retry acknowledgment policy:
//
//	first delivery fails      -> nack with requeue (one redelivery)
//	redelivered delivery fails -> ack anyway, message dropped
//
// A dropped transaction stays PROCESSING in the store; surfacing those is an
// external monitoring concern.
package worker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
)

// Worker is a single sequential consumer: one delivery is processed to
// ack/nack completion before the next is fetched.
type Worker struct {
	id       string
	store    interfaces.RecordStore
	consumer interfaces.Consumer
	delay    time.Duration
	logger   *slog.Logger
	now      func() time.Time
}

func New(store interfaces.RecordStore, consumer interfaces.Consumer, delay time.Duration, logger *slog.Logger) *Worker {
	id := "worker-" + uuid.NewString()
	return &Worker{
		id:       id,
		store:    store,
		consumer: consumer,
		delay:    delay,
		logger:   logger.With(slog.String("worker_id", id)),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Run consumes deliveries until ctx is done or the consumer fails. The loop
// is meant to run on its own goroutine, isolated from the request-serving
// path; see Manager.
func (w *Worker) Run(ctx context.Context) error {
	w.logger.Info("worker listening for messages")
	for {
		delivery, err := w.consumer.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				w.logger.Info("worker stopping")
				return nil
			}
			return fmt.Errorf("receive delivery: %w", err)
		}
		w.handle(ctx, delivery)
	}
}

func (w *Worker) handle(ctx context.Context, delivery interfaces.Delivery) {
	transactionID := delivery.TransactionID()
	logger := w.logger.With(slog.String("transaction_id", transactionID))
	logger.Info("processing transaction")

	if err := w.ProcessTransaction(ctx, transactionID); err != nil {
		if delivery.Redelivered() {
			// Second failure: drop the message to bound retries. The record
			// stays PROCESSING until someone intervenes.
			logger.Error("processing failed on redelivery, dropping message", slog.Any("error", err))
			if ackErr := delivery.Ack(); ackErr != nil {
				logger.Error("ack of dropped message failed", slog.Any("error", ackErr))
			}
			return
		}
		logger.Warn("processing failed, requeueing for one retry", slog.Any("error", err))
		if nackErr := delivery.NackRequeue(); nackErr != nil {
			logger.Error("requeue failed", slog.Any("error", nackErr))
		}
		return
	}

	if err := delivery.Ack(); err != nil {
		logger.Error("ack failed", slog.Any("error", err))
		return
	}
	logger.Info("transaction processed")
}

// ProcessTransaction simulates the downstream call, then marks the record
// PROCESSED. A missing record is an error, not a silent no-op.
func (w *Worker) ProcessTransaction(ctx context.Context, transactionID string) error {
	if w.delay > 0 {
		select {
		case <-time.After(w.delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	if err := w.store.MarkProcessed(ctx, transactionID, w.now()); err != nil {
		return fmt.Errorf("mark processed %q: %w", transactionID, err)
	}
	return nil
}
