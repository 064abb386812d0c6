// Package ingest accepts webhook transaction submissions, deduplicates them by
// transaction id, records them, and enqueues them for background processing.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/models"
)

// Result of a submission.
type Result int

const (
	// ResultAccepted means a new record was stored and a work item enqueued.
	ResultAccepted Result = iota
	// ResultDuplicate means a record with this id already existed; nothing
	// was written or enqueued.
	ResultDuplicate
)

// ErrValidation marks a malformed submission. No state is mutated.
var ErrValidation = errors.New("invalid submission")

// Coordinator is the ingest side of the pipeline. It owns the
// insert-then-enqueue ordering for each first-seen transaction.
type Coordinator struct {
	store     interfaces.RecordStore
	publisher interfaces.Publisher
	now       func() time.Time
}

func NewCoordinator(store interfaces.RecordStore, publisher interfaces.Publisher) *Coordinator {
	return &Coordinator{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit records a transaction and enqueues it for processing. Duplicate ids
// are ignored by id pre-existence alone; payload content is not compared.
//
// The record insert happens before the enqueue. If the enqueue fails the
// record is left in PROCESSING with no queue item; recovering such orphans is
// an out-of-band reconciliation concern, not handled here.
func (c *Coordinator) Submit(ctx context.Context, in models.TransactionIn) (Result, error) {
	if in.TransactionID == "" {
		return 0, fmt.Errorf("%w: transaction_id is required", ErrValidation)
	}

	_, err := c.store.Get(ctx, in.TransactionID)
	if err == nil {
		return ResultDuplicate, nil
	}
	if !errors.Is(err, interfaces.ErrNotFound) {
		return 0, fmt.Errorf("lookup transaction %q: %w", in.TransactionID, err)
	}

	record := models.NewRecord(in, c.now())
	if err := c.store.Insert(ctx, record); err != nil {
		return 0, fmt.Errorf("insert transaction %q: %w", in.TransactionID, err)
	}

	if err := c.publisher.Publish(ctx, in.TransactionID); err != nil {
		return 0, fmt.Errorf("enqueue transaction %q: %w", in.TransactionID, err)
	}

	return ResultAccepted, nil
}

// Get returns the stored record for a transaction id.
func (c *Coordinator) Get(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	return c.store.Get(ctx, transactionID)
}
