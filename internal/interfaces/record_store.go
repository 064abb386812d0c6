package interfaces

import (
	"context"
	"errors"
	"time"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/models"
)

// ErrNotFound is returned by RecordStore lookups and updates when no record
// exists for the given transaction id.
var ErrNotFound = errors.New("transaction not found")

// RecordStore is durable keyed storage for transaction records. Implementations
// must provide atomic per-record updates; callers do no locking of their own.
type RecordStore interface {
	// Get returns the record for the given transaction id, or ErrNotFound.
	Get(ctx context.Context, transactionID string) (models.TransactionRecord, error)

	// Insert stores a new record under its transaction id.
	Insert(ctx context.Context, record models.TransactionRecord) error

	// MarkProcessed transitions the record to PROCESSED and sets processed_at.
	// Returns ErrNotFound if the record does not exist.
	MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error
}
