package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/models"
)

// MemoryRecordStore is an in-memory implementation of interfaces.RecordStore.
// It keeps records in a map keyed by transaction id and is safe for concurrent
// use. Intended for tests and local runs without Postgres.
type MemoryRecordStore struct {
	mu      sync.Mutex
	records map[string]models.TransactionRecord
}

// NewMemoryRecordStore creates an empty MemoryRecordStore.
func NewMemoryRecordStore() *MemoryRecordStore {
	return &MemoryRecordStore{
		records: make(map[string]models.TransactionRecord),
	}
}

func (m *MemoryRecordStore) Get(ctx context.Context, transactionID string) (models.TransactionRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[transactionID]
	if !ok {
		return models.TransactionRecord{}, interfaces.ErrNotFound
	}
	return record, nil
}

func (m *MemoryRecordStore) Insert(ctx context.Context, record models.TransactionRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.records[record.TransactionID]; exists {
		return fmt.Errorf("record %q already exists", record.TransactionID)
	}
	m.records[record.TransactionID] = record
	return nil
}

func (m *MemoryRecordStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	record, ok := m.records[transactionID]
	if !ok {
		return interfaces.ErrNotFound
	}
	if record.Status == models.StatusProcessed {
		// Terminal state is sticky; processed_at is set exactly once.
		return nil
	}
	record.Status = models.StatusProcessed
	record.ProcessedAt = &processedAt
	m.records[transactionID] = record
	return nil
}

// Len returns the number of stored records. Used by tests to assert that
// duplicate submissions do not create extra records.
func (m *MemoryRecordStore) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

// Compile-time check: ensure MemoryRecordStore implements RecordStore.
var _ interfaces.RecordStore = (*MemoryRecordStore)(nil)
