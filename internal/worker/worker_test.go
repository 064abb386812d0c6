package worker

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/models"
	queuemem "github.com/sheikh-saqib/transaction-webhook-service/internal/queue/memory"
	storemem "github.com/sheikh-saqib/transaction-webhook-service/internal/storage/memory"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func insertRecord(t *testing.T, store interfaces.RecordStore, id string) {
	t.Helper()
	record := models.NewRecord(models.TransactionIn{
		TransactionID:      id,
		SourceAccount:      "acc-001",
		DestinationAccount: "acc-002",
		Amount:             decimal.NewFromFloat(100.0),
		Currency:           "USD",
	}, time.Now().UTC())
	if err := store.Insert(context.Background(), record); err != nil {
		t.Fatalf("insert %s: %v", id, err)
	}
}

func waitFor(t *testing.T, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

// trackingStore wraps a store, recording MarkProcessed calls and injecting a
// scripted number of failures.
type trackingStore struct {
	interfaces.RecordStore

	mu       sync.Mutex
	failures int
	calls    []string
}

func (s *trackingStore) MarkProcessed(ctx context.Context, transactionID string, processedAt time.Time) error {
	s.mu.Lock()
	s.calls = append(s.calls, transactionID)
	fail := s.failures > 0
	if fail {
		s.failures--
	}
	s.mu.Unlock()

	if fail {
		return errors.New("downstream unavailable")
	}
	return s.RecordStore.MarkProcessed(ctx, transactionID, processedAt)
}

func (s *trackingStore) markCalls() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.calls...)
}

func TestProcessSuccessAcks(t *testing.T) {
	store := storemem.NewMemoryRecordStore()
	queue := queuemem.NewQueue()
	insertRecord(t, store, "tx-1")
	if err := queue.Publish(context.Background(), "tx-1"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(store, queue, 0, testLogger()).Run(ctx)

	waitFor(t, "tx-1 processed", func() bool {
		record, err := store.Get(context.Background(), "tx-1")
		return err == nil && record.Status == models.StatusProcessed
	})

	record, _ := store.Get(context.Background(), "tx-1")
	if record.ProcessedAt == nil {
		t.Error("processed_at not set on success")
	}
	if !record.Amount.Equal(decimal.NewFromFloat(100.0)) || record.Currency != "USD" {
		t.Error("processing must not change submission fields")
	}
	if queue.Len() != 0 {
		t.Errorf("queue depth = %d after ack, want 0", queue.Len())
	}
}

func TestFirstFailureRequeuesThenSucceeds(t *testing.T) {
	inner := storemem.NewMemoryRecordStore()
	store := &trackingStore{RecordStore: inner, failures: 1}
	queue := queuemem.NewQueue()
	insertRecord(t, inner, "tx-2")
	if err := queue.Publish(context.Background(), "tx-2"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(store, queue, 0, testLogger()).Run(ctx)

	waitFor(t, "tx-2 processed after one retry", func() bool {
		record, err := inner.Get(context.Background(), "tx-2")
		return err == nil && record.Status == models.StatusProcessed
	})

	if calls := store.markCalls(); len(calls) != 2 {
		t.Errorf("MarkProcessed called %d times, want 2 (failure + retry)", len(calls))
	}
}

func TestSecondFailureDropsMessage(t *testing.T) {
	inner := storemem.NewMemoryRecordStore()
	store := &trackingStore{RecordStore: inner, failures: 2}
	queue := queuemem.NewQueue()
	insertRecord(t, inner, "tx-2")
	if err := queue.Publish(context.Background(), "tx-2"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(store, queue, 0, testLogger()).Run(ctx)

	// First delivery nacks, redelivery fails again and is acked away.
	waitFor(t, "both deliveries attempted", func() bool {
		return len(store.markCalls()) == 2 && queue.Len() == 0
	})

	// No third attempt: the one-retry bound held.
	time.Sleep(50 * time.Millisecond)
	if calls := store.markCalls(); len(calls) != 2 {
		t.Fatalf("MarkProcessed called %d times, want exactly 2", len(calls))
	}

	record, err := inner.Get(context.Background(), "tx-2")
	if err != nil {
		t.Fatal(err)
	}
	if record.Status != models.StatusProcessing {
		t.Errorf("status = %q, dropped transaction must stay PROCESSING", record.Status)
	}
	if record.ProcessedAt != nil {
		t.Error("processed_at must stay nil for a dropped transaction")
	}
}

func TestMissingRecordIsAFailure(t *testing.T) {
	inner := storemem.NewMemoryRecordStore()
	store := &trackingStore{RecordStore: inner}
	queue := queuemem.NewQueue()
	if err := queue.Publish(context.Background(), "ghost"); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(store, queue, 0, testLogger()).Run(ctx)

	// The missing record fails both deliveries and the message is dropped.
	waitFor(t, "ghost delivery retried and dropped", func() bool {
		return len(store.markCalls()) == 2 && queue.Len() == 0
	})
}

func TestSequentialConsumptionPreservesOrder(t *testing.T) {
	inner := storemem.NewMemoryRecordStore()
	store := &trackingStore{RecordStore: inner}
	queue := queuemem.NewQueue()

	ids := []string{"tx-a", "tx-b", "tx-c", "tx-d"}
	for _, id := range ids {
		insertRecord(t, inner, id)
		if err := queue.Publish(context.Background(), id); err != nil {
			t.Fatal(err)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go New(store, queue, time.Millisecond, testLogger()).Run(ctx)

	waitFor(t, "all transactions processed", func() bool {
		return len(store.markCalls()) == len(ids)
	})

	// One in-flight item per worker means store updates happen in delivery
	// order.
	calls := store.markCalls()
	for i, id := range ids {
		if calls[i] != id {
			t.Fatalf("processing order %v, want %v", calls, ids)
		}
	}
}

func TestRunReturnsErrorWhenConsumerFails(t *testing.T) {
	store := storemem.NewMemoryRecordStore()
	queue := queuemem.NewQueue()
	queue.Close()

	err := New(store, queue, 0, testLogger()).Run(context.Background())
	if err == nil {
		t.Fatal("Run should fail when the consumer is gone")
	}
}

func TestRunStopsCleanlyOnCancel(t *testing.T) {
	store := storemem.NewMemoryRecordStore()
	queue := queuemem.NewQueue()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- New(store, queue, 0, testLogger()).Run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned %v on cancellation, want nil", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancellation")
	}
}
