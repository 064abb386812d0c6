package worker

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	storemem "github.com/sheikh-saqib/transaction-webhook-service/internal/storage/memory"
)

// blockingConsumer counts Receive calls and blocks until the context ends.
type blockingConsumer struct {
	receives atomic.Int32
}

func (b *blockingConsumer) Receive(ctx context.Context) (interfaces.Delivery, error) {
	b.receives.Add(1)
	<-ctx.Done()
	return nil, ctx.Err()
}

func (b *blockingConsumer) Close() error { return nil }

func TestStartIfNotRunningIsIdempotent(t *testing.T) {
	consumer := &blockingConsumer{}
	w := New(storemem.NewMemoryRecordStore(), consumer, 0, testLogger())
	manager := NewManager(w, testLogger())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	manager.StartIfNotRunning(ctx)
	manager.StartIfNotRunning(ctx)
	manager.StartIfNotRunning(ctx)

	if !manager.IsRunning() {
		t.Fatal("manager should report running after start")
	}

	waitFor(t, "consume loop to block on receive", func() bool {
		return consumer.receives.Load() >= 1
	})
	// Repeated starts must not have spawned extra consume loops.
	time.Sleep(20 * time.Millisecond)
	if n := consumer.receives.Load(); n != 1 {
		t.Fatalf("receive called %d times, want 1", n)
	}

	cancel()
	waitFor(t, "manager to stop", func() bool {
		return !manager.IsRunning()
	})
}

func TestManagerClearsRunningOnFatalError(t *testing.T) {
	store := storemem.NewMemoryRecordStore()
	queue := closedQueue{}
	manager := NewManager(New(store, queue, 0, testLogger()), testLogger())

	manager.StartIfNotRunning(context.Background())
	waitFor(t, "manager to observe worker death", func() bool {
		return !manager.IsRunning()
	})
}

type closedQueue struct{}

func (closedQueue) Receive(ctx context.Context) (interfaces.Delivery, error) {
	return nil, context.DeadlineExceeded
}

func (closedQueue) Close() error { return nil }
