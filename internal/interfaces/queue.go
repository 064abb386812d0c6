package interfaces

import "context"

// Publisher enqueues a work item for a transaction. The payload on the wire is
// the raw UTF-8 transaction id; workers re-read everything else from the
// RecordStore.
type Publisher interface {
	Publish(ctx context.Context, transactionID string) error
	Close() error
}

// Delivery is one received work item together with its acknowledgment
// controls. Exactly one of Ack or NackRequeue must be called per delivery.
type Delivery interface {
	TransactionID() string

	// Redelivered reports whether the broker has delivered this message
	// before. Drives the one-retry policy: a failure on a redelivered
	// message is dropped rather than requeued.
	Redelivered() bool

	// Ack permanently removes the message from the queue.
	Ack() error

	// NackRequeue returns the message to the queue for redelivery.
	NackRequeue() error
}

// Consumer is a manual-ack queue consumer holding at most one unacknowledged
// delivery at a time (prefetch/credit 1).
type Consumer interface {
	// Receive blocks until the next delivery arrives or ctx is done.
	Receive(ctx context.Context) (Delivery, error)
	Close() error
}
