// Package memory is a channel-backed queue implementing the Publisher and
// Consumer contracts, used by tests and broker-less local runs. A nack puts
// the message back with its redelivered flag set, matching broker behavior.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
)

type message struct {
	transactionID string
	redelivered   bool
}

// Queue is both the publish and consume side of an in-process queue.
type Queue struct {
	mu       sync.Mutex
	closed   bool
	messages chan message
}

func NewQueue() *Queue {
	return &Queue{
		messages: make(chan message, 128),
	}
}

func (q *Queue) Publish(ctx context.Context, transactionID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return fmt.Errorf("queue closed")
	}
	select {
	case q.messages <- message{transactionID: transactionID}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (q *Queue) Receive(ctx context.Context) (interfaces.Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case msg, ok := <-q.messages:
		if !ok {
			return nil, fmt.Errorf("queue closed")
		}
		return &delivery{queue: q, msg: msg}, nil
	}
}

// Len reports the number of queued, undelivered messages.
func (q *Queue) Len() int {
	return len(q.messages)
}

func (q *Queue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if !q.closed {
		q.closed = true
		close(q.messages)
	}
	return nil
}

type delivery struct {
	queue *Queue
	msg   message
}

func (d *delivery) TransactionID() string { return d.msg.transactionID }
func (d *delivery) Redelivered() bool     { return d.msg.redelivered }

func (d *delivery) Ack() error { return nil }

func (d *delivery) NackRequeue() error {
	d.queue.mu.Lock()
	defer d.queue.mu.Unlock()
	if d.queue.closed {
		return fmt.Errorf("queue closed")
	}
	d.queue.messages <- message{transactionID: d.msg.transactionID, redelivered: true}
	return nil
}

var (
	_ interfaces.Publisher = (*Queue)(nil)
	_ interfaces.Consumer  = (*Queue)(nil)
)
