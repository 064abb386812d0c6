// Package amqp adapts a RabbitMQ queue to the Publisher/Consumer contracts.
// Messages are durable, acknowledged manually, and consumed with a prefetch of
// one so a worker holds a single unacked delivery at a time.
package amqp

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
)

// Publisher publishes transaction ids to a durable queue.
type Publisher struct {
	conn    *amqp.Connection
	channel *amqp.Channel
	queue   string
}

// NewPublisher connects to the broker at url and declares the durable queue.
func NewPublisher(url, queue string) (*Publisher, error) {
	conn, channel, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	return &Publisher{conn: conn, channel: channel, queue: queue}, nil
}

func (p *Publisher) Publish(ctx context.Context, transactionID string) error {
	return p.channel.PublishWithContext(ctx,
		"",      // default exchange
		p.queue, // routing key = queue name
		false,   // mandatory
		false,   // immediate
		amqp.Publishing{
			ContentType:  "text/plain",
			DeliveryMode: amqp.Persistent,
			Body:         []byte(transactionID),
		},
	)
}

func (p *Publisher) Close() error {
	p.channel.Close()
	return p.conn.Close()
}

// Consumer consumes transaction ids with manual acknowledgment.
type Consumer struct {
	conn       *amqp.Connection
	channel    *amqp.Channel
	deliveries <-chan amqp.Delivery
}

// NewConsumer connects, declares the queue, and starts a manual-ack consume
// with prefetch 1.
func NewConsumer(url, queue string) (*Consumer, error) {
	conn, channel, err := dial(url, queue)
	if err != nil {
		return nil, err
	}
	if err := channel.Qos(1, 0, false); err != nil {
		conn.Close()
		return nil, fmt.Errorf("set qos: %w", err)
	}
	deliveries, err := channel.Consume(
		queue,
		"worker-"+uuid.NewString(), // consumer tag
		false,                      // autoAck off, the worker decides
		false,                      // exclusive
		false,                      // noLocal
		false,                      // noWait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("start consume: %w", err)
	}
	return &Consumer{conn: conn, channel: channel, deliveries: deliveries}, nil
}

func (c *Consumer) Receive(ctx context.Context) (interfaces.Delivery, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case d, ok := <-c.deliveries:
		if !ok {
			return nil, fmt.Errorf("delivery channel closed")
		}
		return &delivery{d: d}, nil
	}
}

func (c *Consumer) Close() error {
	c.channel.Close()
	return c.conn.Close()
}

type delivery struct {
	d amqp.Delivery
}

func (d *delivery) TransactionID() string { return string(d.d.Body) }
func (d *delivery) Redelivered() bool     { return d.d.Redelivered }
func (d *delivery) Ack() error            { return d.d.Ack(false) }
func (d *delivery) NackRequeue() error    { return d.d.Nack(false, true) }

func dial(url, queue string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial broker: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("open channel: %w", err)
	}
	_, err = channel.QueueDeclare(
		queue,
		true,  // durable
		false, // autoDelete
		false, // exclusive
		false, // noWait
		nil,
	)
	if err != nil {
		conn.Close()
		return nil, nil, fmt.Errorf("declare queue %q: %w", queue, err)
	}
	return conn, channel, nil
}

var (
	_ interfaces.Publisher = (*Publisher)(nil)
	_ interfaces.Consumer  = (*Consumer)(nil)
)
