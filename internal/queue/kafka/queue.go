// Package kafka adapts a Kafka topic to the Publisher/Consumer contracts.
//
// Kafka has no broker-side nack, so redelivery is modelled at the client: a
// requeue republishes the id with an x-redelivered header and commits the
// original offset. The redelivered flag is read back from that header.
package kafka

import (
	"context"
	"fmt"

	"github.com/segmentio/kafka-go"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
)

const redeliveredHeader = "x-redelivered"

// Publisher writes transaction ids to the topic.
type Publisher struct {
	writer *kafka.Writer
}

func NewPublisher(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *Publisher) Publish(ctx context.Context, transactionID string) error {
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(transactionID),
		Value: []byte(transactionID),
	})
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}

// Consumer reads the topic within a consumer group, committing offsets only
// after the worker has resolved each delivery. FetchMessage is called one
// message at a time, which gives the single-unacked-delivery discipline.
type Consumer struct {
	reader *kafka.Reader
	writer *kafka.Writer
}

func NewConsumer(brokers []string, topic, group string) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers: brokers,
			Topic:   topic,
			GroupID: group,
		}),
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (c *Consumer) Receive(ctx context.Context) (interfaces.Delivery, error) {
	msg, err := c.reader.FetchMessage(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch message: %w", err)
	}
	return &delivery{consumer: c, msg: msg}, nil
}

func (c *Consumer) Close() error {
	c.writer.Close()
	return c.reader.Close()
}

type delivery struct {
	consumer *Consumer
	msg      kafka.Message
}

func (d *delivery) TransactionID() string { return string(d.msg.Value) }

func (d *delivery) Redelivered() bool {
	for _, h := range d.msg.Headers {
		if h.Key == redeliveredHeader {
			return true
		}
	}
	return false
}

func (d *delivery) Ack() error {
	return d.consumer.reader.CommitMessages(context.Background(), d.msg)
}

func (d *delivery) NackRequeue() error {
	// Republish marked as redelivered, then commit the original so it is not
	// fetched again under its first-delivery identity.
	err := d.consumer.writer.WriteMessages(context.Background(), kafka.Message{
		Key:   d.msg.Key,
		Value: d.msg.Value,
		Headers: []kafka.Header{
			{Key: redeliveredHeader, Value: []byte("1")},
		},
	})
	if err != nil {
		return fmt.Errorf("republish for retry: %w", err)
	}
	return d.consumer.reader.CommitMessages(context.Background(), d.msg)
}

var (
	_ interfaces.Publisher = (*Publisher)(nil)
	_ interfaces.Consumer  = (*Consumer)(nil)
)
