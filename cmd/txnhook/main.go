// Command txnhook runs the transaction webhook service. The serve subcommand
// hosts the HTTP API with an embedded background worker; the worker subcommand
// runs the same consumer as a standalone process.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/sheikh-saqib/transaction-webhook-service/internal/config"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/ingest"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/interfaces"
	amqpqueue "github.com/sheikh-saqib/transaction-webhook-service/internal/queue/amqp"
	kafkaqueue "github.com/sheikh-saqib/transaction-webhook-service/internal/queue/kafka"
	memoryqueue "github.com/sheikh-saqib/transaction-webhook-service/internal/queue/memory"
	memorystore "github.com/sheikh-saqib/transaction-webhook-service/internal/storage/memory"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/storage/postgres"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/web"
	"github.com/sheikh-saqib/transaction-webhook-service/internal/worker"
)

func main() {
	// Amounts go over the wire as JSON numbers, not quoted strings.
	decimal.MarshalJSONWithoutQuotes = true

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	rootCmd := &cobra.Command{
		Use:   "txnhook",
		Short: "Transaction webhook service",
		Long:  "Accepts transaction webhooks, records them, and processes each asynchronously through a durable queue.",
	}
	rootCmd.AddCommand(serveCmd(logger), workerCmd(logger))

	if err := rootCmd.Execute(); err != nil {
		logger.Error("command failed", slog.Any("error", err))
		os.Exit(1)
	}
}

func serveCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server with an embedded background worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			publisher, consumer, err := buildQueue(cfg)
			if err != nil {
				return err
			}

			w := worker.New(store, consumer, cfg.ProcessingDelay, logger)
			manager := worker.NewManager(w, logger)
			manager.StartIfNotRunning(ctx)

			coordinator := ingest.NewCoordinator(store, publisher)
			server := web.NewServer(coordinator, logger)

			logger.Info("starting http server", slog.String("addr", cfg.HTTPAddr))
			return server.Run(cfg.HTTPAddr)
		},
	}
}

func workerCmd(logger *slog.Logger) *cobra.Command {
	return &cobra.Command{
		Use:   "worker",
		Short: "Run a standalone queue worker",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := config.Load()
			if err := cfg.Validate(); err != nil {
				return err
			}
			if cfg.Broker == config.BrokerMemory {
				return fmt.Errorf("the memory broker cannot feed a standalone worker")
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			store, err := buildStore(ctx, cfg)
			if err != nil {
				return err
			}
			_, consumer, err := buildQueue(cfg)
			if err != nil {
				return err
			}
			defer consumer.Close()

			return worker.New(store, consumer, cfg.ProcessingDelay, logger).Run(ctx)
		},
	}
}

func buildStore(ctx context.Context, cfg config.Config) (interfaces.RecordStore, error) {
	switch cfg.Store {
	case config.StorePostgres:
		store, err := postgres.Open(ctx, cfg.PostgresDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		return store, nil
	case config.StoreMemory:
		return memorystore.NewMemoryRecordStore(), nil
	default:
		return nil, fmt.Errorf("unknown record store %q", cfg.Store)
	}
}

func buildQueue(cfg config.Config) (interfaces.Publisher, interfaces.Consumer, error) {
	switch cfg.Broker {
	case config.BrokerAMQP:
		publisher, err := amqpqueue.NewPublisher(cfg.QueueURL, cfg.QueueName)
		if err != nil {
			return nil, nil, fmt.Errorf("connect amqp publisher: %w", err)
		}
		consumer, err := amqpqueue.NewConsumer(cfg.QueueURL, cfg.QueueName)
		if err != nil {
			publisher.Close()
			return nil, nil, fmt.Errorf("connect amqp consumer: %w", err)
		}
		return publisher, consumer, nil
	case config.BrokerKafka:
		publisher := kafkaqueue.NewPublisher(cfg.KafkaBrokers, cfg.QueueName)
		consumer := kafkaqueue.NewConsumer(cfg.KafkaBrokers, cfg.QueueName, cfg.KafkaGroup)
		return publisher, consumer, nil
	case config.BrokerMemory:
		queue := memoryqueue.NewQueue()
		return queue, queue, nil
	default:
		return nil, nil, fmt.Errorf("unknown broker %q", cfg.Broker)
	}
}
