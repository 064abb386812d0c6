// Package config loads service configuration from the environment, with an
// optional .env file picked up the same way the original deployment did.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Broker and store backends.
const (
	BrokerAMQP   = "amqp"
	BrokerKafka  = "kafka"
	BrokerMemory = "memory"

	StorePostgres = "postgres"
	StoreMemory   = "memory"
)

// Config holds everything the server and worker need.
type Config struct {
	HTTPAddr string

	Broker       string
	QueueURL     string // broker connection URL, required for amqp
	QueueName    string
	KafkaBrokers []string
	KafkaGroup   string

	Store       string
	PostgresDSN string

	// ProcessingDelay stands in for the downstream call the worker would
	// make for each transaction.
	ProcessingDelay time.Duration
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		HTTPAddr:        ":8000",
		Broker:          BrokerAMQP,
		QueueName:       "transactions",
		KafkaGroup:      "transaction-workers",
		Store:           StoreMemory,
		ProcessingDelay: 30 * time.Second,
	}
}

// Load reads a .env file if present and overlays environment variables onto
// the defaults.
func Load() Config {
	_ = godotenv.Load()

	cfg := Default()
	FromEnv(&cfg)
	return cfg
}

// FromEnv overlays environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("HTTP_ADDR"); v != "" {
		cfg.HTTPAddr = v
	}
	if v := os.Getenv("QUEUE_BROKER"); v != "" {
		cfg.Broker = v
	}
	if v := os.Getenv("RABBITMQ_URL"); v != "" {
		cfg.QueueURL = v
	}
	if v := os.Getenv("QUEUE_NAME"); v != "" {
		cfg.QueueName = v
	}
	if v := os.Getenv("KAFKA_BROKERS"); v != "" {
		parts := strings.Split(v, ",")
		cfg.KafkaBrokers = nil
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, p)
			}
		}
	}
	if v := os.Getenv("KAFKA_GROUP"); v != "" {
		cfg.KafkaGroup = v
	}
	if v := os.Getenv("RECORD_STORE"); v != "" {
		cfg.Store = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.PostgresDSN = v
	}
	if v := os.Getenv("PROCESSING_DELAY"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.ProcessingDelay = d
		}
	}
}

// Validate checks that the selected backends have the settings they need.
// The queue URL has no default on purpose: a component that needs the broker
// must fail at startup without it.
func (c Config) Validate() error {
	switch c.Broker {
	case BrokerAMQP:
		if c.QueueURL == "" {
			return fmt.Errorf("RABBITMQ_URL is required for the amqp broker")
		}
	case BrokerKafka:
		if len(c.KafkaBrokers) == 0 {
			return fmt.Errorf("KAFKA_BROKERS is required for the kafka broker")
		}
	case BrokerMemory:
	default:
		return fmt.Errorf("unknown broker %q", c.Broker)
	}

	switch c.Store {
	case StorePostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres store")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("unknown record store %q", c.Store)
	}
	return nil
}
