package pubsub

import (
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	DriverNone  = "none"
	DriverRedis = "redis"
	DriverKafka = "kafka"
)

// KafkaConfig holds Kafka-specific configuration.
type KafkaConfig struct {
	Brokers    string `mapstructure:"brokers"`
	Partitions int    `mapstructure:"partitions"`
}

// Config holds the configuration for the event bus.
type Config struct {
	Driver    string        `mapstructure:"driver"` // "none", "redis", "kafka"
	QueueSize int           `mapstructure:"queue_size"`
	Timeout   time.Duration `mapstructure:"timeout"`
	Kafka     KafkaConfig   `mapstructure:"kafka"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Driver:    DriverNone,
		QueueSize: 256,
		Timeout:   3 * time.Second,
		Kafka: KafkaConfig{
			Brokers:    "localhost:9092",
			Partitions: 4,
		},
	}
}

// NewPublisher creates a Publisher for the configured driver. The redis
// driver publishes through rdb, which must be non-nil.
func NewPublisher(cfg Config, rdb *redis.Client) (Publisher, error) {
	switch cfg.Driver {
	case "", DriverNone:
		return NopPublisher{}, nil
	case DriverRedis:
		if rdb == nil {
			return nil, fmt.Errorf("events driver redis requires a redis client")
		}
		return NewRedisPublisher(rdb), nil
	case DriverKafka:
		return NewKafkaPublisher(cfg.Kafka)
	default:
		return nil, fmt.Errorf("unknown events driver: %s", cfg.Driver)
	}
}
