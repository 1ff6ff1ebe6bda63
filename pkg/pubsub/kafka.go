package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/rs/zerolog"

	pkglog "github.com/emrecanisildak/diet/pkg/log"
)

// channelToTopic converts a dotted channel name to a Kafka topic.
//
//	"diet.chat" → "diet-chat"
func channelToTopic(channel string) string {
	return strings.ReplaceAll(channel, ".", "-")
}

// KafkaPublisher publishes events to Kafka, keyed by Event.Key so that
// events for one conversation or definition stay on one partition.
type KafkaPublisher struct {
	producer *kafka.Producer
	config   KafkaConfig
	doneCh   chan struct{}
	logger   zerolog.Logger
}

// NewKafkaPublisher creates a new Kafka producer.
func NewKafkaPublisher(cfg KafkaConfig) (*KafkaPublisher, error) {
	p, err := kafka.NewProducer(&kafka.ConfigMap{
		"bootstrap.servers": cfg.Brokers,
		"acks":              "1",
		"linger.ms":         5,
		"compression.type":  "snappy",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	kp := &KafkaPublisher{
		producer: p,
		config:   cfg,
		doneCh:   make(chan struct{}),
		logger:   pkglog.L().With().Str("component", "kafka_publisher").Logger(),
	}

	go kp.deliveryReportHandler()

	if err := kp.ensureTopics(); err != nil {
		kp.logger.Warn().Err(err).Msg("failed to ensure kafka topics (may already exist)")
	}

	return kp, nil
}

// ensureTopics creates the event topics if they don't exist.
func (k *KafkaPublisher) ensureTopics() error {
	admin, err := kafka.NewAdminClientFromProducer(k.producer)
	if err != nil {
		return fmt.Errorf("failed to create admin client: %w", err)
	}
	defer admin.Close()

	partitions := k.config.Partitions
	if partitions <= 0 {
		partitions = 4
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	var topics []kafka.TopicSpecification
	for _, ch := range []string{ChannelChat, ChannelNotifications} {
		topics = append(topics, kafka.TopicSpecification{
			Topic:             channelToTopic(ch),
			NumPartitions:     partitions,
			ReplicationFactor: 1,
		})
	}

	results, err := admin.CreateTopics(ctx, topics)
	if err != nil {
		return fmt.Errorf("failed to create topics: %w", err)
	}

	k.logTopicResults(results)
	return nil
}

// logTopicResults warns about topics that neither exist nor were created.
func (k *KafkaPublisher) logTopicResults(results []kafka.TopicResult) {
	for _, r := range results {
		if r.Error.Code() != kafka.ErrNoError && r.Error.Code() != kafka.ErrTopicAlreadyExists {
			k.logger.Warn().Str("topic", r.Topic).Str("error", r.Error.String()).Msg("failed to create kafka topic")
		}
	}
}

// deliveryReportHandler processes delivery reports from the producer.
func (k *KafkaPublisher) deliveryReportHandler() {
	for e := range k.producer.Events() {
		k.report(e)
	}
	close(k.doneCh)
}

func (k *KafkaPublisher) report(e kafka.Event) {
	switch ev := e.(type) {
	case *kafka.Message:
		if ev.TopicPartition.Error != nil {
			topic := ""
			if ev.TopicPartition.Topic != nil {
				topic = *ev.TopicPartition.Topic
			}
			k.logger.Warn().Err(ev.TopicPartition.Error).
				Str("topic", topic).
				Str("key", string(ev.Key)).
				Msg("kafka event delivery failed")
		}
	}
}

// Publish enqueues an event on the producer. Delivery is reported asynchronously.
func (k *KafkaPublisher) Publish(ctx context.Context, channel string, event *Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	topic := channelToTopic(channel)
	err = k.producer.Produce(&kafka.Message{
		TopicPartition: kafka.TopicPartition{
			Topic:     &topic,
			Partition: kafka.PartitionAny,
		},
		Key:   []byte(event.Key),
		Value: data,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(event.Type)},
		},
	}, nil)
	if err != nil {
		return fmt.Errorf("failed to produce message: %w", err)
	}

	return nil
}

// Close flushes pending messages and closes the producer.
func (k *KafkaPublisher) Close() error {
	k.producer.Flush(5000)
	k.producer.Close()
	<-k.doneCh
	return nil
}
