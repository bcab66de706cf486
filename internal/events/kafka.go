package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	"github.com/IBM/sarama"
)

// KafkaSink writes events as JSON to one topic, keyed by session id so every event of a
// session lands on the same partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

// NewSaramaConfig returns the producer configuration used by NewKafkaSink.
func NewSaramaConfig() *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Retry.Max = 3
	cfg.Producer.Return.Successes = true
	return cfg
}

func NewKafkaSink(brokers []string, topic string) (*KafkaSink, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewSaramaConfig())
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return NewKafkaSinkWithProducer(producer, topic), nil
}

func NewKafkaSinkWithProducer(producer sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: producer, topic: topic}
}

var _ Sink = (*KafkaSink)(nil)

func (k *KafkaSink) Emit(_ context.Context, ev Event) error {
	value, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: k.topic,
		Key:   sarama.StringEncoder(ev.SessionID),
		Value: sarama.ByteEncoder(value),
	}
	partition, offset, err := k.producer.SendMessage(msg)
	if err != nil {
		log.Printf("ERROR: Failed to send %s event for session %s: %v", ev.Type, ev.SessionID, err)
		return err
	}
	log.Printf("INFO: %s event for session %s sent to partition %d at offset %d", ev.Type, ev.SessionID, partition, offset)
	return nil
}

func (k *KafkaSink) Close() error {
	return k.producer.Close()
}
