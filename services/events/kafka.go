package eventsvc

import (
	"context"
	"encoding/json"
	"time"

	"github.com/IBM/sarama"
	"github.com/pkg/errors"

	"github.com/trezcool/examhall/core"
)

// KafkaPublisher publishes domain events as JSON messages, keyed by their owner.
type KafkaPublisher struct {
	producer    sarama.SyncProducer
	topicPrefix string
}

var _ core.EventPublisher = (*KafkaPublisher)(nil)

// NewSaramaConfig returns the producer config used by the publisher.
func NewSaramaConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 3
	return config
}

// NewKafkaProducer connects to the brokers. Retries 10 times, waiting 1s longer between each attempt.
func NewKafkaProducer(conf *core.Config, logger core.Logger) (sarama.SyncProducer, error) {
	var (
		producer sarama.SyncProducer
		err      error
	)
	for attempts := 1; attempts <= 10; attempts++ {
		producer, err = sarama.NewSyncProducer(conf.Kafka.Brokers, NewSaramaConfig())
		if err == nil {
			return producer, nil
		}
		logger.Warn("waiting for kafka", map[string]interface{}{"attempt": attempts, "error": err.Error()})
		time.Sleep(time.Duration(attempts) * time.Second)
	}
	return nil, errors.Wrap(err, "connecting to kafka")
}

func NewKafkaPublisher(producer sarama.SyncProducer, conf *core.Config) *KafkaPublisher {
	return &KafkaPublisher{producer: producer, topicPrefix: conf.Kafka.TopicPrefix}
}

type envelope struct {
	Topic      string      `json:"topic"`
	OccurredAt time.Time   `json:"occurred_at"`
	Payload    interface{} `json:"payload"`
}

func (p *KafkaPublisher) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(envelope{Topic: topic, OccurredAt: time.Now().UTC(), Payload: payload})
	if err != nil {
		return errors.Wrap(err, "marshalling event")
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topicPrefix + topic,
		Key:   sarama.StringEncoder(key),
		Value: sarama.ByteEncoder(data),
	}
	if _, _, err = p.producer.SendMessage(msg); err != nil {
		return errors.Wrapf(err, "sending %s message", topic)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
