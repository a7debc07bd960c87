package eventsvc

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/examhall/core"
)

func TestKafkaPublisher_Publish(t *testing.T) {
	conf := &core.Config{Kafka: core.KafkaConfig{TopicPrefix: "examhall."}}

	t.Run("sends a JSON envelope keyed by owner", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, NewSaramaConfig())
		producer.ExpectSendMessageWithMessageCheckerFunctionAndSucceed(func(msg *sarama.ProducerMessage) error {
			if msg.Topic != "examhall."+core.TopicAnswerCreated {
				return errors.Errorf("unexpected topic %q", msg.Topic)
			}
			key, _ := msg.Key.Encode()
			if string(key) != "user-1" {
				return errors.Errorf("unexpected key %q", key)
			}
			return nil
		})
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var env struct {
				Topic   string            `json:"topic"`
				Payload map[string]string `json:"payload"`
			}
			if err := json.Unmarshal(val, &env); err != nil {
				return err
			}
			if env.Topic != core.TopicPaymentSubmitted || env.Payload["id"] != "p-1" {
				return errors.Errorf("unexpected envelope %+v", env)
			}
			return nil
		})

		pub := NewKafkaPublisher(producer, conf)
		require.NoError(t, pub.Publish(context.Background(), core.TopicAnswerCreated, "user-1", map[string]string{"id": "a-1"}))
		require.NoError(t, pub.Publish(context.Background(), core.TopicPaymentSubmitted, "user-1", map[string]string{"id": "p-1"}))
		assert.NoError(t, pub.Close())
	})

	t.Run("returns broker errors", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, NewSaramaConfig())
		producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

		pub := NewKafkaPublisher(producer, conf)
		err := pub.Publish(context.Background(), core.TopicPaymentReviewed, "user-1", struct{}{})
		assert.Equal(t, sarama.ErrOutOfBrokers, errors.Cause(err))
		assert.NoError(t, pub.Close())
	})

	t.Run("does not send once the context is done", func(t *testing.T) {
		producer := mocks.NewSyncProducer(t, NewSaramaConfig())
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		pub := NewKafkaPublisher(producer, conf)
		assert.ErrorIs(t, pub.Publish(ctx, core.TopicAnswerCreated, "user-1", nil), context.Canceled)
		assert.NoError(t, pub.Close())
	})
}
