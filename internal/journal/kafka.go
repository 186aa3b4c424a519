package journal

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

type KafkaSink struct {
	// mu guards producer; sends share the read lock
	mu       sync.RWMutex
	producer sarama.SyncProducer
	log      logrus.FieldLogger
}

// NewKafkaSink connects a synchronous producer to a comma-separated broker list.
func NewKafkaSink(brokerList string, log logrus.FieldLogger) (*KafkaSink, error) {
	saramaConfig := sarama.NewConfig()
	saramaConfig.Producer.RequiredAcks = sarama.WaitForAll
	saramaConfig.Producer.Retry.Max = 5
	saramaConfig.Producer.Retry.Backoff = 100 * time.Millisecond
	saramaConfig.Producer.Return.Successes = true // required by SyncProducer
	saramaConfig.Net.DialTimeout = 10 * time.Second
	saramaConfig.Net.ReadTimeout = 10 * time.Second
	saramaConfig.Net.WriteTimeout = 10 * time.Second

	brokers := strings.Split(brokerList, ",")
	producer, err := sarama.NewSyncProducer(brokers, saramaConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create Sarama producer: %w", err)
	}

	log.WithField("brokers", brokers).Info("Kafka journal connected")
	return NewKafkaSinkWithProducer(producer, log), nil
}

func NewKafkaSinkWithProducer(producer sarama.SyncProducer, log logrus.FieldLogger) *KafkaSink {
	return &KafkaSink{producer: producer, log: log}
}

func (k *KafkaSink) WriteMessage(topic string, msg []byte) error {
	k.mu.RLock()
	defer k.mu.RUnlock()
	if k.producer == nil {
		return fmt.Errorf("kafka producer is closed")
	}
	partition, offset, err := k.producer.SendMessage(&sarama.ProducerMessage{
		Topic: topic,
		Value: sarama.ByteEncoder(msg),
	})
	if err != nil {
		return fmt.Errorf("failed to send message to topic %s: %w", topic, err)
	}
	k.log.WithFields(logrus.Fields{
		"topic":     topic,
		"partition": partition,
		"offset":    offset,
	}).Debug("Journal event sent")
	return nil
}

func (k *KafkaSink) Close() error {
	k.mu.Lock()
	defer k.mu.Unlock()
	if k.producer == nil {
		return nil
	}
	err := k.producer.Close()
	k.producer = nil
	return err
}
