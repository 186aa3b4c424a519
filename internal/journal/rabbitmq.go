package journal

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// RabbitSink publishes events to a topic exchange, using the journal topic
// as routing key.
type RabbitSink struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	exchange string
	timeout  time.Duration
}

func NewRabbitSink(url, exchange string) (*RabbitSink, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open RabbitMQ channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", exchange, err)
	}
	return &RabbitSink{conn: conn, ch: ch, exchange: exchange, timeout: 5 * time.Second}, nil
}

func (r *RabbitSink) WriteMessage(topic string, msg []byte) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()
	return r.ch.PublishWithContext(ctx, r.exchange, topic, false, false, amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		Timestamp:    time.Now().UTC(),
		Body:         msg,
	})
}

func (r *RabbitSink) Close() error {
	var err error
	if r.ch != nil {
		err = r.ch.Close()
	}
	if r.conn != nil {
		if cerr := r.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
