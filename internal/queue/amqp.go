package queue

import (
	"github.com/rs/zerolog"
	"github.com/streadway/amqp"
)

// AMQPQueue bridges the Queue interface onto RabbitMQ. Topics map to
// durable queues; delivery is manual-ack with up to maxDeliveryRetries
// requeues per message.
type AMQPQueue struct {
	conn *amqp.Connection
	ch   *amqp.Channel
	log  zerolog.Logger
}

const maxDeliveryRetries = 3

func NewAMQPQueue(url string, log zerolog.Logger) (*AMQPQueue, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}
	return &AMQPQueue{conn: conn, ch: ch, log: log}, nil
}

func (q *AMQPQueue) Close() error {
	q.ch.Close()
	return q.conn.Close()
}

func (q *AMQPQueue) declare(topic string) (amqp.Queue, error) {
	return q.ch.QueueDeclare(
		topic, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
}

func (q *AMQPQueue) Publish(topic string, body []byte) error {
	if _, err := q.declare(topic); err != nil {
		return err
	}
	return q.ch.Publish(
		"",    // exchange
		topic, // routing key
		false, // mandatory
		false, // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

// Subscribe consumes topic until the channel closes. Failed handlers are
// retried by republishing a copy with an incremented retry counter in the
// message headers; past the retry cap the message is acked away. A bare
// Nack requeue would redeliver the original headers unchanged and the
// counter would never advance.
func (q *AMQPQueue) Subscribe(topic string, handler func(body []byte) error) error {
	queue, err := q.declare(topic)
	if err != nil {
		return err
	}

	msgs, err := q.ch.Consume(
		queue.Name,
		"",
		false, // autoAck = false for reliability
		false,
		false,
		false,
		nil,
	)
	if err != nil {
		return err
	}

	go func() {
		for d := range msgs {
			if err := handler(d.Body); err != nil {
				retries := retryCount(d.Headers)
				q.log.Warn().Err(err).Str("topic", topic).
					Int32("retries", retries).Msg("handler failed")

				if retries < maxDeliveryRetries {
					if perr := q.ch.Publish("", topic, false, false, amqp.Publishing{
						ContentType:  d.ContentType,
						DeliveryMode: amqp.Persistent,
						Headers:      amqp.Table{"x-retry-count": retries + 1},
						Body:         d.Body,
					}); perr != nil {
						q.log.Error().Err(perr).Str("topic", topic).Msg("failed to republish for retry")
						if nerr := d.Nack(false, true); nerr != nil {
							q.log.Error().Err(nerr).Str("topic", topic).Msg("failed to nack message")
						}
						continue
					}
				} else {
					q.log.Error().Str("topic", topic).Msg("message permanently failed")
				}
			}
			if aerr := d.Ack(false); aerr != nil {
				q.log.Error().Err(aerr).Str("topic", topic).Msg("failed to ack message")
			}
		}
	}()
	return nil
}

// retryCount reads the retry counter from the message headers. The broker
// may hand the number back as a different integer width than it was
// published with.
func retryCount(headers amqp.Table) int32 {
	switch v := headers["x-retry-count"].(type) {
	case int32:
		return v
	case int64:
		return int32(v)
	case int:
		return int32(v)
	}
	return 0
}

var _ Queue = (*AMQPQueue)(nil)
