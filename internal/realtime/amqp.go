package realtime

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// AMQPTransport connects to RabbitMQ and maps rooms onto routing-key
// bindings of a topic exchange. Each connection gets its own
// server-named, exclusive, auto-delete queue, so closing the
// connection drops all room memberships with it.
type AMQPTransport struct {
	URL      string
	Exchange string
	Log      *slog.Logger
}

// NewAMQPTransport builds a transport for the given broker URL and
// exchange name.
func NewAMQPTransport(url, exchange string, log *slog.Logger) *AMQPTransport {
	if log == nil {
		log = slog.Default()
	}
	return &AMQPTransport{URL: url, Exchange: exchange, Log: log}
}

// Connect dials the broker, declares the exchange and a private queue,
// and starts delivering events to sink. The returned Conn joins rooms
// by binding the queue to the exchange with the room as routing key.
func (t *AMQPTransport) Connect(_ context.Context, sink Handler) (Conn, error) {
	conn, err := amqp.Dial(t.URL)
	if err != nil {
		return nil, fmt.Errorf("amqp dial: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("amqp channel: %w", err)
	}
	if err := ch.ExchangeDeclare(t.Exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("exchange declare: %w", err)
	}
	q, err := ch.QueueDeclare("", false, true, true, false, nil) // server-named, exclusive, auto-delete
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(q.Name, "", true, true, false, false, nil)
	if err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("consume: %w", err)
	}

	ac := &amqpConn{conn: conn, ch: ch, queue: q.Name, exchange: t.Exchange}
	go func() {
		for d := range msgs {
			if d.Type == "" {
				continue
			}
			sink(d.Type, d.Body)
		}
	}()
	return ac, nil
}

type amqpConn struct {
	conn     *amqp.Connection
	ch       *amqp.Channel
	queue    string
	exchange string
	closed   sync.Once
}

func (c *amqpConn) Join(room string) error {
	if err := c.ch.QueueBind(c.queue, room, c.exchange, false, nil); err != nil {
		return fmt.Errorf("bind %s: %w", room, err)
	}
	return nil
}

func (c *amqpConn) Close() error {
	var err error
	c.closed.Do(func() {
		// Closing the connection also closes the channel and, with it,
		// the exclusive queue and its bindings.
		err = c.conn.Close()
	})
	return err
}
