// Package queue contains the background consumer that mirrors every
// event on the campus.events exchange into logs/orders.log for audit.
package queue

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const auditQueueName = "events.audit"

// StartAuditConsumer connects to the broker, binds a durable queue to
// every routing key on the exchange, and appends one line per event to
// logs/orders.log. It runs a reconnect loop with capped backoff and
// never returns; run it on its own goroutine.
func StartAuditConsumer(url, exchange string, log *slog.Logger) {
	if log == nil {
		log = slog.Default()
	}
	backoff := time.Second
	for {
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("audit consumer: dial failed", "err", err, "retry_in", backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn, exchange, log); err != nil {
			log.Warn("audit consumer: loop ended", "err", err)
			_ = conn.Close()
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection, exchange string, log *slog.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("audit consumer: set QoS failed", "err", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		return fmt.Errorf("exchange declare: %w", err)
	}
	if _, err := ch.QueueDeclare(auditQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	// "#" matches every room.
	if err := ch.QueueBind(auditQueueName, "#", exchange, false, nil); err != nil {
		return fmt.Errorf("queue bind: %w", err)
	}

	msgs, err := ch.Consume(auditQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}

	for d := range msgs {
		if err := appendAuditLine(d); err != nil {
			log.Warn("audit consumer: write failed", "err", err)
			_ = d.Nack(false, false) // do not requeue, avoids tight loops
			continue
		}
		_ = d.Ack(false)
	}
	return errors.New("deliveries channel closed")
}

func appendAuditLine(d amqp.Delivery) error {
	if err := os.MkdirAll("logs", 0o755); err != nil {
		return fmt.Errorf("mkdir logs: %w", err)
	}
	f, err := os.OpenFile(filepath.Join("logs", "orders.log"),
		os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	ts := d.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	line := fmt.Sprintf("[%s] event=%s room=%s body=%s\n",
		ts.UTC().Format(time.RFC3339), d.Type, d.RoutingKey, d.Body)
	if _, err := f.WriteString(line); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}
