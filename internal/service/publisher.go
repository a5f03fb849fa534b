// Package service holds the event publisher that fans domain events
// out to the campus.events topic exchange. Publish errors are logged
// and returned so request handlers can ignore them; an order must
// never fail because the broker is down.
package service

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes JSON events to a topic exchange. The routing key
// is the room the event belongs to ("user.<id>", "canteen.<id>") and
// the event name travels in the message Type field.
type Publisher struct {
	url      string
	exchange string
	log      *slog.Logger

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewPublisher(url, exchange string, log *slog.Logger) *Publisher {
	if log == nil {
		log = slog.Default()
	}
	return &Publisher{url: url, exchange: exchange, log: log}
}

// Publish sends one event to every listed room. Payload is marshalled
// once; a dead connection is redialed once before giving up.
func (p *Publisher) Publish(ctx context.Context, event string, payload any, rooms ...string) error {
	body, err := json.Marshal(payload)
	if err != nil {
		p.log.Error("event marshal failed", "event", event, "err", err)
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	ch, err := p.channel()
	if err != nil {
		// One reconnect attempt covers broker restarts.
		p.reset()
		if ch, err = p.channel(); err != nil {
			p.log.Error("publish: broker unavailable", "event", event, "err", err)
			return err
		}
	}

	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Type:         event,
		Body:         body,
	}
	for _, room := range rooms {
		if err := ch.PublishWithContext(ctx, p.exchange, room, false, false, pub); err != nil {
			p.log.Error("publish failed", "event", event, "room", room, "err", err)
			p.reset()
			return err
		}
	}
	return nil
}

// Close releases the broker connection.
func (p *Publisher) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.reset()
}

// channel returns a live channel, dialing and declaring the exchange
// on first use. Caller holds p.mu.
func (p *Publisher) channel() (*amqp.Channel, error) {
	if p.ch != nil && !p.conn.IsClosed() {
		return p.ch, nil
	}
	conn, err := amqp.Dial(p.url)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, err
	}
	if err := ch.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, err
	}
	p.conn, p.ch = conn, ch
	return ch, nil
}

func (p *Publisher) reset() {
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		_ = p.conn.Close()
		p.conn = nil
	}
}
