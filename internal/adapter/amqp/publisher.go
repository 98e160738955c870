// Package amqp publishes card change events to a RabbitMQ topic exchange.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"habits/internal/card"
	"habits/internal/domain"
)

const publishTimeout = 2 * time.Second

// channel is the part of *amqp091.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends card events as JSON messages.
type Publisher struct {
	mu       sync.Mutex
	conn     *amqp091.Connection
	ch       channel
	redial   func() (*amqp091.Connection, channel, error)
	exchange string
	log      *zap.Logger
	now      func() time.Time
}

var errNotConnected = errors.New("amqp publisher is not connected")

// Message is the JSON body of a published event.
type Message struct {
	Kind        card.EventKind `json:"kind"`
	HabitID     uuid.UUID      `json:"habitId"`
	LastDay     string         `json:"lastDay"`
	Day         string         `json:"day"`
	Value       int            `json:"value"`
	PublishedAt time.Time      `json:"publishedAt"`
}

// Dial connects to url and declares exchange as a durable topic exchange.
// When the broker closes the channel the next publish dials again, so
// events are only lost while the broker is unreachable.
func Dial(url, exchange string, log *zap.Logger) (*Publisher, error) {
	dial := func() (*amqp091.Connection, channel, error) {
		return connect(url, exchange)
	}
	conn, ch, err := dial()
	if err != nil {
		return nil, err
	}
	p := newPublisher(ch, exchange, log)
	p.conn = conn
	p.redial = dial
	return p, nil
}

func connect(url, exchange string) (*amqp091.Connection, channel, error) {
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, nil, fmt.Errorf("failed to declare exchange: %w", err)
	}
	return conn, ch, nil
}

func newPublisher(ch channel, exchange string, log *zap.Logger) *Publisher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Publisher{ch: ch, exchange: exchange, log: log, now: time.Now}
}

// Close closes the channel and the connection.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.redial = nil
	return p.dropLocked()
}

func (p *Publisher) dropLocked() error {
	var err error
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err = p.conn.Close()
		p.conn = nil
	}
	return err
}

func (p *Publisher) reconnectLocked() error {
	if p.redial == nil {
		return errNotConnected
	}
	_ = p.dropLocked()
	conn, ch, err := p.redial()
	if err != nil {
		return fmt.Errorf("reconnect: %w", err)
	}
	p.conn, p.ch = conn, ch
	p.log.Info("reconnected to broker", zap.String("exchange", p.exchange))
	return nil
}

// RoutingKey is the topic an event kind is published under.
func RoutingKey(kind card.EventKind) string {
	return "habit." + string(kind)
}

// Encode builds the message body of e.
func Encode(e card.Event, at time.Time) ([]byte, error) {
	return json.Marshal(Message{
		Kind:        e.Kind,
		HabitID:     e.HabitID,
		LastDay:     domain.DayKey(e.LastDay),
		Day:         domain.DayKey(e.Day),
		Value:       e.Value,
		PublishedAt: at.UTC(),
	})
}

// Publish sends e to the exchange. A closed channel is redialled once
// before giving up.
func (p *Publisher) Publish(ctx context.Context, e card.Event) error {
	now := p.now()
	body, err := Encode(e, now)
	if err != nil {
		return err
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    now,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		if err := p.reconnectLocked(); err != nil {
			return err
		}
	}
	err = p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(e.Kind), false, false, msg)
	if !errors.Is(err, amqp091.ErrClosed) {
		return err
	}
	if rerr := p.reconnectLocked(); rerr != nil {
		return errors.Join(err, rerr)
	}
	return p.ch.PublishWithContext(ctx, p.exchange, RoutingKey(e.Kind), false, false, msg)
}

// Listener publishes every event it receives. Failures are logged and the
// event is dropped.
func (p *Publisher) Listener() card.Listener {
	return func(e card.Event) {
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()
		if err := p.Publish(ctx, e); err != nil {
			p.log.Warn("publish card event failed",
				zap.String("kind", string(e.Kind)),
				zap.String("habit_id", e.HabitID.String()),
				zap.Error(err),
			)
		}
	}
}
