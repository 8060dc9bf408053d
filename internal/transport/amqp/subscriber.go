// Package amqp listens for knowledge base publication events on RabbitMQ.
package amqp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/kailas-cloud/nutrisafe/internal/metrics"
)

// Defaults for the publication topic.
const (
	DefaultExchange   = "nutrisafe.kb"
	DefaultRoutingKey = "kb.published"
)

// Channel is the subset of *amqp.Channel the subscriber needs.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	Qos(prefetchCount, prefetchSize int, global bool) error
	Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error)
}

// Trigger schedules a knowledge base reload.
type Trigger interface {
	Trigger()
}

// Event is the body of a kb.published message. Every field is informational:
// the reload always reads the configured source.
type Event struct {
	Version  string `json:"version"`
	Checksum string `json:"checksum,omitempty"`
}

// Subscriber turns publication events into reload triggers.
type Subscriber struct {
	ch         Channel
	trigger    Trigger
	exchange   string
	routingKey string
	queue      string
	logger     *zap.Logger
}

// Dial connects to the broker and opens a channel.
func Dial(url string) (*amqp.Connection, *amqp.Channel, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, nil, fmt.Errorf("dial amqp: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("open amqp channel: %w", err)
	}
	return conn, ch, nil
}

// NewSubscriber creates a subscriber. An empty queue name lets the broker
// name an exclusive queue, so every replica receives every event.
func NewSubscriber(ch Channel, trigger Trigger, exchange, routingKey, queue string, logger *zap.Logger) *Subscriber {
	if exchange == "" {
		exchange = DefaultExchange
	}
	if routingKey == "" {
		routingKey = DefaultRoutingKey
	}
	return &Subscriber{
		ch:         ch,
		trigger:    trigger,
		exchange:   exchange,
		routingKey: routingKey,
		queue:      queue,
		logger:     logger,
	}
}

// Setup declares the topic exchange and binds the subscriber queue.
func (s *Subscriber) Setup() (string, error) {
	if err := s.ch.ExchangeDeclare(s.exchange, "topic", true, false, false, false, nil); err != nil {
		return "", fmt.Errorf("declare exchange %s: %w", s.exchange, err)
	}

	exclusive := s.queue == ""
	q, err := s.ch.QueueDeclare(
		s.queue,
		!exclusive, // durable
		exclusive,  // autoDelete
		exclusive,  // exclusive
		false,      // noWait
		nil,
	)
	if err != nil {
		return "", fmt.Errorf("declare queue: %w", err)
	}
	if err := s.ch.QueueBind(q.Name, s.routingKey, s.exchange, false, nil); err != nil {
		return "", fmt.Errorf("bind queue %s: %w", q.Name, err)
	}
	if err := s.ch.Qos(1, 0, false); err != nil {
		return "", fmt.Errorf("set qos: %w", err)
	}
	return q.Name, nil
}

// Run consumes events until ctx is done or the delivery channel closes.
func (s *Subscriber) Run(ctx context.Context) error {
	queue, err := s.Setup()
	if err != nil {
		return err
	}
	msgs, err := s.ch.Consume(
		queue,
		"nutrisafe_kb_consumer",
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		return fmt.Errorf("consume %s: %w", queue, err)
	}

	s.logger.Info("Listening for knowledge base events",
		zap.String("exchange", s.exchange),
		zap.String("routing_key", s.routingKey),
		zap.String("queue", queue),
	)
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("amqp delivery channel closed")
			}
			s.handle(msg)
		}
	}
}

func (s *Subscriber) handle(msg amqp.Delivery) {
	var ev Event
	if err := json.Unmarshal(msg.Body, &ev); err != nil {
		metrics.KBEventsTotal.WithLabelValues("malformed").Inc()
		s.logger.Warn("Malformed knowledge base event", zap.Error(err))
		if err := msg.Reject(false); err != nil {
			s.logger.Error("Failed to reject message", zap.Error(err))
		}
		return
	}

	s.trigger.Trigger()
	metrics.KBEventsTotal.WithLabelValues("triggered").Inc()
	s.logger.Info("Knowledge base event received",
		zap.String("version", ev.Version),
		zap.String("routing_key", msg.RoutingKey),
	)
	if err := msg.Ack(false); err != nil {
		s.logger.Error("Failed to ack message", zap.Error(err))
	}
}
