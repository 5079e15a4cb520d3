// Package events publishes game lifecycle events to RabbitMQ. Publishing is
// fire-and-forget from the server's point of view: the game loop never
// waits on the broker.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"

	pubevts "github.com/viccstake/tilez/pkg/events"
)

const defaultTimeout = 5 * time.Second

var exchanges = []string{
	pubevts.ExchangeGameStarted,
	pubevts.ExchangeGameEnded,
}

// Publisher handles publishing events to RabbitMQ.
type Publisher struct {
	ch *amqp091.Channel
}

// NewPublisher creates a new event publisher, declaring every lifecycle
// exchange on the given channel.
func NewPublisher(ch *amqp091.Channel) (*Publisher, error) {
	for _, exchange := range exchanges {
		if err := ch.ExchangeDeclare(
			exchange,
			"direct",
			false,
			false,
			false,
			false,
			nil,
		); err != nil {
			return nil, fmt.Errorf("could not declare exchange %s: %w", exchange, err)
		}
	}
	return &Publisher{ch: ch}, nil
}

// PublishGameStarted publishes a game started event.
func (p *Publisher) PublishGameStarted(ctx context.Context, event pubevts.GameStartedEvent) error {
	return p.publishEvent(ctx, pubevts.ExchangeGameStarted, event)
}

// PublishGameEnded publishes a game ended event.
func (p *Publisher) PublishGameEnded(ctx context.Context, event pubevts.GameEndedEvent) error {
	return p.publishEvent(ctx, pubevts.ExchangeGameEnded, event)
}

// publishEvent publishes an event to a specific exchange.
func (p *Publisher) publishEvent(ctx context.Context, exchange string, event interface{}) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("could not marshal event: %w", err)
	}

	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, defaultTimeout)
		defer cancel()
	}

	if err := p.ch.PublishWithContext(
		ctx,
		exchange,
		"",
		false,
		false,
		amqp091.Publishing{
			ContentType: pubevts.ContentType,
			Body:        data,
		},
	); err != nil {
		return fmt.Errorf("could not publish event to %s: %w", exchange, err)
	}
	return nil
}

// SetupMonitorQueues declares and binds one queue per lifecycle exchange so
// published events are retained even when no consumer is attached yet.
func SetupMonitorQueues(ch *amqp091.Channel) error {
	for _, exchange := range exchanges {
		queueName := "monitor." + exchange
		if _, err := ch.QueueDeclare(
			queueName,
			false,
			false,
			false,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to declare monitor queue for %s: %w", exchange, err)
		}

		if err := ch.QueueBind(
			queueName,
			"",
			exchange,
			false,
			nil,
		); err != nil {
			return fmt.Errorf("failed to bind monitor queue to %s: %w", exchange, err)
		}
	}
	return nil
}
