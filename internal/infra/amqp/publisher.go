package amqp

import (
	"context"
	"encoding/json"
	"time"

	"github.com/golang/glog"
	"github.com/pkg/errors"
	amqp091 "github.com/rabbitmq/amqp091-go"

	"khaos-quiz-service/internal/domain"
)

const (
	DefaultExchange = "quiz.events"
	publishTimeout  = 5 * time.Second
)

// Channel is the subset of *amqp091.Channel used by Publisher.
type Channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// Publisher sends lifecycle events to a topic exchange, routed by event type.
type Publisher struct {
	conn     *amqp091.Connection
	channel  Channel
	exchange string
	now      func() time.Time
}

// Dial connects to the broker and declares the exchange.
func Dial(url, exchange string) (*Publisher, error) {
	if exchange == "" {
		exchange = DefaultExchange
	}
	conn, err := amqp091.Dial(url)
	if err != nil {
		return nil, errors.Wrap(err, "connect to rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, errors.Wrap(err, "open channel")
	}
	err = ch.ExchangeDeclare(
		exchange, // name
		"topic",  // type
		true,     // durable
		false,    // auto-deleted
		false,    // internal
		false,    // no-wait
		nil,      // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, errors.Wrapf(err, "declare exchange %s", exchange)
	}

	p := NewPublisher(ch, exchange)
	p.conn = conn
	return p, nil
}

// NewPublisher publishes on an already opened channel.
func NewPublisher(ch Channel, exchange string) *Publisher {
	return &Publisher{channel: ch, exchange: exchange, now: time.Now}
}

func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return errors.Wrapf(err, "marshal event %s", event.Type)
	}

	pubCtx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	err = p.channel.PublishWithContext(pubCtx, p.exchange, event.Type, false, false, amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    p.now(),
		Body:         body,
	})
	if err != nil {
		return errors.Wrapf(err, "publish event %s", event.Type)
	}
	glog.V(2).Infof("published %s for quiz %s", event.Type, event.QuizID)
	return nil
}

func (p *Publisher) Close() error {
	if err := p.channel.Close(); err != nil {
		glog.Warningf("close rabbitmq channel: %v", err)
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}
