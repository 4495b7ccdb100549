// Package events publishes riding domain events to RabbitMQ.
package events

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/apex/log"
	"github.com/rabbitmq/amqp091-go"
)

const Exchange = "riding_topic"

const (
	SessionCreated      = "riding.session.created"
	SessionEnded        = "riding.session.ended"
	SessionCancelled    = "riding.session.cancelled"
	NetworkDisconnected = "riding.network.disconnected"
	HazardReported      = "hazard.report.created"
	HazardStatusChanged = "hazard.report.status"
)

// Publisher delivers an event body under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, body any) error
}

type Nop struct{}

func (Nop) Publish(context.Context, string, any) error { return nil }

// Envelope is the JSON document written to the exchange.
type Envelope struct {
	Type       string    `json:"type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data"`
}

func encode(routingKey string, body any, now time.Time) (amqp091.Publishing, error) {
	b, err := json.Marshal(Envelope{Type: routingKey, OccurredAt: now.UTC(), Data: body})
	if err != nil {
		return amqp091.Publishing{}, err
	}
	return amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    now,
		Body:         b,
	}, nil
}

// Rabbit publishes to a durable topic exchange and reconnects when the
// broker drops the connection.
type Rabbit struct {
	url       string
	mu        sync.RWMutex
	conn      *amqp091.Connection
	ch        *amqp091.Channel
	connClose chan *amqp091.Error
	isClosed  atomic.Bool
}

func NewRabbit(url string) (*Rabbit, error) {
	r := &Rabbit{url: url}
	if err := r.connect(); err != nil {
		return nil, err
	}
	go r.reconnect()
	return r, nil
}

func (r *Rabbit) connect() error {
	conn, err := amqp091.Dial(r.url)
	if err != nil {
		return err
	}
	ch, err := conn.Channel()
	if err != nil {
		return errors.Join(conn.Close(), err)
	}
	err = ch.ExchangeDeclare(
		Exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	)
	if err != nil {
		return errors.Join(conn.Close(), err)
	}

	connClose := make(chan *amqp091.Error, 1)
	conn.NotifyClose(connClose)

	r.mu.Lock()
	r.conn, r.ch, r.connClose = conn, ch, connClose
	r.mu.Unlock()
	return nil
}

func (r *Rabbit) reconnect() {
	for {
		r.mu.RLock()
		closed := r.connClose
		r.mu.RUnlock()
		<-closed
		if r.isClosed.Load() {
			return
		}
		log.Warn("rabbitmq connection lost")
		for {
			if r.isClosed.Load() {
				return
			}
			if err := r.connect(); err != nil {
				log.WithError(err).Info("rabbitmq reconnect failed")
				time.Sleep(3 * time.Second)
				continue
			}
			log.Info("rabbitmq reconnected")
			break
		}
	}
}

func (r *Rabbit) Publish(ctx context.Context, routingKey string, body any) error {
	msg, err := encode(routingKey, body, time.Now())
	if err != nil {
		return err
	}
	r.mu.RLock()
	ch := r.ch
	r.mu.RUnlock()
	return ch.PublishWithContext(ctx, Exchange, routingKey, false, false, msg)
}

func (r *Rabbit) Close() error {
	r.isClosed.Store(true)
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conn.Close()
}

// Emit publishes body and logs a failed publish without returning it.
func Emit(ctx context.Context, p Publisher, routingKey string, body any) {
	if p == nil {
		return
	}
	if err := p.Publish(ctx, routingKey, body); err != nil {
		log.WithError(err).WithField("routing_key", routingKey).Warn("event publish failed")
	}
}
