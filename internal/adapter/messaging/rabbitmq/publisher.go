// Package rabbitmq publishes committed ledger and account events to a topic exchange.
package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"retail-bank/internal/core/domain"
	"retail-bank/internal/core/ports"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
)

// channel is the part of *amqp.Channel the publisher needs.
type channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// session is one broker connection and its channel. The lost channels fire
// when the broker or network closes either of them.
type session struct {
	ch       channel
	conn     io.Closer
	connLost <-chan *amqp.Error
	chanLost <-chan *amqp.Error
}

func (s *session) close() error {
	err := s.ch.Close()
	if s.conn != nil {
		if cerr := s.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

var errPublisherClosed = errors.New("rabbitmq publisher is closed")

// Publisher implements ports.EventPublisher. The routing key is the event type.
// A lost connection is redialed on the next Publish.
type Publisher struct {
	mu       sync.Mutex // amqp channels are not safe for concurrent publishes
	connect  func() (*session, error)
	sess     *session
	stale    bool
	closed   bool
	done     chan struct{}
	exchange string
	retries  uint64
	log      zerolog.Logger
}

var _ ports.EventPublisher = (*Publisher)(nil)

// Dial connects to the broker and declares a durable topic exchange.
func Dial(url, exchange string, log zerolog.Logger) (*Publisher, error) {
	return newPublisher(dialer(url), exchange, log)
}

func dialer(url string) func() (*session, error) {
	return func() (*session, error) {
		conn, err := amqp.DialConfig(url, amqp.Config{Dial: amqp.DefaultDial(10 * time.Second)})
		if err != nil {
			return nil, fmt.Errorf("dial rabbitmq: %w", err)
		}
		ch, err := conn.Channel()
		if err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("open rabbitmq channel: %w", err)
		}
		return &session{
			ch:       ch,
			conn:     conn,
			connLost: conn.NotifyClose(make(chan *amqp.Error, 1)),
			chanLost: ch.NotifyClose(make(chan *amqp.Error, 1)),
		}, nil
	}
}

func newPublisher(connect func() (*session, error), exchange string, log zerolog.Logger) (*Publisher, error) {
	p := &Publisher{
		connect:  connect,
		done:     make(chan struct{}),
		exchange: exchange,
		retries:  3,
		log:      log,
	}
	p.mu.Lock()
	err := p.reconnect()
	p.mu.Unlock()
	if err != nil {
		return nil, err
	}
	log.Info().Str("exchange", exchange).Msg("RabbitMQ publisher ready")
	return p, nil
}

// reconnect opens a fresh session and swaps it in. Must be called with mu held.
func (p *Publisher) reconnect() error {
	s, err := p.connect()
	if err != nil {
		return err
	}
	if err := s.ch.ExchangeDeclare(p.exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		_ = s.close()
		return fmt.Errorf("declare exchange %s: %w", p.exchange, err)
	}
	if p.sess != nil {
		_ = p.sess.close()
	}
	p.sess, p.stale = s, false
	go p.watch(s)
	return nil
}

// watch marks s stale once the broker closes it.
func (p *Publisher) watch(s *session) {
	var cause *amqp.Error
	select {
	case cause = <-s.connLost:
	case cause = <-s.chanLost:
	case <-p.done:
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed || p.sess != s {
		return
	}
	p.stale = true
	ev := p.log.Warn()
	if cause != nil {
		ev = ev.Int("code", cause.Code).Str("reason", cause.Reason)
	}
	ev.Msg("rabbitmq connection lost, redialing on next publish")
}

// Publish sends event as a persistent JSON message, retrying transient failures briefly.
func (p *Publisher) Publish(ctx context.Context, event domain.Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}

	msg := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Type:         string(event.Type),
		Timestamp:    event.OccurredAt,
		Body:         body,
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(50*time.Millisecond), p.retries), ctx)

	return backoff.Retry(func() error {
		p.mu.Lock()
		defer p.mu.Unlock()
		if p.closed {
			return backoff.Permanent(errPublisherClosed)
		}
		if p.stale {
			if err := p.reconnect(); err != nil {
				p.log.Warn().Err(err).Msg("rabbitmq redial failed")
				return err
			}
			p.log.Info().Str("exchange", p.exchange).Msg("RabbitMQ publisher reconnected")
		}
		if err := p.sess.ch.PublishWithContext(ctx, p.exchange, string(event.Type), false, false, msg); err != nil {
			if errors.Is(err, amqp.ErrClosed) {
				p.stale = true
			}
			p.log.Warn().Err(err).Str("routing_key", string(event.Type)).Msg("publish failed")
			return err
		}
		return nil
	}, policy)
}

func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return nil
	}
	p.closed = true
	close(p.done)
	return p.sess.close()
}

// NopPublisher drops events. Used when rabbitmq.enabled is false.
type NopPublisher struct {
	log zerolog.Logger
}

func NewNopPublisher(log zerolog.Logger) *NopPublisher {
	return &NopPublisher{log: log}
}

func (n *NopPublisher) Publish(_ context.Context, event domain.Event) error {
	n.log.Debug().Str("event", string(event.Type)).Msg("event publishing disabled, dropping")
	return nil
}

func (n *NopPublisher) Close() error { return nil }
