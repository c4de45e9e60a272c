package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"retail-bank/internal/core/domain"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange, key string
	msg           amqp.Publishing
}

type fakeChannel struct {
	mu         sync.Mutex
	declared   []string
	sent       []published
	failNext   int
	failWith   error
	declareErr error
	closed     bool
}

func (f *fakeChannel) ExchangeDeclare(name, kind string, durable, _, _, _ bool, _ amqp.Table) error {
	if f.declareErr != nil {
		return f.declareErr
	}
	f.declared = append(f.declared, name+":"+kind)
	return nil
}

func (f *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext > 0 {
		f.failNext--
		if f.failWith != nil {
			return f.failWith
		}
		return errors.New("channel closed")
	}
	f.sent = append(f.sent, published{exchange, key, msg})
	return nil
}

func (f *fakeChannel) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeChannel) isClosed() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.closed
}

// connector hands out sessions in order and counts dials.
type connector struct {
	mu       sync.Mutex
	sessions []*session
	dials    int
}

func (c *connector) connect() (*session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.dials >= len(c.sessions) {
		return nil, errors.New("connection refused")
	}
	s := c.sessions[c.dials]
	c.dials++
	return s, nil
}

func (c *connector) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dials
}

func single(ch *fakeChannel) func() (*session, error) {
	return (&connector{sessions: []*session{{ch: ch}}}).connect
}

func TestPublisher_Publish(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(single(ch), "bank.events", zerolog.Nop())
	require.NoError(t, err)
	assert.Equal(t, []string{"bank.events:topic"}, ch.declared)

	recv := "222222222222"
	event := domain.TransactionEvent(&domain.Transaction{
		SenderAccount:   "111111111111",
		ReceiverAccount: &recv,
		Amount:          1500,
		Status:          domain.TransactionStatusSuccess,
	})

	require.NoError(t, p.Publish(context.Background(), event))
	require.Len(t, ch.sent, 1)

	got := ch.sent[0]
	assert.Equal(t, "bank.events", got.exchange)
	assert.Equal(t, "transaction.success", got.key)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "application/json", got.msg.ContentType)
	assert.NotEmpty(t, got.msg.MessageId)

	var decoded domain.Event
	require.NoError(t, json.Unmarshal(got.msg.Body, &decoded))
	assert.Equal(t, int64(1500), decoded.Transaction.Amount)
}

func TestPublisher_RetriesTransientFailure(t *testing.T) {
	ch := &fakeChannel{failNext: 1}
	p, err := newPublisher(single(ch), "bank.events", zerolog.Nop())
	require.NoError(t, err)

	err = p.Publish(context.Background(), domain.AccountEvent(&domain.Account{Status: domain.AccountStatusApproved}))
	require.NoError(t, err)
	require.Len(t, ch.sent, 1)
	assert.Equal(t, "account.approved", ch.sent[0].key)
}

func TestPublisher_GivesUp(t *testing.T) {
	ch := &fakeChannel{failNext: 10}
	p, err := newPublisher(single(ch), "bank.events", zerolog.Nop())
	require.NoError(t, err)

	err = p.Publish(context.Background(), domain.Event{Type: domain.EventTransactionFailed, OccurredAt: time.Now()})
	assert.Error(t, err)
	assert.Empty(t, ch.sent)
}

func TestNewPublisher_DeclareFails(t *testing.T) {
	_, err := newPublisher(single(&fakeChannel{declareErr: errors.New("access refused")}), "bank.events", zerolog.Nop())
	assert.ErrorContains(t, err, "declare exchange")
}

func TestPublisher_Close(t *testing.T) {
	ch := &fakeChannel{}
	p, err := newPublisher(single(ch), "bank.events", zerolog.Nop())
	require.NoError(t, err)
	require.NoError(t, p.Close())
	assert.True(t, ch.isClosed())
	assert.NoError(t, p.Close())

	err = p.Publish(context.Background(), domain.Event{Type: domain.EventAccountApproved})
	assert.ErrorIs(t, err, errPublisherClosed)
}

func TestPublisher_RedialsAfterConnectionLoss(t *testing.T) {
	first, second := &fakeChannel{}, &fakeChannel{}
	lost := make(chan *amqp.Error, 1)
	c := &connector{sessions: []*session{{ch: first, connLost: lost}, {ch: second}}}

	p, err := newPublisher(c.connect, "bank.events", zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, c.count())

	lost <- &amqp.Error{Code: amqp.ConnectionForced, Reason: "broker restart"}
	require.Eventually(t, func() bool {
		p.mu.Lock()
		defer p.mu.Unlock()
		return p.stale
	}, time.Second, 5*time.Millisecond)

	require.NoError(t, p.Publish(context.Background(), domain.Event{Type: domain.EventAccountApproved}))
	assert.Equal(t, 2, c.count())
	assert.Empty(t, first.sent)
	require.Len(t, second.sent, 1)
	assert.Equal(t, []string{"bank.events:topic"}, second.declared)
	assert.True(t, first.isClosed())
}

func TestPublisher_RedialsAfterClosedChannel(t *testing.T) {
	first := &fakeChannel{failWith: amqp.ErrClosed, failNext: 1}
	second := &fakeChannel{}
	c := &connector{sessions: []*session{{ch: first}, {ch: second}}}

	p, err := newPublisher(c.connect, "bank.events", zerolog.Nop())
	require.NoError(t, err)

	require.NoError(t, p.Publish(context.Background(), domain.Event{Type: domain.EventTransactionFailed}))
	assert.Equal(t, 2, c.count())
	assert.Empty(t, first.sent)
	assert.Len(t, second.sent, 1)
}

func TestPublisher_RedialFailureExhaustsRetries(t *testing.T) {
	first := &fakeChannel{failWith: amqp.ErrClosed, failNext: 1}
	c := &connector{sessions: []*session{{ch: first}}}

	p, err := newPublisher(c.connect, "bank.events", zerolog.Nop())
	require.NoError(t, err)

	err = p.Publish(context.Background(), domain.Event{Type: domain.EventTransactionFailed})
	assert.ErrorContains(t, err, "connection refused")
}

func TestNopPublisher(t *testing.T) {
	n := NewNopPublisher(zerolog.Nop())
	assert.NoError(t, n.Publish(context.Background(), domain.Event{Type: domain.EventAccountRejected}))
	assert.NoError(t, n.Close())
}
