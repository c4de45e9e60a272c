package domain

import "time"

// EventType is the routing key used when publishing domain events.
type EventType string

const (
	EventTransactionSuccess EventType = "transaction.success"
	EventTransactionFailed  EventType = "transaction.failed"
	EventAccountApproved    EventType = "account.approved"
	EventAccountRejected    EventType = "account.rejected"
)

// Event is published after the change it describes has been committed.
type Event struct {
	Type        EventType    `json:"type"`
	OccurredAt  time.Time    `json:"occurred_at"`
	Transaction *Transaction `json:"transaction,omitempty"`
	Account     *Account     `json:"account,omitempty"`
}

// TransactionEvent builds the event for a committed ledger row.
func TransactionEvent(t *Transaction) Event {
	typ := EventTransactionSuccess
	if !t.IsSuccess() {
		typ = EventTransactionFailed
	}
	return Event{Type: typ, OccurredAt: time.Now().UTC(), Transaction: t}
}

// AccountEvent builds the event for a committed status decision.
func AccountEvent(a *Account) Event {
	typ := EventAccountApproved
	if a.Status == AccountStatusRejected {
		typ = EventAccountRejected
	}
	return Event{Type: typ, OccurredAt: time.Now().UTC(), Account: a}
}
