package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"lawdesk/internal/core"
)

// LedgerEventMessage is the body published for every committed ledger
// change. It carries identifiers only; consumers reload the transaction.
type LedgerEventMessage struct {
	OutboxID      int64                `json:"outbox_id"`
	Type          core.LedgerEventType `json:"type"`
	TransactionID int64                `json:"transaction_id"`
	OccurredAt    time.Time            `json:"occurred_at"`
}

// NewLedgerEventMessage builds a message from a ledger event. A zero
// OccurredAt is stamped with the current time.
func NewLedgerEventMessage(ev core.LedgerEvent) *LedgerEventMessage {
	at := ev.OccurredAt
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return &LedgerEventMessage{
		OutboxID:      ev.OutboxID,
		Type:          ev.Type,
		TransactionID: ev.TransactionID,
		OccurredAt:    at,
	}
}

// Event converts the message back to the domain event.
func (m *LedgerEventMessage) Event() core.LedgerEvent {
	return core.LedgerEvent{
		OutboxID:      m.OutboxID,
		Type:          m.Type,
		TransactionID: m.TransactionID,
		OccurredAt:    m.OccurredAt,
	}
}

// ToJSON converts the message to JSON bytes
func (m *LedgerEventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// LedgerEventMessageFromJSON decodes and validates a message body.
func LedgerEventMessageFromJSON(data []byte) (*LedgerEventMessage, error) {
	var msg LedgerEventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	switch msg.Type {
	case core.TransactionUpserted, core.TransactionDeleted:
	default:
		return nil, fmt.Errorf("unknown ledger event type %q", msg.Type)
	}
	if msg.TransactionID <= 0 {
		return nil, fmt.Errorf("ledger event without transaction id")
	}
	return &msg, nil
}
