package core

import "time"

type (
	LedgerEventType string
	OutboxStatus    string

	// LedgerEvent announces that a transaction changed and its mirror is stale.
	LedgerEvent struct {
		OutboxID      int64           `json:"outbox_id"`
		Type          LedgerEventType `json:"type"`
		TransactionID int64           `json:"transaction_id"`
		OccurredAt    time.Time       `json:"occurred_at"`
	}

	OutboxEntry struct {
		ID            int64           `json:"id"`
		EventType     LedgerEventType `json:"event_type"`
		TransactionID int64           `json:"transaction_id"`
		Status        OutboxStatus    `json:"status"`
		Attempts      int             `json:"attempts"`
		LastError     string          `json:"last_error,omitempty"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     time.Time       `json:"updated_at"`
	}
)

const (
	TransactionUpserted LedgerEventType = "transaction.upserted"
	TransactionDeleted  LedgerEventType = "transaction.deleted"

	OutboxPending OutboxStatus = "pending"
	OutboxSynced  OutboxStatus = "synced"
	OutboxFailed  OutboxStatus = "failed"
)
