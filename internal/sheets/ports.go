// Package sheets defines the ledger mirror: a flat, spreadsheet-friendly copy
// of every transaction kept in sync from the ledger outbox.
package sheets

import (
	"context"
	"strconv"
	"time"

	"lawdesk/internal/core"
)

type (
	// LedgerRow is one mirrored transaction with its derived amounts.
	LedgerRow struct {
		TransactionID int64
		Date          core.Date
		Type          core.TransactionType
		Category      string
		Amount        core.Money
		Currency      string
		Status        core.TransactionStatus
		Paid          core.Money
		Remaining     core.Money
		ClientID      *int64
		CaseID        *int64
		Description   string
		UpdatedAt     time.Time
	}

	// LedgerMirror receives upserts and deletes keyed by transaction ID.
	// Both operations are idempotent.
	LedgerMirror interface {
		UpsertTransaction(ctx context.Context, row LedgerRow) (rowRef string, err error)
		DeleteTransaction(ctx context.Context, txID int64) error
	}
)

// Header is the column layout of a mirrored ledger sheet.
var Header = []string{
	"ID", "Date", "Type", "Category", "Amount", "Currency", "Status",
	"Paid", "Remaining", "Client", "Case", "Description", "Updated At",
}

// NewLedgerRow flattens a transaction and the amount already paid on it.
func NewLedgerRow(t core.Transaction, paid core.Money) LedgerRow {
	return LedgerRow{
		TransactionID: t.ID,
		Date:          t.Date,
		Type:          t.Type,
		Category:      t.Category,
		Amount:        t.Amount,
		Currency:      t.Currency,
		Status:        t.Status,
		Paid:          paid,
		Remaining:     t.Amount.Sub(paid),
		ClientID:      t.ClientID,
		CaseID:        t.CaseID,
		Description:   t.Description,
		UpdatedAt:     t.UpdatedAt,
	}
}

// Cells renders the row in Header order. Amounts are decimal strings so the
// sheet never sees float rounding.
func (r LedgerRow) Cells() []string {
	return []string{
		strconv.FormatInt(r.TransactionID, 10),
		r.Date.String(),
		string(r.Type),
		r.Category,
		r.Amount.String(),
		r.Currency,
		string(r.Status),
		r.Paid.String(),
		r.Remaining.String(),
		optionalID(r.ClientID),
		optionalID(r.CaseID),
		r.Description,
		core.FormatDateTime(r.UpdatedAt),
	}
}

func optionalID(id *int64) string {
	if id == nil {
		return ""
	}
	return strconv.FormatInt(*id, 10)
}
