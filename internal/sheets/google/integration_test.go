//go:build integration

package google

import (
	"context"
	"os"
	"testing"
	"time"

	"lawdesk/internal/core"
	"lawdesk/internal/sheets"
)

// Integration tests require a real spreadsheet shared with a service account.
// Run with: go test -tags=integration ./internal/sheets/google

func TestIntegration_LedgerMirror(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}
	spreadsheetID := os.Getenv("GOOGLE_SPREADSHEET_ID")
	if spreadsheetID == "" {
		t.Skip("GOOGLE_SPREADSHEET_ID not set, skipping integration test")
	}
	cfg := Config{
		SpreadsheetID:      spreadsheetID,
		SheetName:          "LedgerIntegration",
		ServiceAccountJSON: os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"),
		ServiceAccountFile: os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"),
	}
	if cfg.ServiceAccountJSON == "" && cfg.ServiceAccountFile == "" {
		t.Skip("service account credentials not configured, skipping integration test")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	client, err := NewClient(ctx, cfg)
	if err != nil {
		t.Fatalf("Failed to create client: %v", err)
	}

	id := time.Now().Unix()
	row := sheets.NewLedgerRow(core.Transaction{
		ID:       id,
		Date:     core.Today(),
		Type:     core.Income,
		Category: "consultation_fee",
		Amount:   core.Money{Cents: 1234},
		Currency: "TRY",
		Status:   core.TxPending,
	}, core.Money{})

	ref, err := client.UpsertTransaction(ctx, row)
	if err != nil {
		t.Fatalf("Failed to upsert: %v", err)
	}
	t.Logf("Mirrored transaction %d at %s", id, ref)

	row.Status = core.TxPaid
	again, err := client.UpsertTransaction(ctx, row)
	if err != nil {
		t.Fatalf("Failed to update: %v", err)
	}
	if again != ref {
		t.Errorf("expected update in place at %s, got %s", ref, again)
	}

	if err := client.DeleteTransaction(ctx, id); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
}
