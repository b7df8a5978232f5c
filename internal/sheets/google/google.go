// Package google mirrors the ledger into a Google Sheets tab, one row per
// transaction keyed by the ID in column A.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"lawdesk/internal/sheets"
)

var _ sheets.LedgerMirror = (*Client)(nil)

const defaultCacheValidDuration = 5 * time.Minute

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	// row index cache: transaction ID -> 1-based sheet row
	mu                 sync.Mutex
	rowIndex           map[int64]int
	cachedRowCount     int
	cacheExpiresAt     time.Time
	cacheValidDuration time.Duration
}

// NewClient creates a Sheets client authenticated with a service account.
// Extra options are appended after the credentials.
func NewClient(ctx context.Context, cfg Config, opts ...goption.ClientOption) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing GOOGLE_SPREADSHEET_ID")
	}
	creds, err := loadCredentials(ctx, cfg)
	if err != nil {
		return nil, err
	}
	opts = append([]goption.ClientOption{
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope),
	}, opts...)

	svc, err := gsheet.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	slog.InfoContext(ctx, "Google Sheets service created", "spreadsheet_id", cfg.SpreadsheetID, "sheet", cfg.SheetName)
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName), nil
}

// NewWithService wraps an existing service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetName string) *Client {
	if sheetName == "" {
		sheetName = "Ledger"
	}
	return &Client{
		svc:                svc,
		spreadsheetID:      spreadsheetID,
		sheetName:          sheetName,
		cacheValidDuration: defaultCacheValidDuration,
	}
}

// loadCredentials prefers inline JSON over a file path.
func loadCredentials(ctx context.Context, cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		slog.InfoContext(ctx, "Using inline service account credentials")
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		b, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		slog.InfoContext(ctx, "Read service account credentials", "path", cfg.ServiceAccountFile, "size", len(b))
		return b, nil
	}
	return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
}

// UpsertTransaction overwrites the transaction's row, appending one when the
// ID is not in the sheet yet.
func (c *Client) UpsertTransaction(ctx context.Context, row sheets.LedgerRow) (string, error) {
	if row.TransactionID <= 0 {
		return "", errors.New("ledger row without transaction id")
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndexLocked(ctx); err != nil {
		return "", err
	}
	if c.cachedRowCount == 0 {
		if err := c.writeRowLocked(ctx, 1, sheets.Header); err != nil {
			return "", fmt.Errorf("write header: %w", err)
		}
		c.cachedRowCount = 1
	}

	n, ok := c.rowIndex[row.TransactionID]
	if !ok {
		n = c.cachedRowCount + 1
	}
	if err := c.writeRowLocked(ctx, n, row.Cells()); err != nil {
		c.invalidateLocked()
		return "", err
	}
	c.rowIndex[row.TransactionID] = n
	if n > c.cachedRowCount {
		c.cachedRowCount = n
	}
	return c.rowRange(n), nil
}

// DeleteTransaction clears the transaction's row. Row positions of other
// transactions do not move. A missing row is not an error.
func (c *Client) DeleteTransaction(ctx context.Context, txID int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if err := c.loadIndexLocked(ctx); err != nil {
		return err
	}
	n, ok := c.rowIndex[txID]
	if !ok {
		return nil
	}
	rng := c.rowRange(n)
	if _, err := c.svc.Spreadsheets.Values.Clear(c.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do(); err != nil {
		c.invalidateLocked()
		return fmt.Errorf("clear %s: %w", rng, err)
	}
	delete(c.rowIndex, txID)
	return nil
}

func (c *Client) writeRowLocked(ctx context.Context, n int, cells []string) error {
	rng := c.rowRange(n)
	values := make([]any, len(cells))
	for i, v := range cells {
		values[i] = v
	}
	_, err := c.svc.Spreadsheets.Values.Update(c.spreadsheetID, rng, &gsheet.ValueRange{Values: [][]any{values}}).
		ValueInputOption("RAW").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", rng, err)
	}
	return nil
}

// loadIndexLocked refreshes the ID column when the cache has expired.
func (c *Client) loadIndexLocked(ctx context.Context) error {
	if c.rowIndex != nil && time.Now().Before(c.cacheExpiresAt) {
		return nil
	}
	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read %s: %w", rng, err)
	}
	c.rowIndex, c.cachedRowCount = indexIDColumn(resp.Values)
	c.cacheExpiresAt = time.Now().Add(c.cacheValidDuration)
	return nil
}

func (c *Client) invalidateLocked() {
	c.rowIndex = nil
	c.cacheExpiresAt = time.Time{}
}

func (c *Client) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", c.sheetName, n, columnLetter(len(sheets.Header)), n)
}
