// Package google mirrors transactions to a Google Sheets spreadsheet. Rows
// are appended on sync and removed on delete; they are never updated in
// place.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"finquery/internal/core"
	"finquery/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Config struct {
	SpreadsheetID string
	// SheetName defaults to "Transactions".
	SheetName string
	// Service account credentials, inline JSON or a file path. When both are
	// empty the GOOGLE_APPLICATION_CREDENTIALS file is used.
	CredentialsJSON string
	CredentialsFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetName     string

	mu            sync.Mutex
	sheetID       int64
	sheetIDLoaded bool
}

var (
	_ ledger.RowAppender = (*Client)(nil)
	_ ledger.RowRemover  = (*Client)(nil)
)

func New(ctx context.Context, cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	sheetName := strings.TrimSpace(cfg.SheetName)
	if sheetName == "" {
		sheetName = "Transactions"
	}

	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}

	return &Client{
		svc:           svc,
		spreadsheetID: cfg.SpreadsheetID,
		sheetName:     sheetName,
	}, nil
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	credentialsJSON := []byte(strings.TrimSpace(cfg.CredentialsJSON))
	credentialsFile := strings.TrimSpace(cfg.CredentialsFile)
	if len(credentialsJSON) == 0 && credentialsFile == "" {
		credentialsFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	if len(credentialsJSON) == 0 {
		if credentialsFile == "" {
			return nil, errors.New("missing service account credentials")
		}
		data, err := os.ReadFile(credentialsFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		credentialsJSON = data
	}

	return gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
}

// AppendRow implements ledger.RowAppender and returns the updated range as
// the row reference.
func (c *Client) AppendRow(ctx context.Context, tx core.Transaction) (string, error) {
	if err := tx.Validate(); err != nil {
		return "", fmt.Errorf("validation failed: %w", err)
	}
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:F", c.sheetName)
	vr := &gsheet.ValueRange{Values: [][]any{rowValues(tx, time.Now())}}

	resp, err := c.svc.Spreadsheets.Values.Append(c.spreadsheetID, rng, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("append to sheet %s: %w", c.sheetName, err)
	}
	if resp.Updates == nil || resp.Updates.UpdatedRange == "" {
		return fmt.Sprintf("%s!A:F", c.sheetName), nil
	}
	return resp.Updates.UpdatedRange, nil
}

// RemoveRow implements ledger.RowRemover. It locates the mirrored row by the
// ID in column A and deletes it. A missing row is not an error: the delete
// may have raced the sync, or the row was never backed up.
func (c *Client) RemoveRow(ctx context.Context, id int64) error {
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}

	rng := fmt.Sprintf("%s!A:A", c.sheetName)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("read id column from sheet %s: %w", c.sheetName, err)
	}

	rowIndex := findRowByID(resp.Values, id)
	if rowIndex < 0 {
		return nil
	}

	sheetID, err := c.resolveSheetID(ctx)
	if err != nil {
		return err
	}

	req := &gsheet.BatchUpdateSpreadsheetRequest{
		Requests: []*gsheet.Request{{
			DeleteDimension: &gsheet.DeleteDimensionRequest{
				Range: &gsheet.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(rowIndex),
					EndIndex:   int64(rowIndex + 1),
				},
			},
		}},
	}
	if _, err := c.svc.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("delete row %d from sheet %s: %w", rowIndex+1, c.sheetName, err)
	}
	return nil
}

// findRowByID returns the zero-based row index whose first cell matches id,
// or -1. Cells come back as strings or numbers depending on formatting.
func findRowByID(rows [][]any, id int64) int {
	want := strconv.FormatInt(id, 10)
	for i, row := range rows {
		if len(row) == 0 {
			continue
		}
		if fmt.Sprint(row[0]) == want {
			return i
		}
	}
	return -1
}

// resolveSheetID looks up the numeric sheet id for the configured tab name.
// The id is stable, so one lookup per process is enough.
func (c *Client) resolveSheetID(ctx context.Context) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.sheetIDLoaded {
		return c.sheetID, nil
	}

	spreadsheet, err := c.svc.Spreadsheets.Get(c.spreadsheetID).Context(ctx).Do()
	if err != nil {
		return 0, fmt.Errorf("get spreadsheet metadata: %w", err)
	}
	for _, sheet := range spreadsheet.Sheets {
		if sheet.Properties != nil && sheet.Properties.Title == c.sheetName {
			c.sheetID = sheet.Properties.SheetId
			c.sheetIDLoaded = true
			return c.sheetID, nil
		}
	}
	return 0, fmt.Errorf("sheet %s not found in spreadsheet", c.sheetName)
}

// rowValues lays out a backup row: id, owner, amount in dollars, category,
// the transaction's own timestamp, and when the backup was written.
func rowValues(tx core.Transaction, backedUpAt time.Time) []any {
	return []any{
		tx.ID,
		tx.Owner,
		tx.Amount.Dollars(),
		tx.Category,
		tx.Timestamp,
		backedUpAt.UTC().Format(time.RFC3339),
	}
}
