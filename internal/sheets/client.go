// Package sheets is the Mirror Store client: a thin, retryable wrapper over
// the Google Sheets values API exposing the bulk primitives the reconciler
// needs.
package sheets

import (
	"context"
	"fmt"
	"os"
	"time"

	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

const (
	retryAttempts  = 3
	retryBaseDelay = 500 * time.Millisecond
)

type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	sheet         string
}

func New(serviceAccountJSONPath, spreadsheetID, sheetName string) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	ctx := context.Background()
	srv, err := sheetsv4.NewService(ctx,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
	if err != nil {
		return nil, err
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, sheet: sheetName}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

func (c *Client) rangeFor(a1 string) string {
	return c.sheet + "!" + a1
}
