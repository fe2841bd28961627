package sheets

import (
	"context"
	"fmt"

	sheetsv4 "google.golang.org/api/sheets/v4"

	"expo-registration/internal/retry"
)

// RowUpdate is one in-place rewrite of a data row at a known position.
type RowUpdate struct {
	Row    int
	Values []interface{}
}

// ReadColumn bulk-reads one column and returns the first cell of every row,
// empty string for gaps.
func (c *Client) ReadColumn(ctx context.Context, a1 string) ([]string, error) {
	var resp *sheetsv4.ValueRange
	err := retry.Do(ctx, retryAttempts, retryBaseDelay, func() error {
		var err error
		resp, err = c.srv.Spreadsheets.Values.Get(c.spreadsheetID, c.rangeFor(a1)).Context(ctx).Do()
		return err
	})
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		if len(row) == 0 || row[0] == nil {
			out = append(out, "")
			continue
		}
		out = append(out, fmt.Sprint(row[0]))
	}
	return out, nil
}

// AppendRows adds rows after the last non-empty row of the sheet.
func (c *Client) AppendRows(ctx context.Context, rows [][]interface{}) error {
	if len(rows) == 0 {
		return nil
	}
	vr := &sheetsv4.ValueRange{Values: rows}
	return retry.Do(ctx, retryAttempts, retryBaseDelay, func() error {
		_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, c.rangeFor(ContentRange()), vr).
			ValueInputOption("RAW").
			InsertDataOption("INSERT_ROWS").
			Context(ctx).
			Do()
		return err
	})
}

// BatchUpdateRows rewrites the given rows in place as a single batch call.
func (c *Client) BatchUpdateRows(ctx context.Context, updates []RowUpdate) error {
	if len(updates) == 0 {
		return nil
	}
	data := make([]*sheetsv4.ValueRange, 0, len(updates))
	for _, u := range updates {
		data = append(data, &sheetsv4.ValueRange{
			Range:  c.rangeFor(RowRange(u.Row)),
			Values: [][]interface{}{u.Values},
		})
	}
	req := &sheetsv4.BatchUpdateValuesRequest{
		ValueInputOption: "RAW",
		Data:             data,
	}
	return retry.Do(ctx, retryAttempts, retryBaseDelay, func() error {
		_, err := c.srv.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
		return err
	})
}

// ClearRange blanks a range; used by the full rebuild before rewriting.
func (c *Client) ClearRange(ctx context.Context, a1 string) error {
	return retry.Do(ctx, retryAttempts, retryBaseDelay, func() error {
		_, err := c.srv.Spreadsheets.Values.Clear(c.spreadsheetID, c.rangeFor(a1), &sheetsv4.ClearValuesRequest{}).
			Context(ctx).
			Do()
		return err
	})
}
