package sheets

import (
	"fmt"
	"time"

	"expo-registration/internal/models"
)

// Column pairs a header name with the formatter producing its cell value.
// The ordered list below is the single place that knows column positions;
// nothing else in the codebase refers to a column by letter.
type Column struct {
	Name  string
	Value func(r models.Registration) interface{}
}

var Columns = []Column{
	{"registration_id", func(r models.Registration) interface{} { return r.RegistrationID }},
	{"name", func(r models.Registration) interface{} { return r.Name }},
	{"phone", func(r models.Registration) interface{} { return r.Phone }},
	{"company", func(r models.Registration) interface{} { return r.Company }},
	{"address", func(r models.Registration) interface{} { return r.Address }},
	{"city", func(r models.Registration) interface{} { return r.City }},
	{"state", func(r models.Registration) interface{} { return r.State }},
	{"attendance_days", func(r models.Registration) interface{} { return r.AttendanceDays }},
	{"payment_id", func(r models.Registration) interface{} {
		if r.PaymentID == nil {
			return ""
		}
		return *r.PaymentID
	}},
	{"image_url", func(r models.Registration) interface{} { return r.ImageURL }},
	{"registered_at", func(r models.Registration) interface{} { return r.CreatedAt.Format(time.RFC3339) }},
	{"checked_in_at", func(r models.Registration) interface{} {
		if r.CheckedInAt == nil {
			return ""
		}
		return r.CheckedInAt.Format(time.RFC3339)
	}},
}

func HeaderRow() []interface{} {
	row := make([]interface{}, len(Columns))
	for i, c := range Columns {
		row[i] = c.Name
	}
	return row
}

func FormatRow(r models.Registration) []interface{} {
	row := make([]interface{}, len(Columns))
	for i, c := range Columns {
		row[i] = c.Value(r)
	}
	return row
}

// lastColumn is the A1 letter of the rightmost schema column.
func lastColumn() string {
	return string(rune('A' + len(Columns) - 1))
}

// IDColumnRange covers the registration_id column below the header; the
// reconciler reads it to build the join map. Row i of the result is sheet
// row i+2.
func IDColumnRange() string {
	return "A2:A"
}

// RowRange addresses one full data row for an in-place update.
func RowRange(row int) string {
	return fmt.Sprintf("A%d:%s%d", row, lastColumn(), row)
}

// ContentRange covers the header and all data rows; the full rebuild clears
// it before rewriting.
func ContentRange() string {
	return fmt.Sprintf("A1:%s", lastColumn())
}

// DataStartRow is the first sheet row holding a record (row 1 is the header).
const DataStartRow = 2
