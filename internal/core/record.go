package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Column names of the partition schema.
const (
	ColumnDay       = "Day"
	ColumnDate      = "Date"
	ColumnCredit    = "Credit"
	ColumnDebit     = "Debit"
	ColumnProduct   = "Product"
	ColumnFor       = "For"
	ColumnQuantity  = "Quantity"
	ColumnBy        = "By"
	ColumnFrom      = "From"
	ColumnTimestamp = "Timestamp"
)

type (
	// Row is one line of a partition, header included.
	Row []string

	// Schema is the ordered column layout shared by header creation and
	// row construction.
	Schema struct {
		Version int
		Columns []string
	}

	// Submission is what a client posts for a new expense.
	Submission struct {
		Date     string `json:"date"`
		Debit    string `json:"debit"`
		Product  string `json:"product"`
		For      string `json:"for"`
		Quantity string `json:"quantity"`
		By       string `json:"by"`
		From     string `json:"from"`
	}

	// Record is a stored expense.
	Record struct {
		Day       string `json:"day"`
		Date      string `json:"date"`
		Credit    string `json:"credit"`
		Debit     string `json:"debit"`
		Product   string `json:"product"`
		For       string `json:"for"`
		Quantity  string `json:"quantity"`
		By        string `json:"by"`
		From      string `json:"from"`
		Timestamp string `json:"timestamp"`
	}
)

// SchemaV1 is the 10-column layout every partition uses.
var SchemaV1 = Schema{
	Version: 1,
	Columns: []string{
		ColumnDay, ColumnDate, ColumnCredit, ColumnDebit, ColumnProduct,
		ColumnFor, ColumnQuantity, ColumnBy, ColumnFrom, ColumnTimestamp,
	},
}

// Header returns a fresh copy of the header row.
func (s Schema) Header() Row {
	return append(Row(nil), s.Columns...)
}

// Width is the number of columns.
func (s Schema) Width() int { return len(s.Columns) }

// Index returns the position of column, or -1.
func (s Schema) Index(column string) int {
	for i, c := range s.Columns {
		if c == column {
			return i
		}
	}
	return -1
}

// Cell returns the value of column in row, "" when the row is short.
func (s Schema) Cell(row Row, column string) string {
	i := s.Index(column)
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// PartitionName returns the partition title for a calendar year.
func PartitionName(year int) string {
	return strconv.Itoa(year)
}

// IsPartitionName reports whether title names a yearly partition.
func IsPartitionName(title string) bool {
	if len(title) != 4 {
		return false
	}
	y, err := strconv.Atoi(title)
	return err == nil && y > 1900 && y < 3000
}

// NewRecord builds the stored form of sub. Credit stays blank.
func NewRecord(sub Submission, now time.Time) (Record, error) {
	if strings.TrimSpace(sub.Date) == "" {
		return Record{}, Validation("body must include at least { date }")
	}
	d, err := ParseDate(sub.Date)
	if err != nil {
		return Record{}, err
	}
	return Record{
		Day:       Weekday(d),
		Date:      DisplayDate(d),
		Debit:     sub.Debit,
		Product:   sub.Product,
		For:       sub.For,
		Quantity:  sub.Quantity,
		By:        sub.By,
		From:      sub.From,
		Timestamp: now.UTC().Format(TimestampLayout),
	}, nil
}

// Year returns the calendar year the record belongs to.
func (r Record) Year() (int, error) {
	d, err := ParseDate(r.Date)
	if err != nil {
		return 0, err
	}
	return d.Year(), nil
}

// Row lays the record out in schema order.
func (r Record) Row(s Schema) Row {
	row := make(Row, len(s.Columns))
	for i, c := range s.Columns {
		row[i] = r.field(c)
	}
	return row
}

func (r Record) field(column string) string {
	switch column {
	case ColumnDay:
		return r.Day
	case ColumnDate:
		return r.Date
	case ColumnCredit:
		return r.Credit
	case ColumnDebit:
		return r.Debit
	case ColumnProduct:
		return r.Product
	case ColumnFor:
		return r.For
	case ColumnQuantity:
		return r.Quantity
	case ColumnBy:
		return r.By
	case ColumnFrom:
		return r.From
	case ColumnTimestamp:
		return r.Timestamp
	}
	return ""
}

// RecordFromRow reads a row laid out in schema order.
func RecordFromRow(s Schema, row Row) Record {
	return Record{
		Day:       s.Cell(row, ColumnDay),
		Date:      s.Cell(row, ColumnDate),
		Credit:    s.Cell(row, ColumnCredit),
		Debit:     s.Cell(row, ColumnDebit),
		Product:   s.Cell(row, ColumnProduct),
		For:       s.Cell(row, ColumnFor),
		Quantity:  s.Cell(row, ColumnQuantity),
		By:        s.Cell(row, ColumnBy),
		From:      s.Cell(row, ColumnFrom),
		Timestamp: s.Cell(row, ColumnTimestamp),
	}
}

// UnmarshalJSON accepts numbers as well as strings for every field, since
// form serializers disagree on how to send debit and quantity.
func (s *Submission) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Submission{}
	fields := map[string]*string{
		"date":     &s.Date,
		"debit":    &s.Debit,
		"product":  &s.Product,
		"for":      &s.For,
		"quantity": &s.Quantity,
		"by":       &s.By,
		"from":     &s.From,
	}
	for key, dst := range fields {
		v, ok := raw[key]
		if !ok {
			continue
		}
		str, err := flexString(v)
		if err != nil {
			return fmt.Errorf("field %s: %w", key, err)
		}
		*dst = str
	}
	return nil
}

func flexString(raw json.RawMessage) (string, error) {
	if bytes.Equal(bytes.TrimSpace(raw), []byte("null")) {
		return "", nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("expected string or number, got %s", raw)
	}
	return n.String(), nil
}
