package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
)

// Query selects data rows by product text and an optional inclusive date
// range. Zero Start or End leaves that side open.
type Query struct {
	Text  string
	Start time.Time
	End   time.Time
}

// SearchResult is the outcome of a search over data rows.
type SearchResult struct {
	Rows       []Row
	TotalDebit decimal.Decimal
}

// NewQuery parses the optional YYYY-MM-DD bounds of a search.
func NewQuery(text, start, end string) (Query, error) {
	q := Query{Text: text}
	if strings.TrimSpace(start) != "" {
		d, err := ParseDate(start)
		if err != nil {
			return Query{}, err
		}
		q.Start = d
	}
	if strings.TrimSpace(end) != "" {
		d, err := ParseDate(end)
		if err != nil {
			return Query{}, err
		}
		q.End = d
	}
	return q, nil
}

func (q Query) hasRange() bool {
	return !q.Start.IsZero() || !q.End.IsZero()
}

// Match reports whether a data row satisfies the query.
func (q Query) Match(s Schema, row Row) bool {
	if needle := strings.TrimSpace(q.Text); needle != "" {
		fold := cases.Fold()
		product := fold.String(s.Cell(row, ColumnProduct))
		if !strings.Contains(product, fold.String(needle)) {
			return false
		}
	}
	if !q.hasRange() {
		return true
	}
	d, err := ParseDate(s.Cell(row, ColumnDate))
	if err != nil {
		return false
	}
	if !q.Start.IsZero() && d.Before(q.Start) {
		return false
	}
	if !q.End.IsZero() && d.After(q.End) {
		return false
	}
	return true
}

// Search filters data rows (header already removed) preserving order and
// totals their debit column.
func Search(s Schema, rows []Row, q Query) SearchResult {
	out := make([]Row, 0, len(rows))
	for _, row := range rows {
		if q.Match(s, row) {
			out = append(out, row)
		}
	}
	return SearchResult{Rows: out, TotalDebit: TotalDebit(s, out)}
}

// TotalDebit sums the debit column. Blank or non-numeric cells count as 0.
func TotalDebit(s Schema, rows []Row) decimal.Decimal {
	total := decimal.Zero
	for _, row := range rows {
		total = total.Add(ParseAmount(s.Cell(row, ColumnDebit)))
	}
	return total
}

// ParseAmount reads a numeric cell. A comma is the decimal separator only
// when the cell has no dot; otherwise commas group thousands. Anything
// unparseable is zero.
func ParseAmount(v string) decimal.Decimal {
	v = strings.TrimSpace(v)
	if v == "" {
		return decimal.Zero
	}
	if strings.Contains(v, ".") {
		v = strings.ReplaceAll(v, ",", "")
	} else {
		v = strings.Replace(v, ",", ".", 1)
	}
	d, err := decimal.NewFromString(v)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// DataRows drops the header row of a full partition read.
func DataRows(rows []Row) []Row {
	if len(rows) <= 1 {
		return []Row{}
	}
	return rows[1:]
}
