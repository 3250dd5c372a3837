package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func row(date, debit, product string) Row {
	return Record{Date: date, Debit: debit, Product: product}.Row(SchemaV1)
}

func TestSearchEmptyQueryReturnsAllInOrder(t *testing.T) {
	rows := []Row{
		row("01 March 2025", "1", "Milk"),
		row("02 March 2025", "2", "Bread"),
		row("03 March 2025", "3", "Eggs"),
	}
	res := Search(SchemaV1, rows, Query{})
	assert.Equal(t, rows, res.Rows)
	assert.True(t, decimal.NewFromInt(6).Equal(res.TotalDebit))
}

func TestSearchProductCaseInsensitive(t *testing.T) {
	rows := []Row{
		row("01 March 2025", "1", "Oat MILK"),
		row("02 March 2025", "2", "Bread"),
		row("03 March 2025", "3", "milk chocolate"),
		row("04 March 2025", "4", ""),
	}
	res := Search(SchemaV1, rows, Query{Text: "Milk"})
	require.Len(t, res.Rows, 2)
	assert.Equal(t, "Oat MILK", res.Rows[0][4])
	assert.Equal(t, "milk chocolate", res.Rows[1][4])
	assert.True(t, decimal.NewFromInt(4).Equal(res.TotalDebit))
}

func TestTotalDebitTreatsBlankAndGarbageAsZero(t *testing.T) {
	rows := []Row{
		row("01 March 2025", "100", "a"),
		row("01 March 2025", "", "b"),
		row("01 March 2025", "abc", "c"),
		row("01 March 2025", "50", "d"),
	}
	assert.True(t, decimal.NewFromInt(150).Equal(TotalDebit(SchemaV1, rows)))
}

func TestParseAmount(t *testing.T) {
	assert.True(t, decimal.RequireFromString("12.5").Equal(ParseAmount("12,5")))
	assert.True(t, decimal.RequireFromString("0.1").Equal(ParseAmount(" 0.1 ")))
	assert.True(t, decimal.Zero.Equal(ParseAmount("€3")))
	assert.True(t, decimal.RequireFromString("1234.50").Equal(ParseAmount("1,234.50")))
	assert.True(t, decimal.RequireFromString("1234567.5").Equal(ParseAmount("1,234,567.5")))
}

func TestSearchDateRangeInclusive(t *testing.T) {
	rows := []Row{
		row("28 February 2025", "1", "Milk"),
		row("01 March 2025", "2", "Milk"),
		row("15 March 2025", "3", "Milk"),
		row("31 March 2025", "4", "Milk"),
		row("01 April 2025", "5", "Milk"),
		row("unknown", "6", "Milk"),
	}
	q, err := NewQuery("milk", "2025-03-01", "2025-03-31")
	require.NoError(t, err)
	res := Search(SchemaV1, rows, q)
	require.Len(t, res.Rows, 3)
	assert.True(t, decimal.NewFromInt(9).Equal(res.TotalDebit))

	q, err = NewQuery("", "2025-03-15", "")
	require.NoError(t, err)
	res = Search(SchemaV1, rows, q)
	assert.Len(t, res.Rows, 3)
}

func TestNewQueryRejectsBadBounds(t *testing.T) {
	_, err := NewQuery("x", "bad", "")
	assert.True(t, errors.Is(err, ErrValidation))
	_, err = NewQuery("x", "", "2025-02-30")
	assert.True(t, errors.Is(err, ErrValidation))
}

func TestQueryMatchOpenBounds(t *testing.T) {
	r := row("10 May 2025", "1", "Tea")
	assert.True(t, Query{End: time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC)}.Match(SchemaV1, r))
	assert.False(t, Query{End: time.Date(2025, 5, 9, 0, 0, 0, 0, time.UTC)}.Match(SchemaV1, r))
}

func TestDataRows(t *testing.T) {
	assert.Empty(t, DataRows(nil))
	assert.Empty(t, DataRows([]Row{SchemaV1.Header()}))
	assert.Len(t, DataRows([]Row{SchemaV1.Header(), row("01 March 2025", "1", "x")}), 1)
}

func TestSuggestionCollector(t *testing.T) {
	c := NewSuggestionCollector(SchemaV1)
	c.Add(Record{Product: "Milk", For: "Home", By: "Ann", From: "Shop"}.Row(SchemaV1))
	c.Add(Record{Product: "Bread", For: "Home", By: "", From: "Bakery"}.Row(SchemaV1))
	c.Add(Record{Product: "Milk", For: "Office", By: "Bob", From: "Shop"}.Row(SchemaV1))

	got := c.Result()
	assert.Equal(t, []string{"Milk", "Bread"}, got.Products)
	assert.Equal(t, []string{"Home", "Office"}, got.ForList)
	assert.Equal(t, []string{"Ann", "Bob"}, got.ByList)
	assert.Equal(t, []string{"Shop", "Bakery"}, got.FromList)

	empty := NewSuggestionCollector(SchemaV1).Result()
	assert.NotNil(t, empty.Products)
	assert.Empty(t, empty.Products)
}
