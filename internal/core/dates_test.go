package core

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	want := time.Date(2025, time.September, 4, 0, 0, 0, 0, time.UTC)
	for _, in := range []string{"2025-09-04", " 2025-09-04 ", "04 September 2025", "4 September 2025", "2025-09-04T18:30:00Z"} {
		got, err := ParseDate(in)
		require.NoError(t, err, in)
		assert.True(t, want.Equal(got), "input %q gave %v", in, got)
	}
}

func TestParseDateErrors(t *testing.T) {
	for _, in := range []string{"", "   ", "yesterday", "2025-13-01"} {
		_, err := ParseDate(in)
		require.Error(t, err, in)
		assert.True(t, errors.Is(err, ErrValidation), "input %q: %v", in, err)
	}
}

func TestDisplayAndWeekday(t *testing.T) {
	d := time.Date(2025, time.September, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, "04 September 2025", DisplayDate(d))
	assert.Equal(t, "Thursday", Weekday(d))
}

func TestDateMatchSameDay(t *testing.T) {
	target := time.Date(2025, time.September, 4, 0, 0, 0, 0, time.UTC)

	assert.True(t, DateMatchCalendar.SameDay("04 September 2025", target))
	assert.True(t, DateMatchCalendar.SameDay("4 September 2025", target))
	assert.True(t, DateMatchCalendar.SameDay("2025-09-04", target))
	assert.False(t, DateMatchCalendar.SameDay("05 September 2025", target))
	assert.False(t, DateMatchCalendar.SameDay("garbage", target))

	assert.True(t, DateMatchDisplay.SameDay("04 September 2025", target))
	assert.False(t, DateMatchDisplay.SameDay("4 September 2025", target))
	assert.False(t, DateMatchDisplay.SameDay("2025-09-04", target))
}

func TestDateMatchIsValid(t *testing.T) {
	assert.True(t, DateMatchCalendar.IsValid())
	assert.True(t, DateMatchDisplay.IsValid())
	assert.False(t, DateMatch("locale").IsValid())
}
