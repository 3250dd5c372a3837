package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GillJordan/Home-expense/internal/core"
)

var fixedNow = time.Date(2025, 9, 4, 8, 0, 0, 0, time.UTC)

func newLocal() *Local {
	return NewLocal(NewMemoryKV()).WithClock(func() time.Time { return fixedNow })
}

func sampleRows() []core.Row {
	return []core.Row{
		{"Monday", "01 September 2025", "", "100", "Milk", "Home", "1", "Ann", "Shop"},
		{"Tuesday", "02 September 2025", "", "", "Bread"},
		{"Wednesday", "03 September 2025", "", "abc", "Oat milk"},
		{"Thursday", "04 September 2025", "", "50", "Cheese"},
	}
}

func TestLocal_EmptyCache(t *testing.T) {
	ctx := context.Background()
	l := newLocal()

	m, err := l.LoadMirror(ctx)
	require.NoError(t, err)
	assert.Empty(t, m.Rows)
	assert.NotNil(t, m.Rows)

	pending, err := l.DrainPending(ctx)
	require.NoError(t, err)
	assert.Empty(t, pending)

	sug, ok, err := l.ReadSuggestions(ctx)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.NotNil(t, sug.Products)
}

func TestLocal_MirrorReplacedWholesale(t *testing.T) {
	ctx := context.Background()
	l := newLocal()

	require.NoError(t, l.StoreMirror(ctx, sampleRows()))
	require.NoError(t, l.StoreMirror(ctx, sampleRows()[:1]))

	m, err := l.LoadMirror(ctx)
	require.NoError(t, err)
	assert.Len(t, m.Rows, 1)
	assert.Equal(t, fixedNow, m.RefreshedAt)
}

func TestLocal_ReadMirrorMatchesSearch(t *testing.T) {
	ctx := context.Background()
	l := newLocal()
	rows := sampleRows()
	require.NoError(t, l.StoreMirror(ctx, rows))

	queries := []struct{ text, start, end string }{
		{"", "", ""},
		{"milk", "", ""},
		{"", "2025-09-03", ""},
		{"", "", "2025-09-02"},
		{"e", "2025-09-02", "2025-09-04"},
	}
	for _, qq := range queries {
		q, err := core.NewQuery(qq.text, qq.start, qq.end)
		require.NoError(t, err)

		got, err := l.ReadMirror(ctx, q)
		require.NoError(t, err)
		want := core.Search(core.SchemaV1, rows, q)
		assert.Equal(t, want.Rows, got.Rows, "%+v", qq)
		assert.True(t, want.TotalDebit.Equal(got.TotalDebit), "%+v", qq)
	}
}

func TestLocal_ReadMirrorDay(t *testing.T) {
	ctx := context.Background()
	l := newLocal()
	require.NoError(t, l.StoreMirror(ctx, sampleRows()))

	day, err := core.ParseDate("2025-09-02")
	require.NoError(t, err)
	rows, err := l.ReadMirrorDay(ctx, day, core.DateMatchCalendar)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "Bread", rows[0][4])
}

func TestLocal_PendingQueue(t *testing.T) {
	ctx := context.Background()
	l := newLocal()

	a := core.Submission{Date: "2025-09-01", Product: "Milk"}
	b := core.Submission{Date: "2025-09-02", Product: "Bread"}
	for _, s := range []core.Submission{a, b, a} {
		require.NoError(t, l.EnqueuePending(ctx, s))
	}

	pending, err := l.DrainPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Submission{a, b, a}, pending)

	// draining does not consume
	pending, err = l.DrainPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 3)

	removed, err := l.RemoveFromPending(ctx, a)
	require.NoError(t, err)
	assert.True(t, removed)

	pending, err = l.DrainPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Submission{b, a}, pending)

	removed, err = l.RemoveFromPending(ctx, core.Submission{Date: "2000-01-01"})
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLocal_RemovePendingAt(t *testing.T) {
	ctx := context.Background()
	l := newLocal()
	a := core.Submission{Date: "2025-09-01"}
	b := core.Submission{Date: "2025-09-02"}
	require.NoError(t, l.EnqueuePending(ctx, a))
	require.NoError(t, l.EnqueuePending(ctx, b))

	got, err := l.RemovePendingAt(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, b, got)

	_, err = l.RemovePendingAt(ctx, 5)
	assert.ErrorIs(t, err, core.ErrValidation)

	pending, err := l.DrainPending(ctx)
	require.NoError(t, err)
	assert.Equal(t, []core.Submission{a}, pending)
}

func TestLocal_Suggestions(t *testing.T) {
	ctx := context.Background()
	l := newLocal()
	want := core.Suggestions{Products: []string{"Milk"}, ForList: []string{"Home"}, ByList: []string{}, FromList: []string{"Shop"}}
	require.NoError(t, l.StoreSuggestions(ctx, want))

	got, ok, err := l.ReadSuggestions(ctx)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, want, got)
}

type failingKV struct{ err error }

func (f failingKV) Get(context.Context, string) ([]byte, bool, error) { return nil, false, f.err }
func (f failingKV) Set(context.Context, string, []byte) error         { return f.err }

func TestLocal_PersistenceErrors(t *testing.T) {
	ctx := context.Background()
	boom := errors.New("disk full")
	l := NewLocal(failingKV{err: boom})

	assert.ErrorIs(t, l.EnqueuePending(ctx, core.Submission{Date: "2025-09-01"}), boom)
	_, err := l.DrainPending(ctx)
	assert.ErrorIs(t, err, boom)
	assert.ErrorIs(t, l.StoreMirror(ctx, nil), boom)
}

func TestLocal_CorruptBlob(t *testing.T) {
	ctx := context.Background()
	kv := NewMemoryKV()
	require.NoError(t, kv.Set(ctx, KeyPending, []byte("{not json")))

	_, err := NewLocal(kv).DrainPending(ctx)
	assert.ErrorContains(t, err, "decode pending")
}
