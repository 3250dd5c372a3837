package gateway

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/sheets/memory"
)

var fixedNow = time.Date(2025, 9, 4, 10, 11, 12, 345_000_000, time.UTC)

func quietLogger() *log.Logger {
	return log.New(log.Config{Handler: slog.NewTextHandler(io.Discard, nil)})
}

func newService(store *memory.Store, opts ...Option) *Service {
	base := []Option{WithClock(func() time.Time { return fixedNow }), WithLogger(quietLogger())}
	return New(store, append(base, opts...)...)
}

type recordingNotifier struct {
	mu    sync.Mutex
	calls []string
	err   error
}

func (n *recordingNotifier) RowAppended(_ context.Context, partition string, rec core.Record) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.calls = append(n.calls, partition+":"+rec.Product)
	return n.err
}

func TestAppend_ThenListByDay(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New())

	row, err := svc.Append(ctx, core.Submission{Date: "2025-09-04", Debit: "3.20", Product: "Milk"})
	require.NoError(t, err)

	got, err := svc.ListByDay(ctx, 2025, "2025-09-04")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, row, got[0])
	assert.Equal(t, "Thursday", got[0][0])
	assert.Equal(t, "04 September 2025", got[0][1])
}

func TestAppend_NewYearCreatesPartitionWithHeader(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	store.Seed("2024", core.SchemaV1.Header())
	svc := newService(store)

	_, err := svc.Append(ctx, core.Submission{Date: "2026-01-02", Product: "Bread"})
	require.NoError(t, err)

	rows, err := store.ReadRange(ctx, "2026")
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.SchemaV1.Header(), rows[0])
	assert.Equal(t, "Bread", rows[1][4])

	parts, err := store.ListPartitions(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"2024", "2026"}, parts)
}

func TestAppend_ThenListAllRoundTrips(t *testing.T) {
	ctx := context.Background()
	svc := newService(memory.New())
	sub := core.Submission{Date: "2025-09-04", Debit: "12.5", Product: "Pasta", For: "Home", Quantity: "2", By: "Ann", From: "Market"}

	_, err := svc.Append(ctx, sub)
	require.NoError(t, err)

	rows, err := svc.ListAll(ctx, 2025)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, core.SchemaV1.Header(), rows[0])

	rec := core.RecordFromRow(core.SchemaV1, rows[1])
	assert.Equal(t, core.Record{
		Day: "Thursday", Date: "04 September 2025", Credit: "", Debit: "12.5",
		Product: "Pasta", For: "Home", Quantity: "2", By: "Ann", From: "Market",
		Timestamp: "2025-09-04T10:11:12.345Z",
	}, rec)
}

func TestAppend_Validation(t *testing.T) {
	store := memory.New()
	svc := newService(store)

	_, err := svc.Append(context.Background(), core.Submission{Product: "no date"})
	assert.ErrorIs(t, err, core.ErrValidation)

	_, err = svc.Append(context.Background(), core.Submission{Date: "31/02/2025"})
	assert.ErrorIs(t, err, core.ErrValidation)

	parts, _ := store.ListPartitions(context.Background())
	assert.Empty(t, parts, "validation failures must not touch the store")
}

func TestAppend_StoreFailure(t *testing.T) {
	store := memory.New()
	store.FailWith = core.Auth("token expired", nil)
	svc := newService(store)

	_, err := svc.Append(context.Background(), core.Submission{Date: "2025-09-04"})
	assert.ErrorIs(t, err, core.ErrAuth)
}

func TestAppend_NotifiesAndIgnoresNotifierErrors(t *testing.T) {
	n := &recordingNotifier{err: errors.New("broker down")}
	svc := newService(memory.New(), WithNotifier(n))

	_, err := svc.Append(context.Background(), core.Submission{Date: "2025-09-04", Product: "Eggs"})
	require.NoError(t, err)
	assert.Equal(t, []string{"2025:Eggs"}, n.calls)
}

func TestListAll_EnsuresPartition(t *testing.T) {
	store := memory.New()
	svc := newService(store)

	rows, err := svc.ListAll(context.Background(), 2030)
	require.NoError(t, err)
	assert.Equal(t, []core.Row{core.SchemaV1.Header()}, rows)
}

func TestListByDay_RequiresDate(t *testing.T) {
	svc := newService(memory.New())
	_, err := svc.ListByDay(context.Background(), 2025, "")
	assert.ErrorIs(t, err, core.ErrValidation)
}

func TestListByDay_DateMatchPolicies(t *testing.T) {
	store := memory.New()
	store.Seed("2025", core.SchemaV1.Header(),
		core.Row{"Thursday", "04 September 2025", "", "1", "A"},
		core.Row{"Thursday", "4 September 2025", "", "2", "B"},
		core.Row{"Friday", "05 September 2025", "", "3", "C"},
	)

	calendar := newService(store)
	rows, err := calendar.ListByDay(context.Background(), 2025, "2025-09-04")
	require.NoError(t, err)
	assert.Len(t, rows, 2)

	display := newService(store, WithDateMatch(core.DateMatchDisplay))
	rows, err = display.ListByDay(context.Background(), 2025, "2025-09-04")
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "A", rows[0][4])
}

func TestSearch(t *testing.T) {
	store := memory.New()
	store.Seed("2025", core.SchemaV1.Header(),
		core.Row{"Monday", "01 September 2025", "", "100", "Milk"},
		core.Row{"Tuesday", "02 September 2025", "", "", "Bread"},
		core.Row{"Wednesday", "03 September 2025", "", "abc", "Oat MILK"},
		core.Row{"Thursday", "04 September 2025", "", "50", "Cheese"},
	)
	svc := newService(store)
	ctx := context.Background()

	all, err := svc.Search(ctx, 2025, core.Query{})
	require.NoError(t, err)
	require.Len(t, all.Rows, 4)
	assert.Equal(t, "Milk", all.Rows[0][4])
	assert.Equal(t, "Cheese", all.Rows[3][4])
	assert.Equal(t, "150", all.TotalDebit.String())

	milk, err := svc.Search(ctx, 2025, core.Query{Text: "milk"})
	require.NoError(t, err)
	require.Len(t, milk.Rows, 2)
	assert.Equal(t, "100", milk.TotalDebit.String())

	q, err := core.NewQuery("", "2025-09-02", "2025-09-03")
	require.NoError(t, err)
	ranged, err := svc.Search(ctx, 2025, q)
	require.NoError(t, err)
	assert.Len(t, ranged.Rows, 2)
}

func TestSuggestions_AcrossPartitions(t *testing.T) {
	store := memory.New()
	store.Seed("2024", core.SchemaV1.Header(),
		core.Row{"", "", "", "", "Milk", "Home", "", "Ann", "Shop"},
		core.Row{"", "", "", "", "Bread", "", "", "Bob", "Shop"},
	)
	store.Seed("Notes", core.Row{"x", "y", "z", "w", "ignored"})
	store.Seed("2025", core.SchemaV1.Header(),
		core.Row{"", "", "", "", "Milk", "Office", "", "Ann", "Market"},
	)
	svc := newService(store)

	got, err := svc.Suggestions(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"Milk", "Bread"}, got.Products)
	assert.Equal(t, []string{"Home", "Office"}, got.ForList)
	assert.Equal(t, []string{"Ann", "Bob"}, got.ByList)
	assert.Equal(t, []string{"Shop", "Market"}, got.FromList)
}

func TestSuggestions_Empty(t *testing.T) {
	got, err := newService(memory.New()).Suggestions(context.Background())
	require.NoError(t, err)
	assert.NotNil(t, got.Products)
	assert.Empty(t, got.Products)
}

func TestDiagnostics(t *testing.T) {
	store := memory.New()
	store.Seed("2025", core.SchemaV1.Header())
	d, err := newService(store).Diagnostics(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "memory", d.StoreID)
	assert.Equal(t, []string{"2025"}, d.Partitions)
}
