// Package gateway translates ledger requests into Ledger Store calls. Each
// operation first makes sure its yearly partition exists, then runs.
package gateway

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
	ports "github.com/GillJordan/Home-expense/internal/sheets"
)

// Notifier is told about every row the gateway appends.
type Notifier interface {
	RowAppended(ctx context.Context, partition string, rec core.Record) error
}

// Diagnostics describes the store the gateway talks to.
type Diagnostics struct {
	StoreID    string
	Partitions []string
}

// Service is stateless apart from its collaborators.
type Service struct {
	store    ports.LedgerStore
	schema   core.Schema
	match    core.DateMatch
	notifier Notifier
	now      func() time.Time
	logger   *log.Logger
	events   *log.StructuredLogger
}

type Option func(*Service)

// WithNotifier publishes row-appended events after successful appends.
func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithDateMatch selects how listByDay compares stored dates.
func WithDateMatch(m core.DateMatch) Option {
	return func(s *Service) {
		if m.IsValid() {
			s.match = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Service) { s.logger = l.WithComponent(log.ComponentGateway) }
}

func New(store ports.LedgerStore, opts ...Option) *Service {
	s := &Service{
		store:  store,
		schema: core.SchemaV1,
		match:  core.DateMatchCalendar,
		now:    time.Now,
		logger: log.New(log.DefaultConfig()).WithComponent(log.ComponentGateway),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.events = log.NewStructuredLogger(s.logger)
	return s
}

// Schema returns the column layout rows are written with.
func (s *Service) Schema() core.Schema { return s.schema }

func (s *Service) ensure(ctx context.Context, year int) (string, error) {
	name := core.PartitionName(year)
	created, err := s.store.EnsurePartition(ctx, name, s.schema.Header())
	if err != nil {
		return "", fmt.Errorf("ensure partition %s: %w", name, err)
	}
	if created {
		s.logger.InfoContext(ctx, "Partition created", log.FieldPartition, name)
	}
	return name, nil
}

// Append stores a new expense in the partition of its year and returns the
// row as written.
func (s *Service) Append(ctx context.Context, sub core.Submission) (core.Row, error) {
	rec, err := core.NewRecord(sub, s.now())
	if err != nil {
		return nil, err
	}
	year, err := rec.Year()
	if err != nil {
		return nil, err
	}
	partition, err := s.ensure(ctx, year)
	if err != nil {
		return nil, err
	}
	row := rec.Row(s.schema)
	if err := s.store.AppendRow(ctx, partition, row); err != nil {
		return nil, fmt.Errorf("append to %s: %w", partition, err)
	}
	s.events.LogRowAppended(ctx, partition, rec)

	if s.notifier != nil {
		if err := s.notifier.RowAppended(ctx, partition, rec); err != nil {
			s.events.LogError(ctx, "Failed to publish row appended event", err,
				log.ComponentAMQP, log.OpAppend, log.NewFields().WithRecord(partition, rec))
		}
	}
	return row, nil
}

// ListAll returns every row of the year, header first.
func (s *Service) ListAll(ctx context.Context, year int) ([]core.Row, error) {
	partition, err := s.ensure(ctx, year)
	if err != nil {
		return nil, err
	}
	rows, err := s.store.ReadRange(ctx, partition)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", partition, err)
	}
	if rows == nil {
		rows = []core.Row{}
	}
	return rows, nil
}

// ListByDay returns the data rows of the year recorded on date.
func (s *Service) ListByDay(ctx context.Context, year int, date string) ([]core.Row, error) {
	target, err := core.ParseDate(date)
	if err != nil {
		return nil, err
	}
	rows, err := s.ListAll(ctx, year)
	if err != nil {
		return nil, err
	}
	out := []core.Row{}
	for _, row := range core.DataRows(rows) {
		if s.match.SameDay(s.schema.Cell(row, core.ColumnDate), target) {
			out = append(out, row)
		}
	}
	return out, nil
}

// Search filters the data rows of the year and totals their debits.
func (s *Service) Search(ctx context.Context, year int, q core.Query) (core.SearchResult, error) {
	rows, err := s.ListAll(ctx, year)
	if err != nil {
		return core.SearchResult{}, err
	}
	return core.Search(s.schema, core.DataRows(rows), q), nil
}

// Suggestions gathers distinct autocomplete values across every yearly
// partition. Partitions are read concurrently and merged in store order.
func (s *Service) Suggestions(ctx context.Context) (core.Suggestions, error) {
	titles, err := s.store.ListPartitions(ctx)
	if err != nil {
		return core.Suggestions{}, fmt.Errorf("list partitions: %w", err)
	}
	var years []string
	for _, t := range titles {
		if core.IsPartitionName(t) {
			years = append(years, t)
		}
	}

	results := make([][]core.Row, len(years))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(4)
	for i, name := range years {
		g.Go(func() error {
			rows, err := s.store.ReadRange(gctx, name)
			if err != nil {
				return fmt.Errorf("read %s: %w", name, err)
			}
			results[i] = core.DataRows(rows)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return core.Suggestions{}, err
	}

	c := core.NewSuggestionCollector(s.schema)
	for _, rows := range results {
		for _, row := range rows {
			c.Add(row)
		}
	}
	return c.Result(), nil
}

// Diagnostics reports the store identity and its partition titles.
func (s *Service) Diagnostics(ctx context.Context) (Diagnostics, error) {
	titles, err := s.store.ListPartitions(ctx)
	if err != nil {
		return Diagnostics{}, fmt.Errorf("list partitions: %w", err)
	}
	d := Diagnostics{Partitions: titles}
	if desc, ok := s.store.(ports.Describer); ok {
		d.StoreID = desc.StoreID()
	}
	return d, nil
}
