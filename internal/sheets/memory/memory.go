package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/GillJordan/Home-expense/internal/core"
	ports "github.com/GillJordan/Home-expense/internal/sheets"
)

var (
	_ ports.LedgerStore = (*Store)(nil)
	_ ports.Describer   = (*Store)(nil)
)

// Store keeps partitions in process memory.
type Store struct {
	mu         sync.Mutex
	order      []string
	partitions map[string][]core.Row

	// FailWith, when set, makes every call return its error.
	FailWith error
}

func New() *Store {
	return &Store{partitions: map[string][]core.Row{}}
}

// Seed installs rows (header included) as a partition, replacing it.
func (s *Store) Seed(name string, rows ...core.Row) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.partitions[name]; !ok {
		s.order = append(s.order, name)
	}
	s.partitions[name] = cloneRows(rows)
}

func (s *Store) StoreID() string { return "memory" }

func (s *Store) EnsurePartition(_ context.Context, name string, header core.Row) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return false, s.FailWith
	}
	if _, ok := s.partitions[name]; ok {
		return false, nil
	}
	s.order = append(s.order, name)
	s.partitions[name] = []core.Row{append(core.Row(nil), header...)}
	return true, nil
}

func (s *Store) AppendRow(_ context.Context, partition string, row core.Row) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return s.FailWith
	}
	rows, ok := s.partitions[partition]
	if !ok {
		return core.Store("append row", fmt.Errorf("partition %q not found", partition))
	}
	s.partitions[partition] = append(rows, append(core.Row(nil), row...))
	return nil
}

func (s *Store) ReadRange(_ context.Context, partition string) ([]core.Row, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	rows, ok := s.partitions[partition]
	if !ok {
		return nil, core.Store("read range", fmt.Errorf("partition %q not found", partition))
	}
	return cloneRows(rows), nil
}

func (s *Store) ListPartitions(_ context.Context) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.FailWith != nil {
		return nil, s.FailWith
	}
	return append([]string(nil), s.order...), nil
}

func cloneRows(rows []core.Row) []core.Row {
	out := make([]core.Row, len(rows))
	for i, r := range rows {
		out[i] = append(core.Row(nil), r...)
	}
	return out
}
