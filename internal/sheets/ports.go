package sheets

import (
	"context"

	"github.com/GillJordan/Home-expense/internal/core"
)

// Ports for outbound adapters.
type (
	// LedgerStore is an append-only, partition-per-year tabular store.
	LedgerStore interface {
		// EnsurePartition creates the partition with header as its first
		// row when it does not exist yet.
		EnsurePartition(ctx context.Context, name string, header core.Row) (created bool, err error)
		// AppendRow adds row after the last row of partition.
		AppendRow(ctx context.Context, partition string, row core.Row) error
		// ReadRange returns every row of partition, header included.
		ReadRange(ctx context.Context, partition string) ([]core.Row, error)
		// ListPartitions returns the partition titles in store order.
		ListPartitions(ctx context.Context) ([]string, error)
	}

	// Describer identifies the backing store for diagnostics.
	Describer interface {
		StoreID() string
	}
)
