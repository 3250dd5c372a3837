// Package backend builds the ledger store and event notifier the gateway
// runs on, selected by configuration.
package backend

import (
	"context"

	"github.com/GillJordan/Home-expense/internal/gateway"
	"github.com/GillJordan/Home-expense/internal/sheets"
)

// CleanupFunc releases backend resources.
type CleanupFunc func() error

// BackendResult contains the store, an optional notifier and a cleanup
// function that is never nil.
type BackendResult struct {
	Store    sheets.LedgerStore
	Notifier gateway.Notifier
	Cleanup  CleanupFunc
}

// Factory creates backends based on configuration.
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of ledger store.
type BackendType string

const (
	SheetsBackend BackendType = "sheets"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SheetsBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
