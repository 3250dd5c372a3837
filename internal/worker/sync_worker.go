// Package worker replays writes queued while offline against the gateway.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
)

// State of the sync engine.
type State string

const (
	StateIdle     State = "idle"
	StateDraining State = "draining"
	StateBlocked  State = "blocked"
)

// ErrDrainInProgress is returned when Drain is called during a drain.
var ErrDrainInProgress = errors.New("drain already in progress")

// Appender sends one submission to the ledger.
type Appender interface {
	Append(ctx context.Context, sub core.Submission) (core.Row, error)
}

// Queue is the persisted pending queue.
type Queue interface {
	DrainPending(ctx context.Context) ([]core.Submission, error)
	RemoveFromPending(ctx context.Context, sub core.Submission) (bool, error)
}

// Status is a snapshot of the engine. Blocked and Err are set only in
// StateBlocked.
type Status struct {
	State   State
	Blocked *core.Submission
	Err     error
	LastRun time.Time
}

// Result summarizes one Drain call.
type Result struct {
	Synced    int
	Remaining int
}

// SyncWorker drains the pending queue strictly in order, one entry at a
// time, stopping at the first failure.
type SyncWorker struct {
	queue    Queue
	appender Appender
	logger   *log.Logger
	now      func() time.Time

	run    sync.Mutex
	mu     sync.Mutex
	status Status
}

func NewSyncWorker(queue Queue, appender Appender, logger *log.Logger) *SyncWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &SyncWorker{
		queue:    queue,
		appender: appender,
		logger:   logger.WithComponent(log.ComponentWorker),
		now:      time.Now,
		status:   Status{State: StateIdle},
	}
}

// Status returns the current state.
func (w *SyncWorker) Status() Status {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.status
}

func (w *SyncWorker) setStatus(s Status) {
	w.mu.Lock()
	w.status = s
	w.mu.Unlock()
}

// Drain sends every pending entry in insertion order. A successful send
// removes the entry; the first failure leaves it and every later entry
// queued and moves the engine to StateBlocked. The returned error is the
// blocking one.
func (w *SyncWorker) Drain(ctx context.Context) (Result, error) {
	if !w.run.TryLock() {
		return Result{}, ErrDrainInProgress
	}
	defer w.run.Unlock()

	w.setStatus(Status{State: StateDraining, LastRun: w.now()})

	pending, err := w.queue.DrainPending(ctx)
	if err != nil {
		w.block(ctx, nil, fmt.Errorf("read pending queue: %w", err))
		return Result{}, w.Status().Err
	}
	if len(pending) == 0 {
		w.setStatus(Status{State: StateIdle, LastRun: w.now()})
		return Result{}, nil
	}

	w.logger.InfoContext(ctx, "Draining pending writes",
		log.FieldOperation, log.OpSync,
		log.FieldPending, len(pending))

	var res Result
	for i, sub := range pending {
		if err := ctx.Err(); err != nil {
			res.Remaining = len(pending) - i
			w.block(ctx, &sub, err)
			return res, err
		}

		row, err := w.appender.Append(ctx, sub)
		if err != nil {
			res.Remaining = len(pending) - i
			w.block(ctx, &sub, err)
			return res, err
		}

		if _, err := w.queue.RemoveFromPending(ctx, sub); err != nil {
			// the row is in the ledger but still queued; stop before the
			// queue diverges further
			res.Synced++
			res.Remaining = len(pending) - i
			w.block(ctx, &sub, fmt.Errorf("dequeue synced entry: %w", err))
			return res, w.Status().Err
		}
		res.Synced++

		w.logger.DebugContext(ctx, "Pending write synced",
			log.FieldDate, sub.Date,
			log.FieldProduct, sub.Product,
			log.FieldRows, len(row))
	}

	w.setStatus(Status{State: StateIdle, LastRun: w.now()})
	w.logger.InfoContext(ctx, "Pending queue drained",
		log.FieldOperation, log.OpSync,
		log.FieldSynced, res.Synced)
	return res, nil
}

func (w *SyncWorker) block(ctx context.Context, sub *core.Submission, err error) {
	w.setStatus(Status{State: StateBlocked, Blocked: sub, Err: err, LastRun: w.now()})
	fields := log.NewFields().WithOperation(log.OpSync).WithError(err)
	attrs := fields.ToSlice()
	if sub != nil {
		attrs = append(attrs, log.FieldDate, sub.Date, log.FieldProduct, sub.Product)
	}
	w.logger.WarnContext(ctx, "Sync blocked", attrs...)
}
