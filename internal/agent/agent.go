// Package agent is the client side of the ledger. It sends writes to the
// gateway while it is reachable, queues them locally while it is not, and
// answers reads from a local mirror when offline.
package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/GillJordan/Home-expense/internal/cache"
	"github.com/GillJordan/Home-expense/internal/core"
	"github.com/GillJordan/Home-expense/internal/log"
	"github.com/GillJordan/Home-expense/internal/worker"
)

// Connectivity of the agent.
type Connectivity string

const (
	Online  Connectivity = "ONLINE"
	Offline Connectivity = "OFFLINE"
)

// Gateway is the remote ledger as seen by the agent.
type Gateway interface {
	Health(ctx context.Context) error
	Append(ctx context.Context, sub core.Submission) (core.Row, error)
	ListAll(ctx context.Context, year int) ([]core.Row, error)
	ListByDay(ctx context.Context, date time.Time) ([]core.Row, error)
	Search(ctx context.Context, q core.Query) (core.SearchResult, error)
	Suggestions(ctx context.Context) (core.Suggestions, error)
}

// Source tells where a read was answered from.
type Source string

const (
	SourceGateway Source = "gateway"
	SourceMirror  Source = "mirror"
)

// SubmitResult reports what happened to a submission.
type SubmitResult struct {
	Queued bool
	Row    core.Row
}

// Status is a snapshot for display.
type Status struct {
	Connectivity      Connectivity
	LastProbe         time.Time
	Pending           int
	Sync              worker.Status
	MirrorRows        int
	MirrorRefreshedAt time.Time
}

type Agent struct {
	gw     Gateway
	local  *cache.Local
	sync   *worker.SyncWorker
	logger *log.Logger
	match  core.DateMatch
	now    func() time.Time

	mu        sync.Mutex
	state     Connectivity
	lastProbe time.Time
	// outcome of the last reconnect drain, not yet reported by Sync
	reconnect *drainOutcome
}

type drainOutcome struct {
	res worker.Result
	err error
}

type Option func(*Agent)

func WithDateMatch(m core.DateMatch) Option {
	return func(a *Agent) {
		if m.IsValid() {
			a.match = m
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(a *Agent) { a.now = now }
}

func WithLogger(l *log.Logger) Option {
	return func(a *Agent) { a.logger = l }
}

// New returns an agent in the OFFLINE state; call Start to probe.
func New(gw Gateway, local *cache.Local, opts ...Option) *Agent {
	a := &Agent{
		gw:     gw,
		local:  local,
		match:  core.DateMatchCalendar,
		now:    time.Now,
		logger: log.New(log.DefaultConfig()),
		state:  Offline,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.sync = worker.NewSyncWorker(local, gw, a.logger)
	a.logger = a.logger.WithComponent(log.ComponentAgent)
	return a
}

// Connectivity returns the current state.
func (a *Agent) Connectivity() Connectivity {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.state
}

// Start probes the gateway and, when it answers, drains the pending queue
// and refreshes the local caches.
func (a *Agent) Start(ctx context.Context) error {
	a.logger.DebugContext(ctx, "Agent starting", log.FieldOperation, log.OpStartup)
	if err := a.gw.Health(ctx); err != nil {
		a.setState(ctx, Offline, err)
		return nil
	}
	a.setState(ctx, Online, nil)
	return a.reconnected(ctx)
}

// Probe checks the gateway and applies the resulting transition.
func (a *Agent) Probe(ctx context.Context) (Connectivity, error) {
	err := a.gw.Health(ctx)
	if err != nil {
		a.logger.DebugContext(ctx, "Gateway probe failed", log.FieldOperation, log.OpProbe, log.FieldError, err)
	}
	err = a.SetOnline(ctx, err == nil)
	return a.Connectivity(), err
}

// SetOnline applies a connectivity change. Going from OFFLINE to ONLINE
// drains the queue then refreshes the mirror and suggestions; going
// offline has no side effect.
func (a *Agent) SetOnline(ctx context.Context, online bool) error {
	next := Offline
	if online {
		next = Online
	}
	prev := a.setState(ctx, next, nil)
	if prev == Offline && next == Online {
		return a.reconnected(ctx)
	}
	return nil
}

func (a *Agent) setState(ctx context.Context, next Connectivity, cause error) Connectivity {
	a.mu.Lock()
	prev := a.state
	a.state = next
	a.lastProbe = a.now()
	a.mu.Unlock()

	if prev != next {
		attrs := []any{log.FieldState, string(next), "previous", string(prev)}
		if cause != nil {
			attrs = append(attrs, log.FieldError, cause)
		}
		a.logger.InfoContext(ctx, "Connectivity changed", attrs...)
	}
	return prev
}

func (a *Agent) reconnected(ctx context.Context) error {
	res, drainErr := a.sync.Drain(ctx)
	drained := !errors.Is(drainErr, worker.ErrDrainInProgress)
	if !drained {
		drainErr = nil
	}
	refreshErr := a.RefreshMirror(ctx)
	if err := a.RefreshSuggestions(ctx); err != nil {
		a.logger.WarnContext(ctx, "Suggestions refresh failed", log.FieldError, err)
	}
	err := errors.Join(drainErr, refreshErr)
	if drained {
		a.mu.Lock()
		a.reconnect = &drainOutcome{res: res, err: err}
		a.mu.Unlock()
	}
	return err
}

func (a *Agent) takeReconnectOutcome() *drainOutcome {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := a.reconnect
	a.reconnect = nil
	return out
}

// Submit validates sub, then appends it through the gateway when online or
// queues it when offline. Online failures are returned, not queued.
func (a *Agent) Submit(ctx context.Context, sub core.Submission) (SubmitResult, error) {
	if _, err := core.NewRecord(sub, a.now()); err != nil {
		return SubmitResult{}, err
	}

	if a.Connectivity() == Offline {
		if err := a.local.EnqueuePending(ctx, sub); err != nil {
			return SubmitResult{}, fmt.Errorf("queue submission: %w", err)
		}
		a.logger.InfoContext(ctx, "Submission queued",
			log.FieldOperation, log.OpEnqueue,
			log.FieldDate, sub.Date,
			log.FieldProduct, sub.Product)
		return SubmitResult{Queued: true}, nil
	}

	row, err := a.gw.Append(ctx, sub)
	if err != nil {
		return SubmitResult{}, err
	}
	if err := a.RefreshSuggestions(ctx); err != nil {
		a.logger.WarnContext(ctx, "Suggestions refresh failed", log.FieldError, err)
	}
	return SubmitResult{Row: row}, nil
}

// Search runs q against the gateway when online, else the mirror.
func (a *Agent) Search(ctx context.Context, q core.Query) (core.SearchResult, Source, error) {
	if a.Connectivity() == Online {
		res, err := a.gw.Search(ctx, q)
		return res, SourceGateway, err
	}
	res, err := a.local.ReadMirror(ctx, q)
	return res, SourceMirror, err
}

// Day lists the rows recorded on date.
func (a *Agent) Day(ctx context.Context, date time.Time) ([]core.Row, Source, error) {
	if a.Connectivity() == Online {
		rows, err := a.gw.ListByDay(ctx, date)
		return rows, SourceGateway, err
	}
	rows, err := a.local.ReadMirrorDay(ctx, date, a.match)
	return rows, SourceMirror, err
}

// Suggestions returns autocomplete values. Online answers are cached for
// offline use.
func (a *Agent) Suggestions(ctx context.Context) (core.Suggestions, Source, error) {
	if a.Connectivity() == Online {
		s, err := a.gw.Suggestions(ctx)
		if err != nil {
			return core.Suggestions{}, SourceGateway, err
		}
		if err := a.local.StoreSuggestions(ctx, s); err != nil {
			a.logger.WarnContext(ctx, "Caching suggestions failed", log.FieldError, err)
		}
		return s, SourceGateway, nil
	}
	s, _, err := a.local.ReadSuggestions(ctx)
	return s, SourceMirror, err
}

// RefreshMirror replaces the mirror with the current year's data rows.
func (a *Agent) RefreshMirror(ctx context.Context) error {
	rows, err := a.gw.ListAll(ctx, a.now().Year())
	if err != nil {
		return fmt.Errorf("refresh mirror: %w", err)
	}
	data := core.DataRows(rows)
	if err := a.local.StoreMirror(ctx, data); err != nil {
		return err
	}
	a.logger.DebugContext(ctx, "Mirror refreshed", log.FieldOperation, log.OpRefresh, log.FieldRows, len(data))
	return nil
}

func (a *Agent) RefreshSuggestions(ctx context.Context) error {
	s, err := a.gw.Suggestions(ctx)
	if err != nil {
		return fmt.Errorf("refresh suggestions: %w", err)
	}
	return a.local.StoreSuggestions(ctx, s)
}

// Sync drains the pending queue now. It probes first when offline and
// fails without touching the queue if the gateway is still unreachable.
// A drain already run by the last reconnect is reported instead of
// replaying the queue a second time.
func (a *Agent) Sync(ctx context.Context) (worker.Result, error) {
	if a.Connectivity() == Offline {
		if state, _ := a.Probe(ctx); state == Offline {
			return worker.Result{}, core.Store("gateway unreachable", nil)
		}
	}
	if out := a.takeReconnectOutcome(); out != nil {
		return out.res, out.err
	}
	res, err := a.sync.Drain(ctx)
	if err == nil {
		err = a.RefreshMirror(ctx)
	}
	return res, err
}

func (a *Agent) Pending(ctx context.Context) ([]core.Submission, error) {
	return a.local.DrainPending(ctx)
}

// DropPending discards the queued entry at index i, 0-based.
func (a *Agent) DropPending(ctx context.Context, i int) (core.Submission, error) {
	return a.local.RemovePendingAt(ctx, i)
}

func (a *Agent) Status(ctx context.Context) (Status, error) {
	pending, err := a.local.DrainPending(ctx)
	if err != nil {
		return Status{}, err
	}
	mirror, err := a.local.LoadMirror(ctx)
	if err != nil {
		return Status{}, err
	}
	a.mu.Lock()
	st := Status{Connectivity: a.state, LastProbe: a.lastProbe}
	a.mu.Unlock()
	st.Pending = len(pending)
	st.Sync = a.sync.Status()
	st.MirrorRows = len(mirror.Rows)
	st.MirrorRefreshedAt = mirror.RefreshedAt
	return st, nil
}

// Watch probes the gateway every interval until ctx ends.
func (a *Agent) Watch(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if _, err := a.Probe(ctx); err != nil {
				a.logger.WarnContext(ctx, "Reconnect work failed", log.FieldError, err)
			}
		}
	}
}
