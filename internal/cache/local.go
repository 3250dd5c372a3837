package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/GillJordan/Home-expense/internal/core"
)

// Keys of the three independently stored blobs.
const (
	KeyPending     = "pending"
	KeyMirror      = "mirror"
	KeySuggestions = "suggestions"
)

// Local is the client-side store used while the gateway is unreachable:
// a mirror of ledger rows, the queue of writes not yet sent, and the last
// known autocomplete values.
type Local struct {
	kv     KV
	schema core.Schema
	now    func() time.Time
	mu     sync.Mutex
}

// Mirror is a snapshot of data rows, header excluded.
type Mirror struct {
	Rows        []core.Row `json:"rows"`
	RefreshedAt time.Time  `json:"refreshedAt"`
}

type suggestionsBlob struct {
	Suggestions core.Suggestions `json:"suggestions"`
	RefreshedAt time.Time        `json:"refreshedAt"`
}

func NewLocal(kv KV) *Local {
	return &Local{kv: kv, schema: core.SchemaV1, now: time.Now}
}

// WithClock replaces the time source used for refresh stamps.
func (l *Local) WithClock(now func() time.Time) *Local {
	l.now = now
	return l
}

func (l *Local) load(ctx context.Context, key string, dst any) (bool, error) {
	raw, ok, err := l.kv.Get(ctx, key)
	if err != nil {
		return false, fmt.Errorf("load %s: %w", key, err)
	}
	if !ok || len(raw) == 0 {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (l *Local) save(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	if err := l.kv.Set(ctx, key, raw); err != nil {
		return fmt.Errorf("save %s: %w", key, err)
	}
	return nil
}

// StoreMirror replaces the mirror with rows.
func (l *Local) StoreMirror(ctx context.Context, rows []core.Row) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if rows == nil {
		rows = []core.Row{}
	}
	return l.save(ctx, KeyMirror, Mirror{Rows: rows, RefreshedAt: l.now().UTC()})
}

// LoadMirror returns the stored snapshot, empty when none was stored.
func (l *Local) LoadMirror(ctx context.Context) (Mirror, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var m Mirror
	if _, err := l.load(ctx, KeyMirror, &m); err != nil {
		return Mirror{}, err
	}
	if m.Rows == nil {
		m.Rows = []core.Row{}
	}
	return m, nil
}

// ReadMirror filters the mirror with the same predicate the gateway's
// search uses.
func (l *Local) ReadMirror(ctx context.Context, q core.Query) (core.SearchResult, error) {
	m, err := l.LoadMirror(ctx)
	if err != nil {
		return core.SearchResult{}, err
	}
	return core.Search(l.schema, m.Rows, q), nil
}

// ReadMirrorDay returns the mirrored rows recorded on target.
func (l *Local) ReadMirrorDay(ctx context.Context, target time.Time, match core.DateMatch) ([]core.Row, error) {
	m, err := l.LoadMirror(ctx)
	if err != nil {
		return nil, err
	}
	out := []core.Row{}
	for _, row := range m.Rows {
		if match.SameDay(l.schema.Cell(row, core.ColumnDate), target) {
			out = append(out, row)
		}
	}
	return out, nil
}

func (l *Local) pending(ctx context.Context) ([]core.Submission, error) {
	var queue []core.Submission
	if _, err := l.load(ctx, KeyPending, &queue); err != nil {
		return nil, err
	}
	if queue == nil {
		queue = []core.Submission{}
	}
	return queue, nil
}

// EnqueuePending appends sub to the queue. Duplicates are kept.
func (l *Local) EnqueuePending(ctx context.Context, sub core.Submission) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	queue, err := l.pending(ctx)
	if err != nil {
		return err
	}
	return l.save(ctx, KeyPending, append(queue, sub))
}

// DrainPending returns the queue in insertion order without removing
// anything.
func (l *Local) DrainPending(ctx context.Context) ([]core.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.pending(ctx)
}

// RemoveFromPending removes the first entry equal to sub and reports
// whether one was found.
func (l *Local) RemoveFromPending(ctx context.Context, sub core.Submission) (bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	queue, err := l.pending(ctx)
	if err != nil {
		return false, err
	}
	for i, q := range queue {
		if q == sub {
			queue = append(queue[:i], queue[i+1:]...)
			return true, l.save(ctx, KeyPending, queue)
		}
	}
	return false, nil
}

// RemovePendingAt drops the entry at index i, 0-based.
func (l *Local) RemovePendingAt(ctx context.Context, i int) (core.Submission, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	queue, err := l.pending(ctx)
	if err != nil {
		return core.Submission{}, err
	}
	if i < 0 || i >= len(queue) {
		return core.Submission{}, core.Validation(fmt.Sprintf("no pending entry %d (queue has %d)", i+1, len(queue)))
	}
	sub := queue[i]
	queue = append(queue[:i], queue[i+1:]...)
	return sub, l.save(ctx, KeyPending, queue)
}

func (l *Local) StoreSuggestions(ctx context.Context, s core.Suggestions) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.save(ctx, KeySuggestions, suggestionsBlob{Suggestions: s, RefreshedAt: l.now().UTC()})
}

// ReadSuggestions returns the cached lists; ok is false when none were
// stored yet.
func (l *Local) ReadSuggestions(ctx context.Context) (core.Suggestions, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	var b suggestionsBlob
	ok, err := l.load(ctx, KeySuggestions, &b)
	if err != nil || !ok {
		return emptySuggestions(), false, err
	}
	return b.Suggestions, true, nil
}

func emptySuggestions() core.Suggestions {
	return core.Suggestions{Products: []string{}, ForList: []string{}, ByList: []string{}, FromList: []string{}}
}
