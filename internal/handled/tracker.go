package handled

import (
	"context"
	"log/slog"
	"strings"
	"sync"
)

type TrackerOptions struct {
	Logger *slog.Logger
	// OnPersistError is called after a failed write, e.g. to bump a counter.
	OnPersistError func(err error)
}

// Tracker is the in-memory handled set backed by a Store. The in-memory view
// is authoritative: persistence failures are logged and otherwise ignored.
type Tracker struct {
	mu             sync.RWMutex
	set            Set
	store          Store
	logger         *slog.Logger
	onPersistError func(err error)
}

// Open loads the persisted set. A load failure is logged and the tracker
// starts empty.
func Open(ctx context.Context, store Store, opts TrackerOptions) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	t := &Tracker{
		set:            NewSet(),
		store:          store,
		logger:         logger,
		onPersistError: opts.OnPersistError,
	}
	if store == nil {
		return t
	}
	loaded, err := store.Load(ctx)
	if err != nil {
		logger.Warn("handled_load_error", "error", err.Error())
	}
	t.set.Union(loaded)
	logger.Debug("handled_loaded", "count", t.set.Len())
	return t
}

// Contains reports whether id was handled by this process or, for shared
// stores, by any process using the same store.
func (t *Tracker) Contains(ctx context.Context, id string) bool {
	if t == nil {
		return false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return false
	}
	t.mu.RLock()
	ok := t.set.Has(id)
	t.mu.RUnlock()
	if ok {
		return true
	}
	checker, isChecker := t.store.(Checker)
	if !isChecker {
		return false
	}
	found, err := checker.Has(ctx, id)
	if err != nil {
		t.logger.Warn("handled_check_error", "id", id, "error", err.Error())
		return false
	}
	if found {
		t.mu.Lock()
		t.set.Add(id)
		t.mu.Unlock()
	}
	return found
}

// MarkHandled inserts id and persists immediately. It reports whether id was
// newly added.
func (t *Tracker) MarkHandled(ctx context.Context, id string) bool {
	if t == nil {
		return false
	}
	t.mu.Lock()
	added := t.set.Add(id)
	var snapshot Set
	if added {
		snapshot = t.set.Clone()
	}
	t.mu.Unlock()
	if !added || t.store == nil {
		return added
	}

	var err error
	if ins, ok := t.store.(Inserter); ok {
		err = ins.Insert(ctx, strings.TrimSpace(id))
	} else {
		err = t.store.Save(ctx, snapshot)
	}
	if err != nil {
		t.logger.Warn("handled_persist_error", "id", id, "error", err.Error())
		if t.onPersistError != nil {
			t.onPersistError(err)
		}
	}
	return added
}

func (t *Tracker) Len() int {
	if t == nil {
		return 0
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.set.Len()
}

// Snapshot returns the handled ids in lexical order.
func (t *Tracker) Snapshot() []string {
	if t == nil {
		return nil
	}
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.set.Sorted()
}
