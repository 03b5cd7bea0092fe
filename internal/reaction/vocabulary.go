package reaction

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"
)

const DefaultVocabularyTTL = 5 * time.Minute

// LoaderFunc lists the emoji names available in the workspace.
type LoaderFunc func(ctx context.Context) ([]string, error)

// Vocabulary caches the workspace emoji names for a TTL. A failed listing
// yields an empty snapshot and is not cached, so the next call lists again.
type Vocabulary struct {
	mu        sync.Mutex
	load      LoaderFunc
	ttl       time.Duration
	now       func() time.Time
	logger    *slog.Logger
	names     []string
	index     map[string]struct{}
	fetchedAt time.Time
	fetched   bool
}

func NewVocabulary(load LoaderFunc, ttl time.Duration, logger *slog.Logger) *Vocabulary {
	if ttl <= 0 {
		ttl = DefaultVocabularyTTL
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Vocabulary{load: load, ttl: ttl, now: time.Now, logger: logger}
}

// Snapshot is an immutable view of the vocabulary.
type Snapshot struct {
	names []string
	index map[string]struct{}
}

// StaticSnapshot builds a snapshot from a fixed name list.
func StaticSnapshot(names ...string) Snapshot {
	index := make(map[string]struct{}, len(names))
	for _, n := range names {
		if n != "" {
			index[n] = struct{}{}
		}
	}
	sorted := make([]string, 0, len(index))
	for n := range index {
		sorted = append(sorted, n)
	}
	sort.Strings(sorted)
	return Snapshot{names: sorted, index: index}
}

func (s Snapshot) Has(name string) bool {
	_, ok := s.index[name]
	return ok
}

func (s Snapshot) Empty() bool { return len(s.names) == 0 }

// Names returns the names in lexical order. The slice must not be modified.
func (s Snapshot) Names() []string { return s.names }

// Snapshot returns the cached names, refreshing them when the TTL elapsed.
func (v *Vocabulary) Snapshot(ctx context.Context) Snapshot {
	if v == nil {
		return Snapshot{}
	}
	v.mu.Lock()
	defer v.mu.Unlock()

	now := v.now()
	if v.fetched && now.Sub(v.fetchedAt) < v.ttl {
		return Snapshot{names: v.names, index: v.index}
	}

	if v.load == nil {
		return Snapshot{}
	}
	names, err := v.load(ctx)
	if err != nil {
		v.logger.Warn("emoji_list_error", "error", err.Error())
		return Snapshot{}
	}
	snap := StaticSnapshot(names...)
	v.names, v.index = snap.names, snap.index
	v.fetchedAt = now
	v.fetched = true
	v.logger.Debug("emoji_list_refreshed", "count", len(v.names))
	return snap
}
