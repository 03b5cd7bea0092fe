package daemonruntime

import (
	"strings"
	"sync"
)

const (
	defaultPassLogSize = 1000
	defaultListLimit   = 20
	maxListLimit       = 200
)

// PassReader is the minimal read API required by the status routes.
type PassReader interface {
	List(status PassStatus, limit int) []PassInfo
	Get(id string) (*PassInfo, bool)
}

// PassLog keeps the most recent pass summaries in the order they began.
// Once full, beginning a pass drops the oldest one.
type PassLog struct {
	mu    sync.RWMutex
	items []PassInfo
	size  int
}

func NewPassLog(size int) *PassLog {
	if size <= 0 {
		size = defaultPassLogSize
	}
	return &PassLog{size: size}
}

// Begin records a pass. An id already in the log is replaced in place.
func (l *PassLog) Begin(info PassInfo) {
	if l == nil {
		return
	}
	info.ID = strings.TrimSpace(info.ID)
	if info.ID == "" {
		return
	}
	info.Status, _ = ParsePassStatus(string(info.Status))

	l.mu.Lock()
	defer l.mu.Unlock()
	if i := l.indexLocked(info.ID); i >= 0 {
		l.items[i] = info
		return
	}
	if len(l.items) >= l.size {
		drop := len(l.items) - l.size + 1
		l.items = append(l.items[:0], l.items[drop:]...)
	}
	l.items = append(l.items, info)
}

// Finish applies fn to a pass recorded by Begin and returns the result.
// Unknown ids report false.
func (l *PassLog) Finish(id string, fn func(*PassInfo)) (PassInfo, bool) {
	if l == nil {
		return PassInfo{}, false
	}
	id = strings.TrimSpace(id)

	l.mu.Lock()
	defer l.mu.Unlock()
	i := l.indexLocked(id)
	if i < 0 {
		return PassInfo{}, false
	}
	item := l.items[i]
	if fn != nil {
		fn(&item)
	}
	item.ID = id
	item.Status, _ = ParsePassStatus(string(item.Status))
	l.items[i] = item
	return item, true
}

func (l *PassLog) Get(id string) (*PassInfo, bool) {
	if l == nil {
		return nil, false
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, false
	}
	l.mu.RLock()
	defer l.mu.RUnlock()
	i := l.indexLocked(id)
	if i < 0 {
		return nil, false
	}
	item := l.items[i]
	return &item, true
}

// List returns passes newest first, optionally filtered by status.
func (l *PassLog) List(status PassStatus, limit int) []PassInfo {
	if l == nil {
		return nil
	}
	switch {
	case limit <= 0:
		limit = defaultListLimit
	case limit > maxListLimit:
		limit = maxListLimit
	}
	want := strings.ToLower(strings.TrimSpace(string(status)))

	l.mu.RLock()
	defer l.mu.RUnlock()
	out := make([]PassInfo, 0, min(limit, len(l.items)))
	for i := len(l.items) - 1; i >= 0 && len(out) < limit; i-- {
		if want != "" && string(l.items[i].Status) != want {
			continue
		}
		out = append(out, l.items[i])
	}
	return out
}

// indexLocked searches newest first; lookups are almost always for the
// pass that just began.
func (l *PassLog) indexLocked(id string) int {
	for i := len(l.items) - 1; i >= 0; i-- {
		if l.items[i].ID == id {
			return i
		}
	}
	return -1
}
