package handled

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/quailyquaily/greg/internal/fsstore"
)

// ErrInUse is returned by Reset while a running relay has claimed the file.
var ErrInUse = errors.New("handled set is in use by a running relay")

// FileStore keeps the handled set as a single JSON array of ids. Every write
// rewrites the file atomically while holding a sidecar flock, after merging
// whatever another process wrote in the meantime.
type FileStore struct {
	path      string
	lockPath  string
	ownerPath string
	opts      fsstore.FileOptions

	mu    sync.Mutex
	owner *fsstore.Held
}

func NewFileStore(path string) (*FileStore, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, fmt.Errorf("handled file path is empty")
	}
	lockPath, err := fsstore.LockPathFor(path)
	if err != nil {
		return nil, err
	}
	ownerPath, err := fsstore.LockPathFor(path + ".relay")
	if err != nil {
		return nil, err
	}
	return &FileStore{path: path, lockPath: lockPath, ownerPath: ownerPath}, nil
}

func (s *FileStore) Path() string { return s.path }

// Load returns the persisted ids. A missing file is an empty set; a corrupt
// file is an empty set plus the decode error.
func (s *FileStore) Load(ctx context.Context) (Set, error) {
	set, err := s.read()
	if err != nil {
		return NewSet(), err
	}
	return set, nil
}

func (s *FileStore) Save(ctx context.Context, set Set) error {
	return fsstore.WithLock(ctx, s.lockPath, func() error {
		merged, err := s.read()
		if err != nil {
			// A corrupt file is replaced by the in-memory view.
			merged = NewSet()
		}
		merged.Union(set)
		return fsstore.WriteJSONAtomic(s.path, merged.Sorted(), s.opts)
	})
}

// Claim holds the owner lock until Close. A running relay keeps its ids in
// memory and merges them back on every Save, so a Reset underneath it would
// be undone; claiming makes such a Reset fail instead.
func (s *FileStore) Claim() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.owner != nil {
		return nil
	}
	held, err := fsstore.TryHold(s.ownerPath)
	if errors.Is(err, fsstore.ErrLockBusy) {
		return fmt.Errorf("%w: %s", ErrInUse, s.path)
	}
	if err != nil {
		return err
	}
	s.owner = held
	return nil
}

func (s *FileStore) Reset(ctx context.Context) error {
	held, err := fsstore.TryHold(s.ownerPath)
	if errors.Is(err, fsstore.ErrLockBusy) {
		return fmt.Errorf("%w: stop it before resetting %s", ErrInUse, s.path)
	}
	if err != nil {
		return err
	}
	defer held.Release()
	return fsstore.WithLock(ctx, s.lockPath, func() error {
		return fsstore.WriteJSONAtomic(s.path, []string{}, s.opts)
	})
}

func (s *FileStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	err := s.owner.Release()
	s.owner = nil
	return err
}

func (s *FileStore) read() (Set, error) {
	var ids []string
	ok, err := fsstore.ReadJSON(s.path, &ids)
	if err != nil {
		return nil, err
	}
	if !ok {
		return NewSet(), nil
	}
	return NewSet(ids...), nil
}
