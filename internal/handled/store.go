package handled

import "context"

// Store persists the handled set across restarts.
type Store interface {
	Load(ctx context.Context) (Set, error)
	Save(ctx context.Context, set Set) error
	Close() error
}

// Inserter is implemented by stores that can persist a single id without
// rewriting the whole set.
type Inserter interface {
	Insert(ctx context.Context, id string) error
}

// Checker is implemented by stores shared between processes, so a lookup can
// observe ids written by a sibling.
type Checker interface {
	Has(ctx context.Context, id string) (bool, error)
}

// Resetter empties the persisted set.
type Resetter interface {
	Reset(ctx context.Context) error
}

// Claimer is implemented by stores that a single long-running process must
// own. Claim fails when another process already holds the store.
type Claimer interface {
	Claim() error
}
