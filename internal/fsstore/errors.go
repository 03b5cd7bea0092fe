package fsstore

import "errors"

// Sentinel errors; callers match them with errors.Is.
var (
	ErrInvalidPath       = errors.New("fsstore: invalid path")
	ErrLockTimeout       = errors.New("fsstore: lock wait canceled")
	ErrLockUnavailable   = errors.New("fsstore: cannot lock")
	ErrLockBusy          = errors.New("fsstore: lock held elsewhere")
	ErrEncodeFailed      = errors.New("fsstore: encode failed")
	ErrDecodeFailed      = errors.New("fsstore: decode failed")
	ErrAtomicWriteFailed = errors.New("fsstore: atomic write failed")
)
