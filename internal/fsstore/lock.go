package fsstore

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const lockRetryWait = 25 * time.Millisecond

// LockPathFor returns the sidecar lock file guarding path.
func LockPathFor(path string) (string, error) {
	normalized, err := normalizePath(path)
	if err != nil {
		return "", err
	}
	return normalized + ".lck", nil
}

// WithLock runs fn while holding an exclusive advisory lock on lockPath.
// Waiting honors ctx.
func WithLock(ctx context.Context, lockPath string, fn func() error) error {
	normalizedPath, err := normalizePath(lockPath)
	if err != nil {
		return err
	}
	if fn == nil {
		return nil
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := EnsureDir(filepath.Dir(normalizedPath), defaultDirPerm); err != nil {
		return err
	}

	file, err := os.OpenFile(normalizedPath, os.O_CREATE|os.O_RDWR, defaultFilePerm)
	if err != nil {
		return fmt.Errorf("%w: open %s: %v", ErrLockUnavailable, normalizedPath, err)
	}
	defer file.Close()

	for {
		ok, err := tryLock(file)
		if err != nil {
			return fmt.Errorf("%w: %s: %v", ErrLockUnavailable, normalizedPath, err)
		}
		if ok {
			break
		}
		if err := waitForLockRetry(ctx, normalizedPath); err != nil {
			return err
		}
	}
	defer unlock(file)

	writeLockOwner(file)
	return fn()
}

// Held is an advisory lock kept across calls until Release.
type Held struct {
	file *os.File
}

// TryHold takes lockPath without waiting. A lock held by any other open file
// yields ErrLockBusy.
func TryHold(lockPath string) (*Held, error) {
	normalizedPath, err := normalizePath(lockPath)
	if err != nil {
		return nil, err
	}
	if err := EnsureDir(filepath.Dir(normalizedPath), defaultDirPerm); err != nil {
		return nil, err
	}
	file, err := os.OpenFile(normalizedPath, os.O_CREATE|os.O_RDWR, defaultFilePerm)
	if err != nil {
		return nil, fmt.Errorf("%w: open %s: %v", ErrLockUnavailable, normalizedPath, err)
	}
	ok, err := tryLock(file)
	if err != nil {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s: %v", ErrLockUnavailable, normalizedPath, err)
	}
	if !ok {
		_ = file.Close()
		return nil, fmt.Errorf("%w: %s", ErrLockBusy, normalizedPath)
	}
	writeLockOwner(file)
	return &Held{file: file}, nil
}

func (h *Held) Release() error {
	if h == nil || h.file == nil {
		return nil
	}
	unlock(h.file)
	err := h.file.Close()
	h.file = nil
	return err
}

// writeLockOwner records the holder's pid for operators inspecting a stuck
// lock file.
func writeLockOwner(file *os.File) {
	_ = file.Truncate(0)
	_, _ = file.Seek(0, 0)
	_, _ = fmt.Fprintf(file, "%d %s\n", os.Getpid(), time.Now().UTC().Format(time.RFC3339))
}

func waitForLockRetry(ctx context.Context, lockPath string) error {
	timer := time.NewTimer(lockRetryWait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("%w: %s: %v", ErrLockTimeout, lockPath, ctx.Err())
	case <-timer.C:
		return nil
	}
}
