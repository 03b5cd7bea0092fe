package fsstore

import (
	"fmt"
	"os"
	"path/filepath"
)

// EnsureDir creates path and its parents. A zero perm means owner-only.
func EnsureDir(path string, perm os.FileMode) error {
	dir, err := normalizePath(path)
	if err != nil {
		return err
	}
	if perm == 0 {
		perm = defaultDirPerm
	}
	if err := os.MkdirAll(dir, perm); err != nil {
		return fmt.Errorf("fsstore: mkdir %s: %w", dir, err)
	}
	return nil
}

// replaceFile stages content in a hidden sibling of path and renames it into
// place. Readers see the old file or the new one, never a mix.
func replaceFile(path string, content []byte, opts FileOptions) error {
	path, err := normalizePath(path)
	if err != nil {
		return err
	}
	opts = normalizeFileOptions(opts)
	dir := filepath.Dir(path)
	if err := EnsureDir(dir, opts.DirPerm); err != nil {
		return err
	}

	staged, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return fmt.Errorf("%w: stage %s: %v", ErrAtomicWriteFailed, path, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = staged.Close()
			_ = os.Remove(staged.Name())
		}
	}()

	steps := []struct {
		op  string
		run func() error
	}{
		{"write", func() error { _, err := staged.Write(content); return err }},
		{"chmod", func() error { return staged.Chmod(opts.FilePerm) }},
		{"fsync", staged.Sync},
		{"close", staged.Close},
		{"rename", func() error { return os.Rename(staged.Name(), path) }},
	}
	for _, step := range steps {
		if err := step.run(); err != nil {
			return fmt.Errorf("%w: %s %s: %v", ErrAtomicWriteFailed, step.op, path, err)
		}
	}
	committed = true
	syncDir(dir)
	return nil
}

// syncDir flushes the rename. Some filesystems refuse a directory fsync.
func syncDir(dir string) {
	d, err := os.Open(dir)
	if err != nil {
		return
	}
	_ = d.Sync()
	_ = d.Close()
}
