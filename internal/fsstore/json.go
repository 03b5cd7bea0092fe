package fsstore

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
)

// ReadJSON decodes path into out. A missing or blank file reports (false, nil).
func ReadJSON(path string, out any) (bool, error) {
	path, err := normalizePath(path)
	if err != nil {
		return false, err
	}
	data, err := readExisting(path)
	if err != nil || data == nil {
		return false, err
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false, fmt.Errorf("%w: %s: %v", ErrDecodeFailed, path, err)
	}
	return true, nil
}

// WriteJSONAtomic encodes v as one JSON document plus a trailing newline and
// replaces path with it.
func WriteJSONAtomic(path string, v any, opts FileOptions) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if opts.Indent {
		enc.SetIndent("", "  ")
	}
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrEncodeFailed, path, err)
	}
	return replaceFile(path, buf.Bytes(), opts)
}

// readExisting returns nil data for a missing or whitespace-only file.
func readExisting(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return nil, nil
	case err != nil:
		return nil, fmt.Errorf("fsstore: read %s: %w", path, err)
	case len(bytes.TrimSpace(data)) == 0:
		return nil, nil
	}
	return data, nil
}
