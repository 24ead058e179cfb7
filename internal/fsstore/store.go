// Package fsstore stores attachment content on the local filesystem.
//
// Paths are a deterministic function of entity type, optional reference
// code, and the normalized filename, so re-uploading a file with the
// same name overwrites in place (replace, not a new file). Writes happen
// outside the store transaction; Rollback undoes them when a chunk
// commit fails.
package fsstore

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
)

// Store writes and deletes attachment files under Root.
type Store struct {
	Root string
}

// New creates a store rooted at the given directory.
func New(root string) Store {
	return Store{Root: filepath.Clean(root)}
}

// SafeName normalizes a client-supplied filename: whitespace becomes "_"
// and every character outside [A-Za-z0-9._-] is stripped. The path
// segments "." and ".." normalize to empty, same as a name with no
// usable characters.
func SafeName(name string) string {
	var b strings.Builder
	b.Grow(len(name))
	for _, r := range name {
		switch {
		case r == ' ' || r == '\t' || r == '\n' || r == '\r':
			b.WriteByte('_')
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9',
			r == '.', r == '_', r == '-':
			b.WriteRune(r)
		}
	}
	switch out := b.String(); out {
	case ".", "..":
		return ""
	default:
		return out
	}
}

// appendSafeSegments splits a client-supplied value on "/" and appends
// the normalized non-empty segments. Dot segments normalize to empty in
// SafeName, so nothing appended here can climb out of the root.
func appendSafeSegments(dst []string, value string) []string {
	for _, part := range strings.Split(value, "/") {
		if safe := SafeName(part); safe != "" {
			dst = append(dst, safe)
		}
	}
	return dst
}

// PathFor returns the relative destination path for a file:
// {entity}/{ref}/{safeName}, with the ref segment omitted when empty.
// Entity and ref come from the client, so every segment is normalized
// the same way as the filename; refs may be hierarchical ("PRJ-1/17")
// and keep their structure.
func (s Store) PathFor(entity, ref, name string) string {
	segs := make([]string, 0, 4)
	segs = appendSafeSegments(segs, entity)
	segs = appendSafeSegments(segs, ref)
	segs = append(segs, SafeName(name))
	return filepath.Join(segs...)
}

// Write stores the bytes at the deterministic path for (entity, ref,
// name), creating intermediate directories and overwriting any previous
// content. The write goes to a uniquely named temp file first and is
// renamed into place, so a replaced attachment is never observable
// half-written. Returns the relative path for the metadata row and
// rollback.
func (s Store) Write(entity, ref, name string, data []byte) (string, error) {
	rel := s.PathFor(entity, ref, name)
	abs := filepath.Join(s.Root, rel)
	if err := os.MkdirAll(filepath.Dir(abs), 0o755); err != nil {
		return "", fmt.Errorf("create directories: %w", err)
	}
	tmp := abs + ".tmp-" + uuid.NewString()
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return "", fmt.Errorf("write file: %w", err)
	}
	if err := os.Rename(tmp, abs); err != nil {
		_ = os.Remove(tmp)
		return "", fmt.Errorf("finalize file: %w", err)
	}
	return rel, nil
}

// Exists reports whether a previously written path is present on disk.
// Paths escaping the root never exist.
func (s Store) Exists(relPath string) bool {
	rel := filepath.Clean(relPath)
	if !filepath.IsLocal(rel) {
		return false
	}
	_, err := os.Stat(filepath.Join(s.Root, rel))
	return err == nil
}

// Remove deletes a previously written path. Missing files are not an
// error (delete is idempotent). Only paths under the root are touched.
func (s Store) Remove(relPath string) error {
	rel := filepath.Clean(relPath)
	if !filepath.IsLocal(rel) {
		return fmt.Errorf("path escapes storage root: %s", relPath)
	}
	err := os.Remove(filepath.Join(s.Root, rel))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Rollback deletes every path in a chunk's write-set, best effort. Each
// path is attempted regardless of earlier failures; a stray orphan file
// is preferable to a secondary error masking the commit failure, so
// deletion errors are logged and swallowed.
func (s Store) Rollback(relPaths []string) {
	for _, p := range relPaths {
		if err := s.Remove(p); err != nil {
			slog.Warn("rollback: failed to remove file", "path", p, "error", err)
		}
	}
}
