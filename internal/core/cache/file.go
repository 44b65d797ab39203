package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

const fileExt = ".json"

// fileRecord is the on-disk shape of one entry. The write time is stored
// explicitly rather than read from the file's mtime, which avoids filesystem
// timestamp resolution and lets a fallback rewrite carry its own time.
type fileRecord struct {
	Key       string `json:"key"`
	Value     []byte `json:"value"`
	WrittenAt int64  `json:"written_at"` // unix nanoseconds
}

// FileBackend stores one JSON file per key under dir.
type FileBackend struct {
	dir string
}

var _ Backend = (*FileBackend)(nil)

// NewFileBackend returns a backend rooted at dir. The directory is created on
// the first write.
func NewFileBackend(dir string) *FileBackend {
	return &FileBackend{dir: dir}
}

// Dir returns the backing directory.
func (b *FileBackend) Dir() string {
	return b.dir
}

func (b *FileBackend) path(key string) string {
	return filepath.Join(b.dir, SanitizeKey(key)+fileExt)
}

func (b *FileBackend) Read(_ context.Context, key string) (Entry, error) {
	data, err := os.ReadFile(b.path(key))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return Entry{}, fmt.Errorf("read %q: %w", key, ErrNotFound)
		}
		return Entry{}, fmt.Errorf("read %q: %w", key, err)
	}

	var rec fileRecord
	if err := json.Unmarshal(data, &rec); err != nil {
		return Entry{}, fmt.Errorf("decode %q: %w", key, err)
	}

	return Entry{Key: key, Value: rec.Value, WriteTime: time.Unix(0, rec.WrittenAt)}, nil
}

// Write replaces the entry atomically: the record goes to a temp file in the
// same directory which is then renamed over the target.
func (b *FileBackend) Write(_ context.Context, e Entry) error {
	if err := os.MkdirAll(b.dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir: %w", err)
	}

	data, err := json.Marshal(fileRecord{Key: e.Key, Value: e.Value, WrittenAt: e.WriteTime.UnixNano()})
	if err != nil {
		return fmt.Errorf("encode %q: %w", e.Key, err)
	}

	target := b.path(e.Key)
	tmp, err := os.CreateTemp(b.dir, filepath.Base(target)+".tmp*")
	if err != nil {
		return fmt.Errorf("write %q: %w", e.Key, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", e.Key, err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", e.Key, err)
	}

	if err := os.Rename(tmpName, target); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("write %q: %w", e.Key, err)
	}
	return nil
}

func (b *FileBackend) Delete(_ context.Context, key string) error {
	if err := os.Remove(b.path(key)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (b *FileBackend) DeletePrefix(_ context.Context, prefix string) error {
	names, err := b.names()
	if err != nil {
		return err
	}

	want := SanitizeKey(prefix)
	var errs []error
	for _, name := range names {
		if !strings.HasPrefix(name, want) {
			continue
		}
		if err := os.Remove(filepath.Join(b.dir, name+fileExt)); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (b *FileBackend) Keys(_ context.Context) ([]string, error) {
	names, err := b.names()
	if err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(names))
	for _, name := range names {
		key, err := UnsanitizeKey(name)
		if err != nil {
			continue
		}
		keys = append(keys, key)
	}
	return keys, nil
}

// names lists sanitized key names, skipping temp files and anything that
// is not an entry.
func (b *FileBackend) names() ([]string, error) {
	dirEntries, err := os.ReadDir(b.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("list cache dir: %w", err)
	}

	names := make([]string, 0, len(dirEntries))
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), fileExt) {
			continue
		}
		names = append(names, strings.TrimSuffix(de.Name(), fileExt))
	}
	return names, nil
}

func (b *FileBackend) Close() error { return nil }
