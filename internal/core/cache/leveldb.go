package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/util"
)

const levelEntryPrefix = "e:"

// LevelBackend stores entries in a LevelDB database. A single Put replaces
// the whole record, which gives the per-entry atomicity the store needs.
//
// LevelDB holds an exclusive lock on its directory, so this backend only fits
// a single long-lived process such as the daemon.
type LevelBackend struct {
	db *leveldb.DB
}

var _ Backend = (*LevelBackend)(nil)

// OpenLevelBackend opens (or creates) the database at path.
func OpenLevelBackend(path string) (*LevelBackend, error) {
	db, err := leveldb.OpenFile(path, nil)
	if err != nil {
		return nil, fmt.Errorf("open leveldb %s: %w", path, err)
	}
	return &LevelBackend{db: db}, nil
}

func (b *LevelBackend) Read(_ context.Context, key string) (Entry, error) {
	data, err := b.db.Get([]byte(levelEntryPrefix+key), nil)
	if err != nil {
		if errors.Is(err, leveldb.ErrNotFound) {
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

func (b *LevelBackend) Write(_ context.Context, e Entry) error {
	data, err := json.Marshal(fileRecord{Key: e.Key, Value: e.Value, WrittenAt: e.WriteTime.UnixNano()})
	if err != nil {
		return fmt.Errorf("encode %q: %w", e.Key, err)
	}
	if err := b.db.Put([]byte(levelEntryPrefix+e.Key), data, nil); err != nil {
		return fmt.Errorf("write %q: %w", e.Key, err)
	}
	return nil
}

func (b *LevelBackend) Delete(_ context.Context, key string) error {
	if err := b.db.Delete([]byte(levelEntryPrefix+key), nil); err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

func (b *LevelBackend) DeletePrefix(_ context.Context, prefix string) error {
	it := b.db.NewIterator(util.BytesPrefix([]byte(levelEntryPrefix+prefix)), nil)
	defer it.Release()

	batch := new(leveldb.Batch)
	for it.Next() {
		batch.Delete(append([]byte(nil), it.Key()...))
	}
	if err := it.Error(); err != nil {
		return fmt.Errorf("scan prefix %q: %w", prefix, err)
	}
	if batch.Len() == 0 {
		return nil
	}
	if err := b.db.Write(batch, nil); err != nil {
		return fmt.Errorf("delete prefix %q: %w", prefix, err)
	}
	return nil
}

func (b *LevelBackend) Keys(_ context.Context) ([]string, error) {
	it := b.db.NewIterator(util.BytesPrefix([]byte(levelEntryPrefix)), nil)
	defer it.Release()

	var keys []string
	for it.Next() {
		keys = append(keys, string(it.Key()[len(levelEntryPrefix):]))
	}
	if err := it.Error(); err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

func (b *LevelBackend) Close() error {
	return b.db.Close()
}
