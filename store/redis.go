package store

import (
	"context"
	"errors"
	"fmt"

	goredis "github.com/redis/go-redis/v9"
	"github.com/vmihailenco/msgpack/v5"
)

// Key layout:
//
//	mem:entry:<id>        msgpack-encoded Entry
//	mem:idx:source:<v>    set of entry IDs
//	mem:idx:command:<v>   set of entry IDs
//	mem:idx:session:<v>   set of entry IDs
//
// Index sets are maintained alongside the entry blob; Delete removes the
// entry from every index it appears in.
const (
	entryKeyPrefix = "mem:entry:"
	indexKeyPrefix = "mem:idx:"
)

// RedisStore is a Redis-backed Store using msgpack-encoded entry blobs and
// set-based metadata indexes.
type RedisStore struct {
	client *goredis.Client
}

// NewRedisStore creates a Redis-backed store from a connection URL.
// Format: redis://[:password@]host:port[/db]
func NewRedisStore(url string) (*RedisStore, error) {
	if url == "" {
		return nil, errors.New("redis store requires a URL")
	}

	opts, err := goredis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("redis store: invalid URL: %w", err)
	}

	return &RedisStore{client: goredis.NewClient(opts)}, nil
}

// NewRedisStoreFromClient wraps an existing client. The caller retains
// ownership of the client; Close is still safe to call once.
func NewRedisStoreFromClient(client *goredis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func entryKey(id string) string {
	return entryKeyPrefix + id
}

func indexKey(field, value string) string {
	return indexKeyPrefix + field + ":" + value
}

// indexKeys returns the index set keys for the filter's match fields.
func (f Filter) indexKeys() []string {
	var keys []string
	if f.Source != "" {
		keys = append(keys, indexKey(MetaSource, f.Source))
	}
	if f.Command != "" {
		keys = append(keys, indexKey(MetaCommand, f.Command))
	}
	if f.Session != "" {
		keys = append(keys, indexKey(MetaSession, f.Session))
	}
	return keys
}

// Put implements Store.
func (s *RedisStore) Put(ctx context.Context, entry Entry) error {
	if entry.ID == "" {
		return errors.New("redis store: entry ID must be non-empty")
	}

	blob, err := msgpack.Marshal(&entry)
	if err != nil {
		return fmt.Errorf("redis store: encode entry %s: %w", entry.ID, err)
	}

	pipe := s.client.TxPipeline()
	pipe.Set(ctx, entryKey(entry.ID), blob, 0)
	pipe.SAdd(ctx, indexKey(MetaSource, entry.Source), entry.ID)
	pipe.SAdd(ctx, indexKey(MetaCommand, entry.Command), entry.ID)
	pipe.SAdd(ctx, indexKey(MetaSession, entry.Session), entry.ID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis store: put entry %s: %w", entry.ID, err)
	}
	return nil
}

// matchIDs resolves the filter's match fields to a set of entry IDs via
// set intersection, then applies source exclusions.
func (s *RedisStore) matchIDs(ctx context.Context, filter Filter) ([]string, error) {
	if filter.Empty() {
		return nil, ErrEmptyFilter
	}

	ids, err := s.client.SInter(ctx, filter.indexKeys()...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: index intersection: %w", err)
	}

	if len(filter.ExcludeSources) == 0 || len(ids) == 0 {
		return ids, nil
	}

	excludeKeys := make([]string, 0, len(filter.ExcludeSources))
	for _, src := range filter.ExcludeSources {
		excludeKeys = append(excludeKeys, indexKey(MetaSource, src))
	}
	excluded, err := s.client.SUnion(ctx, excludeKeys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: exclusion union: %w", err)
	}

	excludedSet := make(map[string]struct{}, len(excluded))
	for _, id := range excluded {
		excludedSet[id] = struct{}{}
	}

	kept := ids[:0]
	for _, id := range ids {
		if _, ok := excludedSet[id]; !ok {
			kept = append(kept, id)
		}
	}
	return kept, nil
}

// Count implements Store.
func (s *RedisStore) Count(ctx context.Context, filter Filter) (int, error) {
	ids, err := s.matchIDs(ctx, filter)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// List implements Store.
func (s *RedisStore) List(ctx context.Context, filter Filter, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	ids, err := s.matchIDs(ctx, filter)
	if err != nil {
		return nil, err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}

	return s.fetch(ctx, ids)
}

// fetch loads and decodes entries by ID. IDs whose blob has disappeared
// (concurrent delete) are skipped.
func (s *RedisStore) fetch(ctx context.Context, ids []string) ([]Entry, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = entryKey(id)
	}

	blobs, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("redis store: fetch entries: %w", err)
	}

	entries := make([]Entry, 0, len(blobs))
	for i, blob := range blobs {
		if blob == nil {
			continue
		}
		raw, ok := blob.(string)
		if !ok {
			return nil, fmt.Errorf("redis store: unexpected value type for %s", keys[i])
		}
		var entry Entry
		if err := msgpack.Unmarshal([]byte(raw), &entry); err != nil {
			return nil, fmt.Errorf("redis store: decode entry %s: %w", ids[i], err)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Delete implements Store.
// Entry blobs and their index memberships are removed in one pipeline per
// batch; the count reflects entries actually present at deletion time.
func (s *RedisStore) Delete(ctx context.Context, filter Filter) (int, error) {
	ids, err := s.matchIDs(ctx, filter)
	if err != nil {
		return 0, err
	}

	entries, err := s.fetch(ctx, ids)
	if err != nil {
		return 0, err
	}
	if len(entries) == 0 {
		return 0, nil
	}

	pipe := s.client.TxPipeline()
	for i := range entries {
		e := &entries[i]
		pipe.Del(ctx, entryKey(e.ID))
		pipe.SRem(ctx, indexKey(MetaSource, e.Source), e.ID)
		pipe.SRem(ctx, indexKey(MetaCommand, e.Command), e.ID)
		pipe.SRem(ctx, indexKey(MetaSession, e.Session), e.ID)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("redis store: delete entries: %w", err)
	}

	return len(entries), nil
}

// Close implements Store.
func (s *RedisStore) Close() error {
	return s.client.Close()
}

// Verify RedisStore implements the Store interface.
var _ Store = (*RedisStore)(nil)
