// Package index provides the in-memory hash table the store uses to go
// from a key straight to the byte offset of its value in the canonical
// log, without scanning the file. This is the core Bitcask principle:
// keep every key in memory, keep the disk out of the hot read path until
// the final positional read.
package index

import (
	"context"
	stdErrors "errors"
	"io"

	"github.com/kvsdb/kvs/internal/codec"
	"github.com/kvsdb/kvs/pkg/kvserr"
)

var ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")

// New creates an empty Index ready for concurrent use.
func New(config *Config) (*Index, error) {
	if config == nil || config.Logger == nil {
		return nil, stdErrors.New("index configuration is required")
	}

	return &Index{
		log:     config.Logger,
		entries: make(map[string]int64, 1024),
		stale:   make(map[int64]struct{}),
	}, nil
}

// Build replays every command in r from the beginning, reconstructing the
// key→offset mapping a crash or a fresh open leaves unknown. Any decode
// failure partway through the log is treated as corruption rather than a
// clean end of file, since a well-formed log only ever ends between
// records.
func Build(ctx context.Context, r io.Reader, config *Config) (*Index, error) {
	idx, err := New(config)
	if err != nil {
		return nil, err
	}

	dec := codec.NewStreamDecoder(r)
	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		cmd, offset, err := dec.Next()
		if stdErrors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, kvserr.NewCorruptError(err, offset)
		}

		switch cmd.Type {
		case codec.Set:
			idx.apply(cmd.Key, offset)
		case codec.Rm:
			idx.applyRemove(cmd.Key, offset)
		case codec.Get:
			// A legacy GET record never becomes a live entry; marking it
			// stale lets compaction drop it instead of copying it forward.
			idx.stale[offset] = struct{}{}
		}
	}

	idx.log.Infow("rebuilt index from log", "keys", len(idx.entries), "stale", len(idx.stale))
	return idx, nil
}

// apply is the replay-time equivalent of Set: it records offset for key,
// marking whatever offset previously lived there stale.
func (idx *Index) apply(key string, offset int64) {
	if old, ok := idx.entries[key]; ok {
		idx.stale[old] = struct{}{}
	}
	idx.entries[key] = offset
}

// applyRemove is the replay-time equivalent of Remove: it deletes key from
// the live map and marks both the offset the RM record itself occupies and
// the SET offset it superseded as stale.
func (idx *Index) applyRemove(key string, offset int64) {
	if old, ok := idx.entries[key]; ok {
		idx.stale[old] = struct{}{}
		delete(idx.entries, key)
	}
	idx.stale[offset] = struct{}{}
}

// Get returns the offset key's value is stored at, and whether key exists.
func (idx *Index) Get(key string) (int64, bool) {
	idx.mu.RLock()
	defer idx.mu.RUnlock()

	offset, ok := idx.entries[key]
	return offset, ok
}

// Set records that key's value now lives at offset. If key already had an
// offset, that old offset is returned along with true, and is marked
// stale — the caller does not need to call MarkStale itself for the
// overwritten SET.
func (idx *Index) Set(key string, offset int64) (oldOffset int64, hadOld bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	old, ok := idx.entries[key]
	if ok {
		idx.stale[old] = struct{}{}
	}
	idx.entries[key] = offset

	return old, ok
}

// Remove deletes key from the live mapping and returns the offset it used
// to point to, and whether it was present. Unlike Set, Remove does not
// mark the returned offset stale itself: the caller (internal/kvstore)
// must mark both this old SET offset and the offset of the RM record it
// is about to append, since both become dead weight together once the
// removal is durable.
func (idx *Index) Remove(key string) (oldOffset int64, existed bool) {
	idx.mu.Lock()
	defer idx.mu.Unlock()

	old, ok := idx.entries[key]
	if ok {
		delete(idx.entries, key)
	}
	return old, ok
}

// MarkStale records that the record at offset is no longer reachable from
// any live key and can be dropped the next time compaction runs.
func (idx *Index) MarkStale(offset int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stale[offset] = struct{}{}
}

// IsStale reports whether the record at offset has been superseded.
func (idx *Index) IsStale(offset int64) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.stale[offset]
	return ok
}

// StaleCount returns how many dead offsets have accumulated since the log
// was last compacted. The store compares this against its compaction
// threshold after every mutation.
func (idx *Index) StaleCount() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.stale)
}

// ClearStale discards the stale-offset bookkeeping. It must be called
// immediately after a successful compaction, once every stale record has
// actually been dropped from the log and can no longer be pointed at.
func (idx *Index) ClearStale() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.stale = make(map[int64]struct{})
}

// Remap overwrites key's live offset with newOffset without touching
// staleness bookkeeping. Compaction uses this to repoint every surviving
// key at its new position in the rewritten log, after which ClearStale
// drops the now-meaningless old offsets in one step.
func (idx *Index) Remap(key string, newOffset int64) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[key] = newOffset
}

// Len returns the number of live keys in the index.
func (idx *Index) Len() int {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return len(idx.entries)
}

// Close releases the index's memory. A second Close returns
// ErrIndexClosed; the other methods do not check whether the index has
// been closed.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}

	idx.log.Infow("closing index")

	idx.mu.Lock()
	defer idx.mu.Unlock()

	clear(idx.entries)
	idx.entries = nil
	clear(idx.stale)
	idx.stale = nil

	return nil
}
