// Package kvstore provides the core database engine that coordinates the
// store's three subsystems — the codec, the canonical log, and the
// in-memory index — plus the compaction pass that reclaims space once
// enough stale records have accumulated.
//
// Store generalizes a multi-segment storage engine down to the single
// canonical kvs.store file and an offset-index model: every Set, Get, and
// Remove is resolved here, not in the public façade.
package kvstore

import (
	"context"
	"errors"
	"io"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/kvsdb/kvs/internal/codec"
	"github.com/kvsdb/kvs/internal/compaction"
	"github.com/kvsdb/kvs/internal/index"
	"github.com/kvsdb/kvs/internal/logfile"
	"github.com/kvsdb/kvs/pkg/filesys"
	"github.com/kvsdb/kvs/pkg/kvserr"
	"github.com/kvsdb/kvs/pkg/options"
)

// ErrStoreClosed is returned when attempting to perform operations on a
// closed store.
var ErrStoreClosed = errors.New("operation failed: cannot access closed store")

// Store coordinates the index, the canonical log, and compaction to
// provide the durable key-value operations the public façade exposes.
// Every operation serializes on mu: the store's concurrency model is
// single-writer, single-reader-at-a-time, matching the reference
// implementation it was distilled from.
type Store struct {
	mu      sync.Mutex
	options *options.Options
	log     *zap.SugaredLogger
	idx     *index.Index
	lf      *logfile.File
	closed  atomic.Bool
}

// Config holds the parameters needed to initialize a new Store instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New opens the canonical log in config.Options.DataDir, replays it to
// rebuild the index, and returns a Store ready to serve operations.
func New(ctx context.Context, config *Config) (*Store, error) {
	if err := filesys.CreateDir(config.Options.DataDir, 0755, true); err != nil {
		return nil, kvserr.NewIOError(err, "mkdir", config.Options.DataDir)
	}

	lf, err := logfile.Open(config.Options.DataDir, config.Logger)
	if err != nil {
		return nil, err
	}

	idx, err := index.Build(ctx, lf.Reader(), &index.Config{Logger: config.Logger})
	if err != nil {
		lf.Close()
		return nil, err
	}

	return &Store{
		options: config.Options,
		log:     config.Logger,
		idx:     idx,
		lf:      lf,
	}, nil
}

// Set appends a record of value under key to the log (without fsync),
// overwriting any prior value. On
// success it triggers compaction if the accumulated stale-offset count has
// crossed the configured threshold.
func (s *Store) Set(key, value string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	encoded, err := codec.Encode(codec.NewSet(key, value))
	if err != nil {
		return err
	}

	offset, err := s.lf.Append(encoded)
	if err != nil {
		return err
	}

	s.idx.Set(key, offset)
	return s.maybeCompact()
}

// Get returns the value stored under key and whether key was found. A
// missing key is not an error: it reports ("", false, nil). The only
// errors Get returns come from a failing or corrupt read of an offset the
// index believes is live.
func (s *Store) Get(key string) (string, bool, error) {
	if s.closed.Load() {
		return "", false, ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	offset, ok := s.idx.Get(key)
	if !ok {
		return "", false, nil
	}

	cmd, _, err := codec.DecodeOne(s.lf.ReadAt(offset))
	if err != nil {
		if errors.Is(err, io.EOF) {
			return "", false, kvserr.NewCorruptError(err, offset)
		}
		return "", false, err
	}
	if cmd.Value == nil {
		return "", false, kvserr.NewCorruptError(codec.ErrMalformed, offset)
	}

	return *cmd.Value, true, nil
}

// Remove deletes key. It returns a *kvserr.KeyNotFoundError if key does not
// currently exist: removing an absent key fails loudly rather than
// silently succeeding.
func (s *Store) Remove(key string) error {
	if s.closed.Load() {
		return ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	oldOffset, existed := s.idx.Remove(key)
	if !existed {
		return kvserr.NewKeyNotFoundError(key)
	}

	encoded, err := codec.Encode(codec.NewRemove(key))
	if err != nil {
		return err
	}

	rmOffset, err := s.lf.Append(encoded)
	if err != nil {
		return err
	}

	// The overwritten SET and the RM record we just appended are both dead
	// weight from this point on: nothing will ever read either of them
	// again, so both are marked stale together.
	s.idx.MarkStale(oldOffset)
	s.idx.MarkStale(rmOffset)

	return s.maybeCompact()
}

// maybeCompact runs compaction if the stale-offset count has crossed the
// configured threshold. Callers must already hold s.mu.
func (s *Store) maybeCompact() error {
	if s.idx.StaleCount() < s.options.CompactionThreshold {
		return nil
	}

	replacement, err := compaction.Run(s.log, s.lf, s.idx)
	if err != nil {
		return err
	}

	s.lf = replacement
	return nil
}

// Close gracefully shuts down the store. No further writes are accepted
// afterward.
func (s *Store) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return ErrStoreClosed
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.idx.Close(); err != nil {
		s.log.Errorw("failed to close index", "error", err)
	}
	return s.lf.Close()
}
