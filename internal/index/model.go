package index

import (
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Index is the in-memory hash table mapping each live key to the byte
// offset its most recent SET record starts at in the canonical log. It
// never holds values, only offsets — values are read back from disk on
// demand, keeping memory proportional to the key count rather than the
// data size.
//
// Alongside the live pointers, Index tracks which offsets are now stale:
// every SET that overwrote a previous key, every RM record ever
// appended, and every legacy GET record met during replay, leaves its old
// and/or own offset behind as dead weight that
// compaction will eventually reclaim. Index only counts and remembers
// these offsets; it has no opinion about when compaction should run.
type Index struct {
	mu      sync.RWMutex
	log     *zap.SugaredLogger
	entries map[string]int64
	stale   map[int64]struct{}
	closed  atomic.Bool
}

// Config encapsulates the configuration parameters required to initialize
// an Index.
type Config struct {
	Logger *zap.SugaredLogger
}
