// Package kvs provides a persistent key/value store designed for a single
// writer process, combining an in-memory offset index with an append-only
// JSON command log on disk. It is the public entry point for opening a
// store, setting, getting, and removing keys, and closing it down cleanly.
package kvs

import (
	"context"

	"github.com/kvsdb/kvs/internal/kvstore"
	"github.com/kvsdb/kvs/pkg/logging"
	"github.com/kvsdb/kvs/pkg/options"
	"go.uber.org/zap"
)

// Store is the primary entry point for interacting with the kvs store. It
// encapsulates the core engine responsible for reading and writing the
// canonical log, and the configuration options for this instance.
type Store struct {
	store   *kvstore.Store
	options *options.Options
}

// config holds the knobs Open accepts before the store is opened.
type config struct {
	opts   []options.OptionFunc
	logger *zap.SugaredLogger
}

// Option configures a Store at Open time.
type Option func(*config)

// WithDataDir sets the directory the store's canonical log lives in.
func WithDataDir(dir string) Option {
	return func(c *config) { c.opts = append(c.opts, options.WithDataDir(dir)) }
}

// WithCompactionThreshold sets how many stale offsets accumulate before a
// mutation triggers compaction.
func WithCompactionThreshold(n int) Option {
	return func(c *config) { c.opts = append(c.opts, options.WithCompactionThreshold(n)) }
}

// WithLogger supplies a pre-built logger instead of the default production
// one, e.g. pkg/logging.Noop() in tests.
func WithLogger(log *zap.SugaredLogger) Option {
	return func(c *config) { c.logger = log }
}

// Open opens (creating if necessary) a store rooted at the directory
// named by WithDataDir (default "."), replaying its canonical log to
// rebuild the in-memory index before returning.
func Open(ctx context.Context, service string, opts ...Option) (*Store, error) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	log := cfg.logger
	if log == nil {
		log = logging.New(service)
	}

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range cfg.opts {
		opt(&defaultOpts)
	}

	store, err := kvstore.New(ctx, &kvstore.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Store{store: store, options: &defaultOpts}, nil
}

// Set stores a key-value pair in the store. If the key already exists,
// its value is replaced. Once this call returns the record has been
// written to the log file; it is not fsynced.
func (s *Store) Set(key, value string) error {
	return s.store.Set(key, value)
}

// Get retrieves the value associated with key and reports whether key was
// found. A missing key is not an error: it returns ("", false, nil).
func (s *Store) Get(key string) (string, bool, error) {
	return s.store.Get(key)
}

// Remove deletes key from the store. It returns a *kvserr.KeyNotFoundError
// if key does not exist.
func (s *Store) Remove(key string) error {
	return s.store.Remove(key)
}

// Close gracefully shuts down the store, releasing its file handle and
// in-memory index. The store cannot be used after Close returns.
func (s *Store) Close() error {
	return s.store.Close()
}
