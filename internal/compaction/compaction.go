// Package compaction rewrites the canonical log, dropping every record the
// index has marked stale and keeping everything else, then swaps the
// rewritten copy in atomically. It is grounded on amanlalwani007/godb's
// kv.Compact(): stream the old file through a decoder, write survivors to
// a fresh sibling file, fsync, rename over the original, reopen.
package compaction

import (
	"io"
	"os"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kvsdb/kvs/internal/codec"
	"github.com/kvsdb/kvs/internal/index"
	"github.com/kvsdb/kvs/internal/logfile"
	"github.com/kvsdb/kvs/pkg/kvserr"
)

// Run rewrites log, keeping only the records idx does not consider stale,
// repoints every surviving key at its new offset via idx.Remap, atomically
// replaces the canonical file, and clears idx's stale bookkeeping. It
// returns the replacement *logfile.File the store must switch to.
//
// The temporary file is named with a uuid rather than a fixed suffix so
// that a crash mid-compaction never collides with a file left behind by a
// previous attempt.
func Run(log *zap.SugaredLogger, lf *logfile.File, idx *index.Index) (*logfile.File, error) {
	tmpName := "kvs.store.compact." + uuid.NewString()
	tmpPath := lf.SiblingPath(tmpName)

	tmp, err := os.OpenFile(tmpPath, os.O_CREATE|os.O_RDWR|os.O_TRUNC, 0644)
	if err != nil {
		return nil, kvserr.NewIOError(err, "create", tmpPath)
	}

	var (
		written int64
		kept    int
		dropped int
	)

	dec := codec.NewStreamDecoder(lf.Reader())
	for {
		cmd, offset, err := dec.Next()
		if err == io.EOF {
			break
		}
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return nil, kvserr.NewCorruptError(err, offset)
		}

		if idx.IsStale(offset) {
			dropped++
			continue
		}

		// A live SET is the only record kind that ever survives
		// compaction: every RM record is itself always marked stale by
		// the time it's appended, and replay marks every RM and legacy
		// GET record stale, so reaching here implies
		// cmd.Type == codec.Set.
		encoded, err := codec.Encode(cmd)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return nil, err
		}

		n, err := tmp.Write(encoded)
		if err != nil {
			tmp.Close()
			os.Remove(tmpPath)
			return nil, kvserr.NewIOError(err, "write", tmpPath)
		}

		idx.Remap(cmd.Key, written)
		written += int64(n)
		kept++
	}

	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return nil, kvserr.NewIOError(err, "sync", tmpPath)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return nil, kvserr.NewIOError(err, "close", tmpPath)
	}

	replacement, err := lf.ReplaceWith(tmpPath, written)
	if err != nil {
		return nil, err
	}

	if err := syncDir(replacement.Dir()); err != nil {
		log.Errorw("directory fsync failed after compaction", "error", err)
	}

	idx.ClearStale()

	log.Infow("compaction complete", "kept", kept, "dropped", dropped, "bytes", written)
	return replacement, nil
}

// syncDir fsyncs the directory entry itself, so the rename performed by
// ReplaceWith survives a crash immediately after compaction completes.
func syncDir(dir string) error {
	d, err := os.Open(dir)
	if err != nil {
		return kvserr.NewIOError(err, "open", dir)
	}
	defer d.Close()

	if err := d.Sync(); err != nil {
		return kvserr.NewIOError(err, "sync", dir)
	}
	return nil
}
