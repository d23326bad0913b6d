// Package digestcache provides an on-disk (path, size, mtime) -> digest
// cache so WorkingDirectory.Scan can skip re-hashing files that haven't
// changed since the last invocation. There is no equivalent in the
// original Python implementation (which always re-hashes); this is a
// supplemented optimization grounded on internal/db/leveldb.go's use of
// github.com/syndtr/goleveldb for FileSet storage, applied to Harmony's
// much smaller per-path record.
package digestcache

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	"github.com/syndtr/goleveldb/leveldb"
)

// Cache wraps a goleveldb database keyed by normalized path, storing the
// (size, mtime, digest) triple last observed for that path.
type Cache struct {
	db *leveldb.DB
}

// Open opens (creating if necessary) the leveldb database rooted at dir.
func Open(dir string) (*Cache, error) {
	db, err := leveldb.OpenFile(dir, nil)
	if err != nil {
		return nil, fmt.Errorf("opening digest cache at %s: %w", dir, err)
	}
	return &Cache{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Cache) Close() error {
	return c.db.Close()
}

// Lookup returns the cached digest for path if it was last recorded with
// the same size and mtime, and ok=false otherwise (cache miss, meaning
// the caller must re-hash).
func (c *Cache) Lookup(path string, size int64, mtime float64) (digest string, ok bool) {
	raw, err := c.db.Get([]byte(path), nil)
	if err != nil {
		return "", false
	}
	cachedSize, cachedMTime, cachedDigest, ok := decode(raw)
	if !ok || cachedSize != size || cachedMTime != mtime {
		return "", false
	}
	return cachedDigest, true
}

// Store records digest as the current observation for (path, size, mtime).
func (c *Cache) Store(path string, size int64, mtime float64, digest string) error {
	return c.db.Put([]byte(path), encode(size, mtime, digest), nil)
}

// Delete removes any cached entry for path, used when a file is found to
// no longer exist so a later recreation at the same path isn't served a
// stale digest by coincidence of matching size/mtime.
func (c *Cache) Delete(path string) error {
	err := c.db.Delete([]byte(path), nil)
	if errors.Is(err, leveldb.ErrNotFound) {
		return nil
	}
	return err
}

func encode(size int64, mtime float64, digest string) []byte {
	buf := make([]byte, 8+8+len(digest))
	binary.BigEndian.PutUint64(buf[0:8], uint64(size))
	binary.BigEndian.PutUint64(buf[8:16], math.Float64bits(mtime))
	copy(buf[16:], digest)
	return buf
}

func decode(raw []byte) (size int64, mtime float64, digest string, ok bool) {
	if len(raw) < 16 {
		return 0, 0, "", false
	}
	size = int64(binary.BigEndian.Uint64(raw[0:8]))
	mtime = math.Float64frombits(binary.BigEndian.Uint64(raw[8:16]))
	digest = string(raw[16:])
	return size, mtime, digest, true
}
