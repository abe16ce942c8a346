// Package collision provides a debug-only tracker that detects two
// distinct data-header blobs (different xxhash pre-hashes, see
// internal/hash) sharing the same wire md5 hash, reporting it as
// errs.ErrHashCollision. The schema cache and parser do not call it;
// they trust the md5 key alone.
package collision

import (
	"github.com/paulscherrerinstitute/bsread-go/errs"
)

// Tracker tracks md5 hash -> xxhash(data-header bytes) pairs.
type Tracker struct {
	preHashes map[string]uint64 // md5 hex hash -> xxhash of the data-header bytes last seen for it
}

// NewTracker creates a new collision tracker.
func NewTracker() *Tracker {
	return &Tracker{
		preHashes: make(map[string]uint64),
	}
}

// Track records the data-header bytes' pre-hash for the given md5 hash
// key. It returns errs.ErrHashCollision if the same md5 key was
// previously tracked with a different pre-hash, i.e. the wire hash no
// longer identifies a unique data-header.
func (t *Tracker) Track(mdHash string, preHash uint64) error {
	if existing, ok := t.preHashes[mdHash]; ok {
		if existing != preHash {
			return errs.ErrHashCollision
		}

		return nil
	}

	t.preHashes[mdHash] = preHash

	return nil
}

// Forget removes a tracked hash, used when the schema cache evicts the
// corresponding entry.
func (t *Tracker) Forget(mdHash string) {
	delete(t.preHashes, mdHash)
}

// Count returns the number of tracked hashes.
func (t *Tracker) Count() int {
	return len(t.preHashes)
}

// Reset clears all tracked hashes.
func (t *Tracker) Reset() {
	for k := range t.preHashes {
		delete(t.preHashes, k)
	}
}
