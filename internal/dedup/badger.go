package dedup

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
)

const keyPrefix = "dedup/"

// Badger is a Store backed by badger, so claims survive restarts.
type Badger struct {
	db       *badger.DB
	window   time.Duration
	inMemory bool
}

// OpenBadger opens a badger database at path. An empty path keeps the data
// in memory.
func OpenBadger(path string, window time.Duration) (*Badger, error) {
	opts := badger.DefaultOptions(path).WithLogger(nil)
	if path == "" {
		opts = opts.WithInMemory(true)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("couldn't open dedup db: %w", err)
	}
	return &Badger{db: db, window: window, inMemory: path == ""}, nil
}

// TryClaim writes key with a TTL unless it is already present. A write
// conflict means a concurrent claim won, which counts as a duplicate.
func (b *Badger) TryClaim(ctx context.Context, key string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	k := []byte(keyPrefix + key)
	claimed := false
	err := b.db.Update(func(txn *badger.Txn) error {
		_, err := txn.Get(k)
		switch {
		case err == nil:
			return nil
		case !errors.Is(err, badger.ErrKeyNotFound):
			return err
		}
		if err := txn.SetEntry(badger.NewEntry(k, nil).WithTTL(b.window)); err != nil {
			return err
		}
		claimed = true
		return nil
	})
	if errors.Is(err, badger.ErrConflict) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("dedup claim: %w", err)
	}
	return claimed, nil
}

// Sweep runs one round of value log garbage collection. Expired keys are
// already invisible to TryClaim, so it always reports 0 removals.
func (b *Badger) Sweep() int {
	if b.inMemory {
		return 0
	}
	_ = b.db.RunValueLogGC(0.5) // ErrNoRewrite when nothing to reclaim
	return 0
}

// Close closes the underlying database.
func (b *Badger) Close() error {
	return b.db.Close()
}
