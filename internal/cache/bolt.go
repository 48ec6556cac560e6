package cache

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	pkgerrors "github.com/pkg/errors"
	"github.com/rs/zerolog"
	bolt "go.etcd.io/bbolt"
)

// BoltStore is a single-node persistent store. Expired entries read as absent
// and are deleted by a periodic sweep.
type BoltStore struct {
	db     *bolt.DB
	bucket []byte
	now    func() time.Time
	logger zerolog.Logger

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// OpenBolt initializes or opens a store at the given path
func OpenBolt(path, bucket string, sweepInterval time.Duration, logger zerolog.Logger) (*BoltStore, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, pkgerrors.WithMessage(err, "failed to open bolt database")
	}

	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucket))
		return err
	}); err != nil {
		_ = db.Close()
		return nil, pkgerrors.WithMessage(err, "failed to create bucket")
	}

	bs := &BoltStore{
		db:     db,
		bucket: []byte(bucket),
		now:    time.Now,
		logger: logger.With().Str("component", "bolt-store").Logger(),
		stop:   make(chan struct{}),
	}

	if sweepInterval > 0 {
		bs.wg.Add(1)
		go bs.sweepLoop(sweepInterval)
	}

	return bs, nil
}

// Get retrieves an unexpired entry
func (bs *BoltStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, storeError(OpGet, key, err)
	}

	var entry *Entry
	err := bs.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket(bs.bucket).Get([]byte(key))
		if v == nil {
			return nil
		}
		var e Entry
		if err := json.Unmarshal(v, &e); err != nil {
			return pkgerrors.WithMessage(err, "corrupt bolt entry")
		}
		entry = &e
		return nil
	})
	if err != nil {
		return nil, false, storeError(OpGet, key, err)
	}

	if entry == nil || entry.Expired(bs.now()) {
		return nil, false, nil
	}
	return entry, true, nil
}

// Put stores entry, replacing any previous value
func (bs *BoltStore) Put(ctx context.Context, entry *Entry) error {
	if err := ctx.Err(); err != nil {
		return storeError(OpPut, entry.CacheKey, err)
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return storeError(OpPut, entry.CacheKey, pkgerrors.WithMessage(err, "failed to encode entry"))
	}

	if err := bs.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bs.bucket).Put([]byte(entry.CacheKey), data)
	}); err != nil {
		return storeError(OpPut, entry.CacheKey, pkgerrors.WithMessage(err, "bolt put"))
	}

	return nil
}

// Close stops the sweeper and closes the database
func (bs *BoltStore) Close() error {
	bs.stopOnce.Do(func() { close(bs.stop) })
	bs.wg.Wait()
	return bs.db.Close()
}

func (bs *BoltStore) sweepLoop(interval time.Duration) {
	defer bs.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-bs.stop:
			return
		case <-ticker.C:
			bs.sweepOnce()
		}
	}
}

func (bs *BoltStore) sweepOnce() {
	removed, err := bs.sweep()
	if err != nil {
		bs.logger.Warn().Err(err).Msg("failed to sweep expired entries")
		return
	}
	if removed > 0 {
		bs.logger.Debug().Int("removed", removed).Msg("swept expired entries")
	}
}

// sweep deletes expired entries and returns how many were removed
func (bs *BoltStore) sweep() (int, error) {
	now := bs.now()
	removed := 0

	err := bs.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bs.bucket)
		var expired [][]byte
		if err := b.ForEach(func(k, v []byte) error {
			var e Entry
			if err := json.Unmarshal(v, &e); err != nil || e.Expired(now) {
				expired = append(expired, append([]byte(nil), k...))
			}
			return nil
		}); err != nil {
			return err
		}
		for _, k := range expired {
			if err := b.Delete(k); err != nil {
				return err
			}
		}
		removed = len(expired)
		return nil
	})

	return removed, err
}
