package storage

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	bolt "go.etcd.io/bbolt"
)

var (
	eventBucket = []byte("relayed_events")

	errBucketMissing = errors.New("relayed events bucket missing")
)

const expiryValueBytes = 8

// boltStore implements a Store backed by BoltDB. Each key is an event ID and
// each value the big-endian unix second at which the entry expires.
type boltStore struct {
	db              *bolt.DB
	eventTTL        time.Duration
	cleanupInterval time.Duration
	now             func() time.Time

	mu          sync.Mutex
	nextCleanup time.Time
}

// openBolt initializes a BoltDB-backed Store.
func openBolt(path string, opts Options) (*boltStore, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create storage directory: %w", err)
		}
	}

	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bbolt db: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(eventBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("init bucket: %w", err)
	}

	store := &boltStore{
		db:              db,
		eventTTL:        opts.EventTTL,
		cleanupInterval: opts.CleanupInterval,
		now:             time.Now,
	}
	store.nextCleanup = store.now().Add(store.cleanupInterval)
	return store, nil
}

// Close closes the BoltDB store.
func (b *boltStore) Close() error {
	if b == nil || b.db == nil {
		return nil
	}
	return b.db.Close()
}

// Seen reports whether an event with the given ID was relayed and has not expired.
func (b *boltStore) Seen(id string) (bool, error) {
	if b == nil || b.db == nil {
		return false, nil
	}

	now := b.now()
	var seen bool
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(eventBucket)
		if bucket == nil {
			return errBucketMissing
		}
		expiry, ok := decodeExpiry(bucket.Get([]byte(id)))
		seen = ok && expiry.After(now)
		return nil
	})
	return seen, err
}

// Mark records an event ID as relayed for the configured TTL and prunes
// expired entries once per cleanup interval.
func (b *boltStore) Mark(id string) error {
	if b == nil || b.db == nil {
		return nil
	}

	now := b.now()
	prune := b.claimCleanup(now)

	return b.db.Update(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(eventBucket)
		if bucket == nil {
			return errBucketMissing
		}
		if prune {
			if err := pruneExpired(bucket, now); err != nil {
				return fmt.Errorf("prune expired events: %w", err)
			}
		}
		return bucket.Put([]byte(id), encodeExpiry(now.Add(b.eventTTL)))
	})
}

// Len returns the number of stored entries, expired or not.
func (b *boltStore) Len() (int, error) {
	var n int
	err := b.db.View(func(tx *bolt.Tx) error {
		bucket := tx.Bucket(eventBucket)
		if bucket == nil {
			return errBucketMissing
		}
		n = bucket.Stats().KeyN
		return nil
	})
	return n, err
}

func (b *boltStore) claimCleanup(now time.Time) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if now.Before(b.nextCleanup) {
		return false
	}
	b.nextCleanup = now.Add(b.cleanupInterval)
	return true
}

func pruneExpired(bucket *bolt.Bucket, now time.Time) error {
	cursor := bucket.Cursor()
	for k, v := cursor.First(); k != nil; {
		expiry, ok := decodeExpiry(v)
		if ok && expiry.After(now) {
			k, v = cursor.Next()
			continue
		}
		key := append([]byte(nil), k...)
		if err := cursor.Delete(); err != nil {
			return err
		}
		k, v = cursor.Seek(key)
	}
	return nil
}

func encodeExpiry(t time.Time) []byte {
	buf := make([]byte, expiryValueBytes)
	binary.BigEndian.PutUint64(buf, uint64(t.Unix()))
	return buf
}

func decodeExpiry(value []byte) (time.Time, bool) {
	if len(value) != expiryValueBytes {
		return time.Time{}, false
	}
	unix := int64(binary.BigEndian.Uint64(value))
	if unix <= 0 {
		return time.Time{}, false
	}
	return time.Unix(unix, 0), true
}
