// Package store provides bbolt-based persistence for the zcurate workspace.
// It holds the review session registry and the journal of buffer commits in a
// single embedded bbolt database file, whose file lock also keeps a second
// zcurate process out of the workspace.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/kilupskalvis/zcurate/internal/models"
)

// Bucket names used by the workspace store.
var (
	bucketKV       = []byte("kv")
	bucketSessions = []byte("sessions")
	bucketEvents   = []byte("events")
	bucketCounters = []byte("counters")
)

// Counter key names.
var (
	counterCommitCount = []byte("commit_count")
)

// lockTimeout bounds how long New waits for another process to release the database
const lockTimeout = 1 * time.Second

// Store represents the bbolt database store.
type Store struct {
	db *bolt.DB
}

// New opens or creates a bbolt database at the given path. It fails with a
// data access error when another process holds the database.
func New(dbPath string) (*Store, error) {
	dir := filepath.Dir(dbPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := bolt.Open(dbPath, 0600, &bolt.Options{Timeout: lockTimeout})
	if err != nil {
		if errors.Is(err, bolt.ErrTimeout) {
			return nil, models.DataAccessf(err, "workspace is locked by another zcurate process (%s)", dbPath)
		}
		return nil, models.DataAccessf(err, "open database")
	}

	return &Store{db: db}, nil
}

// Close closes the database and releases the workspace lock.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Initialize creates all required buckets.
func (s *Store) Initialize() error {
	return s.db.Update(func(tx *bolt.Tx) error {
		buckets := [][]byte{
			bucketKV,
			bucketSessions,
			bucketEvents,
			bucketCounters,
		}
		for _, name := range buckets {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("create bucket %s: %w", name, err)
			}
		}
		return nil
	})
}

// GetValue gets a value from the key-value bucket.
func (s *Store) GetValue(key string) (string, error) {
	var val string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return nil
		}
		v := b.Get([]byte(key))
		if v != nil {
			val = string(v)
		}
		return nil
	})
	return val, err
}

// SetValue sets a value in the key-value bucket.
func (s *Store) SetValue(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketKV)
		if b == nil {
			return fmt.Errorf("kv bucket not found")
		}
		return b.Put([]byte(key), []byte(value))
	})
}

// CommitCount returns the number of buffer commits ever journaled.
func (s *Store) CommitCount() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucketCounters)
		if b == nil {
			return nil
		}
		v, err := readCounter(b, counterCommitCount)
		n = v
		return err
	})
	return n, err
}

func readCounter(b *bolt.Bucket, key []byte) (int, error) {
	v := b.Get(key)
	if v == nil {
		return 0, nil
	}
	n, err := strconv.Atoi(string(v))
	if err != nil {
		return 0, fmt.Errorf("parse counter %s: %w", key, err)
	}
	return n, nil
}

func incrementCounter(b *bolt.Bucket, key []byte) error {
	n, err := readCounter(b, key)
	if err != nil {
		return err
	}
	return b.Put(key, []byte(strconv.Itoa(n+1)))
}
