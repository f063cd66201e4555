package repl

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

const bucketHistory = "history"

// boltHistoryStore keeps entries in a bbolt bucket keyed by a big-endian
// sequence number, so cursor order is insertion order. Entries are written
// as they are added; Save has nothing left to do.
type boltHistoryStore struct {
	path       string
	maxEntries int
	db         *bolt.DB
}

func newBoltHistoryStore(path string, maxEntries int) *boltHistoryStore {
	return &boltHistoryStore{path: path, maxEntries: maxEntries}
}

func (s *boltHistoryStore) open() error {
	if s.db != nil {
		return nil
	}
	if dir := filepath.Dir(s.path); dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("failed to create history directory: %w", err)
		}
	}
	db, err := bolt.Open(s.path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return fmt.Errorf("failed to open history database: %w", err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(bucketHistory))
		return err
	})
	if err != nil {
		db.Close()
		return fmt.Errorf("failed to initialize history database: %w", err)
	}
	s.db = db
	return nil
}

// Load returns at most maxEntries of the newest entries, oldest first.
func (s *boltHistoryStore) Load() ([]string, error) {
	if err := s.open(); err != nil {
		return nil, err
	}
	var entries []string
	err := s.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket([]byte(bucketHistory)).Cursor()
		for k, v := c.Last(); k != nil; k, v = c.Prev() {
			if s.maxEntries > 0 && len(entries) >= s.maxEntries {
				break
			}
			entries = append(entries, string(v))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

func (s *boltHistoryStore) Add(entry string) error {
	if err := s.open(); err != nil {
		return err
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketHistory))
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		if err := b.Put(marshalSeq(seq), []byte(entry)); err != nil {
			return err
		}
		return s.trim(b)
	})
}

// trim deletes the oldest entries once the bucket holds more than
// maxEntries.
func (s *boltHistoryStore) trim(b *bolt.Bucket) error {
	if s.maxEntries <= 0 {
		return nil
	}
	var keys [][]byte
	c := b.Cursor()
	for k, _ := c.First(); k != nil; k, _ = c.Next() {
		keys = append(keys, append([]byte(nil), k...))
	}
	if len(keys) <= s.maxEntries {
		return nil
	}

	stale := keys[:len(keys)-s.maxEntries]
	for _, k := range stale {
		if err := b.Delete(k); err != nil {
			return err
		}
	}
	return nil
}

func (s *boltHistoryStore) Save([]string) error { return nil }

func (s *boltHistoryStore) Close() error {
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

func marshalSeq(seq uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, seq)
	return b
}
