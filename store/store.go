// Package store is the append-only transcription history, kept in badger
// with msgpack-encoded values.
package store

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"sync"
	"time"

	badger "github.com/dgraph-io/badger/v4"
	"github.com/vmihailenco/msgpack/v5"

	"voxpaste/log"
)

var ErrClosed = errors.New("store: closed")

var (
	recordPrefix = []byte("rec/")
	seqKey       = []byte("meta/seq")
)

// Record is one completed transcription. Records are never updated.
type Record struct {
	ID        string    `msgpack:"id"`
	Timestamp string    `msgpack:"timestamp"` // ISO-8601, when the recording stopped
	AudioRef  *string   `msgpack:"audio_ref"`
	Text      string    `msgpack:"text"`
	Summary   *string   `msgpack:"summary"`
	Duration  float64   `msgpack:"duration"` // seconds of captured audio
	CreatedAt time.Time `msgpack:"created_at"`
}

type Store struct {
	mu     sync.Mutex
	db     *badger.DB
	seq    *badger.Sequence
	closed bool
}

// Open opens (or creates) the database in dir.
func Open(dir string) (*Store, error) {
	return open(badger.DefaultOptions(dir))
}

// OpenInMemory is a real badger engine without disk persistence.
func OpenInMemory() (*Store, error) {
	return open(badger.DefaultOptions("").WithInMemory(true))
}

func open(opts badger.Options) (*Store, error) {
	db, err := badger.Open(opts.WithLogger(log.Badger{}))
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	seq, err := db.GetSequence(seqKey, 100)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open sequence: %w", err)
	}
	return &Store{db: db, seq: seq}, nil
}

func recordKey(n uint64) []byte {
	k := make([]byte, len(recordPrefix)+8)
	copy(k, recordPrefix)
	binary.BigEndian.PutUint64(k[len(recordPrefix):], n)
	return k
}

// Append stores r under the next sequence number. CreatedAt is filled in
// when zero.
func (s *Store) Append(_ context.Context, r Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return ErrClosed
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}

	n, err := s.seq.Next()
	if err != nil {
		return fmt.Errorf("next sequence: %w", err)
	}
	val, err := msgpack.Marshal(&r)
	if err != nil {
		return fmt.Errorf("encode record: %w", err)
	}
	return s.db.Update(func(txn *badger.Txn) error {
		return txn.Set(recordKey(n), val)
	})
}

// Recent returns up to n records, newest first.
func (s *Store) Recent(_ context.Context, n int) ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, ErrClosed
	}

	var out []Record
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		opts.Reverse = true
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := append(append([]byte(nil), recordPrefix...), 0xFF)
		for it.Seek(seek); it.ValidForPrefix(recordPrefix) && len(out) < n; it.Next() {
			var r Record
			err := it.Item().Value(func(v []byte) error {
				return msgpack.Unmarshal(v, &r)
			})
			if err != nil {
				return fmt.Errorf("decode record: %w", err)
			}
			out = append(out, r)
		}
		return nil
	})
	return out, err
}

func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, ErrClosed
	}

	count := 0
	err := s.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = recordPrefix
		opts.PrefetchValues = false
		it := txn.NewIterator(opts)
		defer it.Close()
		for it.Rewind(); it.Valid(); it.Next() {
			count++
		}
		return nil
	})
	return count, err
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	if err := s.seq.Release(); err != nil {
		log.Warnf("release sequence: %v", err)
	}
	return s.db.Close()
}
