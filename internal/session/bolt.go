package session

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.etcd.io/bbolt"
)

var sessionBucket = []byte("Session")

// BoltStore keeps the token in a bbolt file on the device, so it survives process restarts.
type BoltStore struct {
	db  *bbolt.DB
	key []byte
}

var _ Store = (*BoltStore)(nil)

// OpenBolt opens (or creates) the session file at path.
func OpenBolt(path, key string) (*BoltStore, error) {
	if key == "" {
		key = DefaultKey
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	db, err := bbolt.Open(path, 0600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(sessionBucket)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	return &BoltStore{db: db, key: []byte(key)}, nil
}

func (s *BoltStore) Save(_ context.Context, token string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return fmt.Errorf("session bucket not found")
		}
		return b.Put(s.key, []byte(token))
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *BoltStore) Load(_ context.Context) (string, bool, error) {
	var token string
	var ok bool
	err := s.db.View(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return fmt.Errorf("session bucket not found")
		}
		if v := b.Get(s.key); v != nil {
			token, ok = string(v), true
		}
		return nil
	})
	if err != nil {
		return "", false, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return token, ok, nil
}

func (s *BoltStore) Clear(_ context.Context) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		b := tx.Bucket(sessionBucket)
		if b == nil {
			return fmt.Errorf("session bucket not found")
		}
		return b.Delete(s.key)
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
