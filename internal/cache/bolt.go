package cache

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// BoltStorage stores each partition in its own bucket of a BoltDB file.
type BoltStorage struct {
	db *bolt.DB
}

// NewBoltStorage opens (or creates) the database at path.
func NewBoltStorage(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}
	return &BoltStorage{db: db}, nil
}

func (s *BoltStorage) Open(ctx context.Context, name string) (Partition, error) {
	if !IsKnownPartition(name) {
		return nil, ErrUnknownPartition
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(name))
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("open partition %s: %w", name, err)
	}
	return &boltPartition{db: s.db, bucket: []byte(name)}, nil
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

type boltPartition struct {
	db     *bolt.DB
	bucket []byte
}

func (p *boltPartition) Name() string { return string(p.bucket) }

func (p *boltPartition) Match(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}
	var data []byte
	err := p.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(p.bucket)
		if b == nil {
			return nil
		}
		// Values are only valid for the life of the transaction.
		if v := b.Get([]byte(key)); v != nil {
			data = make([]byte, len(v))
			copy(data, v)
		}
		return nil
	})
	if err != nil {
		return nil, false, convertBoltErr(err)
	}
	return data, data != nil, nil
}

func (p *boltPartition) Put(ctx context.Context, key string, payload []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	err := p.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists(p.bucket)
		if err != nil {
			return err
		}
		return b.Put([]byte(key), payload)
	})
	return convertBoltErr(err)
}

func convertBoltErr(err error) error {
	if errors.Is(err, bolt.ErrDatabaseNotOpen) {
		return ErrStorageClosed
	}
	return err
}
