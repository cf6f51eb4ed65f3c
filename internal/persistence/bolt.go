package persistence

import (
	"context"
	"fmt"
	"time"

	"go.etcd.io/bbolt"
	"go.uber.org/zap"
)

const boltBucket = "stores"

// Bolt wraps an embedded BoltDB file holding one key per store.
type Bolt struct {
	DB *bbolt.DB
}

// OpenBolt opens (or creates) the database file and its bucket.
func OpenBolt(path string, logger *zap.Logger) (*Bolt, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt %s: %w", path, err)
	}
	err = db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create bolt bucket: %w", err)
	}
	logger.Info("opened bolt store", zap.String("path", path))
	return &Bolt{DB: db}, nil
}

// Close releases the database file lock.
func (b *Bolt) Close() {
	if b != nil && b.DB != nil {
		_ = b.DB.Close()
	}
}

// Ping runs an empty read transaction.
func (b *Bolt) Ping(_ context.Context) error {
	if b == nil || b.DB == nil {
		return fmt.Errorf("bolt store not opened")
	}
	return b.DB.View(func(*bbolt.Tx) error { return nil })
}

// Blob returns the document stored under name.
func (b *Bolt) Blob(name string) *BoltBlob {
	return &BoltBlob{db: b.DB, key: []byte(name)}
}

// BoltBlob is a single key inside the Bolt stores bucket.
type BoltBlob struct {
	db  *bbolt.DB
	key []byte
}

func (b *BoltBlob) Read(_ context.Context) ([]byte, error) {
	var data []byte
	err := b.db.View(func(tx *bbolt.Tx) error {
		bucket := tx.Bucket([]byte(boltBucket))
		if bucket == nil {
			return ErrBlobNotFound
		}
		v := bucket.Get(b.key)
		if v == nil {
			return ErrBlobNotFound
		}
		// v is only valid inside the transaction
		data = append([]byte(nil), v...)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

func (b *BoltBlob) Write(_ context.Context, data []byte) error {
	return b.db.Update(func(tx *bbolt.Tx) error {
		bucket, err := tx.CreateBucketIfNotExists([]byte(boltBucket))
		if err != nil {
			return err
		}
		return bucket.Put(b.key, data)
	})
}
