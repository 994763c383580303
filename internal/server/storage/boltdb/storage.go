// Package boltdb is the embedded key/value backend built on bbolt.
package boltdb

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.etcd.io/bbolt"

	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/kvstore"
)

// Engine adapts a bbolt database to kvstore.Engine
type Engine struct {
	// mu защищает db: транзакции держат RLock, Close ждёт их завершения
	mu sync.RWMutex
	db *bbolt.DB
}

// New opens (or creates) the database at dbPath and returns a ready Store
func New(ctx context.Context, dbPath string, opts ...storage.Option) (*kvstore.Store, error) {
	engine, err := Open(ctx, dbPath)
	if err != nil {
		return nil, err
	}
	return kvstore.New(engine, opts...), nil
}

// Open opens the bbolt file and creates missing buckets
func Open(ctx context.Context, dbPath string) (*Engine, error) {
	// Открываем BoltDB; timeout чтобы не висеть на чужой блокировке файла
	db, err := bbolt.Open(dbPath, 0600, &bbolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open boltdb: %w", err)
	}

	e := &Engine{db: db}

	// Инициализируем buckets
	if err := e.initBuckets(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize buckets: %w", err)
	}

	return e, nil
}

// initBuckets создает необходимые buckets если они не существуют
func (e *Engine) initBuckets() error {
	return e.db.Update(func(tx *bbolt.Tx) error {
		for _, name := range kvstore.Buckets {
			if _, err := tx.CreateBucketIfNotExists([]byte(name)); err != nil {
				return fmt.Errorf("failed to create %s bucket: %w", name, err)
			}
		}
		return nil
	})
}

// View runs fn in a read-only transaction
func (e *Engine) View(ctx context.Context, fn func(tx kvstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return e.db.View(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

// Update runs fn in a read-write transaction, committed with fsync
func (e *Engine) Update(ctx context.Context, fn func(tx kvstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.db == nil {
		return bbolt.ErrDatabaseNotOpen
	}
	return e.db.Update(func(tx *bbolt.Tx) error {
		return fn(boltTx{tx: tx})
	})
}

// Ping verifies the database is open and the buckets are in place
func (e *Engine) Ping(ctx context.Context) error {
	return e.View(ctx, func(tx kvstore.Tx) error {
		return tx.ForEach(kvstore.BucketSettings, func(string, []byte) error { return nil })
	})
}

// Close closes the database connection
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.db == nil {
		return nil
	}
	err := e.db.Close()
	e.db = nil
	return err
}

var errBucketNotFound = errors.New("bucket not found")

type boltTx struct {
	tx *bbolt.Tx
}

func (t boltTx) bucket(name string) (*bbolt.Bucket, error) {
	b := t.tx.Bucket([]byte(name))
	if b == nil {
		return nil, fmt.Errorf("%s: %w", name, errBucketNotFound)
	}
	return b, nil
}

func (t boltTx) Get(bucket, key string) ([]byte, error) {
	b, err := t.bucket(bucket)
	if err != nil {
		return nil, err
	}
	return b.Get([]byte(key)), nil
}

func (t boltTx) Put(bucket, key string, value []byte) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Put([]byte(key), value)
}

func (t boltTx) Delete(bucket, key string) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.Delete([]byte(key))
}

func (t boltTx) ForEach(bucket string, fn func(key string, value []byte) error) error {
	b, err := t.bucket(bucket)
	if err != nil {
		return err
	}
	return b.ForEach(func(k, v []byte) error {
		return fn(string(k), v)
	})
}
