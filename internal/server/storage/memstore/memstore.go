// Package memstore is the in-memory backend. Its Engine is also the base of
// the flat-file backend, which persists every committed snapshot.
package memstore

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"

	"github.com/iudanet/snipkeeper/internal/server/storage"
	"github.com/iudanet/snipkeeper/internal/server/storage/kvstore"
)

// ErrClosed is returned by every call after Close.
var ErrClosed = errors.New("memstore: closed")

// Data maps bucket name to key to encoded value.
type Data map[string]map[string][]byte

// CommitFunc persists next before it becomes visible. prev is the snapshot
// being replaced and dirty lists the buckets touched by the transaction.
// A non-nil error discards next; the implementation must then leave its
// durable state equal to prev.
type CommitFunc func(prev, next Data, dirty []string) error

// Engine is a copy-on-write map guarded by a RWMutex. Writers are serialised;
// readers always see the last committed snapshot.
type Engine struct {
	mu     sync.RWMutex
	data   Data
	commit CommitFunc
	closed bool
}

// New returns an empty in-memory Store.
func New(opts ...storage.Option) *kvstore.Store {
	return kvstore.New(NewEngine(nil, nil), opts...)
}

// NewEngine starts from seed (may be nil) and calls commit on every
// successful Update.
func NewEngine(seed Data, commit CommitFunc) *Engine {
	data := make(Data, len(kvstore.Buckets))
	for _, name := range kvstore.Buckets {
		data[name] = make(map[string][]byte)
	}
	for name, bucket := range seed {
		data[name] = maps.Clone(bucket)
	}
	return &Engine{data: data, commit: commit}
}

// View runs fn against the committed snapshot.
func (e *Engine) View(ctx context.Context, fn func(tx kvstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	return fn(&memTx{data: e.data, readOnly: true})
}

// Update runs fn against a private copy and swaps it in on success.
func (e *Engine) Update(ctx context.Context, fn func(tx kvstore.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.closed {
		return ErrClosed
	}

	tx := &memTx{data: e.data, dirty: make(map[string]bool)}
	if err := fn(tx); err != nil {
		return err
	}
	if len(tx.dirty) == 0 {
		return nil
	}

	if e.commit != nil {
		dirty := slices.Sorted(maps.Keys(tx.dirty))
		if err := e.commit(e.data, tx.data, dirty); err != nil {
			return err
		}
	}
	e.data = tx.data
	return nil
}

// Ping reports ErrClosed after Close.
func (e *Engine) Ping(ctx context.Context) error {
	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		return ErrClosed
	}
	return ctx.Err()
}

// Close drops the data.
func (e *Engine) Close() error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.closed = true
	e.data = nil
	return nil
}

var errReadOnly = errors.New("memstore: write in read-only transaction")

// memTx copies a bucket the first time it is written.
type memTx struct {
	data     Data
	dirty    map[string]bool
	readOnly bool
	cloned   bool
}

func (t *memTx) Get(bucket, key string) ([]byte, error) {
	return t.data[bucket][key], nil
}

func (t *memTx) writable(bucket string) (map[string][]byte, error) {
	if t.readOnly {
		return nil, errReadOnly
	}
	if !t.cloned {
		t.data = maps.Clone(t.data)
		t.cloned = true
	}
	if !t.dirty[bucket] {
		t.data[bucket] = maps.Clone(t.data[bucket])
		if t.data[bucket] == nil {
			t.data[bucket] = make(map[string][]byte)
		}
		t.dirty[bucket] = true
	}
	return t.data[bucket], nil
}

func (t *memTx) Put(bucket, key string, value []byte) error {
	b, err := t.writable(bucket)
	if err != nil {
		return err
	}
	b[key] = slices.Clone(value)
	return nil
}

func (t *memTx) Delete(bucket, key string) error {
	if _, ok := t.data[bucket][key]; !ok {
		return nil
	}
	b, err := t.writable(bucket)
	if err != nil {
		return err
	}
	delete(b, key)
	return nil
}

// ForEach visits keys in sorted order, like bbolt.
func (t *memTx) ForEach(bucket string, fn func(key string, value []byte) error) error {
	b := t.data[bucket]
	for _, key := range slices.Sorted(maps.Keys(b)) {
		if err := fn(key, b[key]); err != nil {
			return err
		}
	}
	return nil
}
