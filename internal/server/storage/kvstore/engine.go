// Package kvstore implements storage.Store on top of a transactional
// key/value Engine. The bbolt, flat-file and in-memory backends only provide
// an Engine; every invariant lives here.
package kvstore

import "context"

// Bucket names. Keys inside a bucket are entity ids.
const (
	BucketFolders   = "folders"
	BucketSnippets  = "snippets"
	BucketClipboard = "clipboard_items"
	BucketSettings  = "settings"
)

// Buckets lists every bucket an Engine must provide.
var Buckets = []string{BucketFolders, BucketSnippets, BucketClipboard, BucketSettings}

// Tx is a read or read-write view of the buckets. Values must not be
// retained after the transaction ends.
type Tx interface {
	// Get returns nil if the key is absent
	Get(bucket, key string) ([]byte, error)
	Put(bucket, key string, value []byte) error
	Delete(bucket, key string) error
	ForEach(bucket string, fn func(key string, value []byte) error) error
}

// Engine runs transactions. Update must make the writes durable before it
// returns nil; when fn fails nothing is written.
type Engine interface {
	View(ctx context.Context, fn func(tx Tx) error) error
	Update(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close() error
}
