// Package kv is the persistence port for the client engines: named text
// blobs with get/set/delete semantics and no transactional guarantees,
// mirroring the browser storage layer the engines were designed around.
package kv

import (
	"context"
	"errors"
)

// ErrNotFound reports that no blob is stored under the requested key.
var ErrNotFound = errors.New("kv: key not found")

// Store is the minimal blob storage surface an engine persists through.
type Store interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, key string) error
}
