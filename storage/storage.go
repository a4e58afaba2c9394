// Package storage stores uploaded bytes by key. Drivers: local disk,
// Supabase Storage and MongoDB GridFS.
package storage

import (
	"context"
	"errors"
	"io"
)

var ErrObjectNotFound = errors.New("object not found")

type ObjectStorage interface {
	// Put lưu object và trả về URL public (có thể rỗng nếu driver không public).
	Put(ctx context.Context, key string, r io.Reader, size int64, contentType string) (string, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Delete(ctx context.Context, key string) error
}
