// Package storage abstracts the blob store that holds document contents.
// Metadata lives in the relational store; only raw bytes go through here.
package storage

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"
)

// PutResult describes a stored blob. Hash is the hex-encoded SHA-256 of the
// content as it was written.
type PutResult struct {
	Hash string
	Size int64
}

// BlobStore is the content-addressable document store. Keys are opaque to
// callers and come from NewStorageKey.
type BlobStore interface {
	Put(ctx context.Context, key string, r io.Reader) (*PutResult, error)
	Get(ctx context.Context, key string) (io.ReadCloser, error)
	Exists(ctx context.Context, key string) (bool, error)
	Delete(ctx context.Context, key string) error
}

// NewStorageKey builds a date-bucketed object key so listings in the bucket
// stay navigable as the document count grows.
func NewStorageKey(now time.Time) string {
	return fmt.Sprintf("documents/%04d/%02d/%02d/%s",
		now.Year(), now.Month(), now.Day(), uuid.New().String())
}
