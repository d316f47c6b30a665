package storage

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sync"
)

// ErrBlobNotFound is returned by Get when no blob exists under the key.
var ErrBlobNotFound = errors.New("blob not found")

// MemoryStore keeps blobs in process memory. It backs tests and local
// development runs that have no object store around.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string][]byte
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string][]byte)}
}

func (s *MemoryStore) Put(ctx context.Context, key string, r io.Reader) (*PutResult, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}

	sum := sha256.Sum256(data)

	s.mu.Lock()
	s.blobs[key] = data
	s.mu.Unlock()

	return &PutResult{
		Hash: hex.EncodeToString(sum[:]),
		Size: int64(len(data)),
	}, nil
}

func (s *MemoryStore) Get(ctx context.Context, key string) (io.ReadCloser, error) {
	s.mu.RLock()
	data, exists := s.blobs[key]
	s.mu.RUnlock()

	if !exists {
		return nil, ErrBlobNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}

func (s *MemoryStore) Exists(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	_, exists := s.blobs[key]
	s.mu.RUnlock()
	return exists, nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.blobs, key)
	s.mu.Unlock()
	return nil
}
