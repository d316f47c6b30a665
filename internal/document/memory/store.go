// Package memory holds the in-memory reference implementation of the
// document catalog and its access audit trail.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/rizkipratama/tierdocs/internal/document"
)

type Store struct {
	mu sync.Mutex

	docsByID map[int64]*document.Document
	accesses []*document.Access

	nextDocID    int64
	nextAccessID int64
}

func NewStore() *Store {
	return &Store{
		docsByID:     make(map[int64]*document.Document),
		nextDocID:    1,
		nextAccessID: 1,
	}
}

// ---- document.Repository ----

func (s *Store) Create(ctx context.Context, doc *document.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc.ID = s.nextDocID
	s.nextDocID++
	doc.CreatedAt = time.Now()
	doc.UpdatedAt = doc.CreatedAt

	copied := *doc
	s.docsByID[copied.ID] = &copied
	return nil
}

func (s *Store) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docsByID[id]
	if !exists {
		return nil, document.ErrNotFound
	}
	snapshot := *doc
	return &snapshot, nil
}

func (s *Store) ListAccessible(ctx context.Context, tierLevel int, filter document.ListFilter) ([]*document.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*document.Document
	for _, doc := range s.docsByID {
		if !doc.VisibleTo(tierLevel) {
			continue
		}
		if filter.Category != "" && doc.Category != filter.Category {
			continue
		}
		snapshot := *doc
		result = append(result, &snapshot)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].UploadedAt.After(result[j].UploadedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(result) {
			return nil, nil
		}
		result = result[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(result) {
		result = result[:filter.Limit]
	}
	return result, nil
}

func (s *Store) SoftDelete(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, exists := s.docsByID[id]
	if !exists || !doc.IsActive {
		return document.ErrNotFound
	}
	doc.IsActive = false
	doc.UpdatedAt = time.Now()
	return nil
}

// ---- document.AccessLogRepository ----

func (s *Store) Append(ctx context.Context, access *document.Access) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	access.ID = s.nextAccessID
	s.nextAccessID++

	copied := *access
	s.accesses = append(s.accesses, &copied)
	return nil
}

func (s *Store) ListByDocument(ctx context.Context, documentID int64) ([]*document.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*document.Access
	for _, a := range s.accesses {
		if a.DocumentID == documentID {
			snapshot := *a
			result = append(result, &snapshot)
		}
	}
	return result, nil
}

func (s *Store) ListByUser(ctx context.Context, userID int64) ([]*document.Access, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var result []*document.Access
	for _, a := range s.accesses {
		if a.UserID == userID {
			snapshot := *a
			result = append(result, &snapshot)
		}
	}
	return result, nil
}
