// Package document implements the tier-gated document catalog and its
// append-only access audit trail.
package document

import (
	"context"
	"time"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	auditDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/audit"
	docDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/document"
)

// Document is stored file metadata. MinimumTierLevel is the numeric ceiling
// on viewer tier: a user may view iff user.TierLevel <= MinimumTierLevel, so
// a smaller number gates more strictly. Contents live in the blob store under
// StorageKey; FileHash is the SHA-256 of the bytes at upload time.
type Document struct {
	ID               int64     `json:"id"`
	FileName         string    `json:"file_name"`
	StorageKey       string    `json:"-"`
	FileHash         string    `json:"file_hash"`
	FileSize         int64     `json:"file_size"`
	ContentType      string    `json:"content_type"`
	UploaderID       int64     `json:"uploader_id"`
	MinimumTierLevel int       `json:"minimum_tier_level"`
	Category         string    `json:"category"`
	Description      string    `json:"description"`
	IsConfidential   bool      `json:"is_confidential"`
	IsActive         bool      `json:"is_active"`
	UploadedAt       time.Time `json:"uploaded_at"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// VisibleTo reports whether a user at the given tier clears the document's
// minimum-tier gate. Inactive documents are visible to nobody.
func (d *Document) VisibleTo(tierLevel int) bool {
	return d.IsActive && tierLevel <= d.MinimumTierLevel
}

const (
	AccessTypeView     = "view"
	AccessTypeDownload = "download"
)

// Access is one audit fact: a user viewed or downloaded a document. Rows are
// append-only and never mutated.
type Access struct {
	ID         int64     `json:"id"`
	DocumentID int64     `json:"document_id"`
	UserID     int64     `json:"user_id"`
	AccessType string    `json:"access_type"`
	AccessedAt time.Time `json:"accessed_at"`
}

// ListFilter narrows and pages catalog listings. Zero values mean no filter
// and the store's default page size.
type ListFilter struct {
	Category string
	Limit    int
	Offset   int
}

var ErrNotFound = apperrors.ErrDocumentNotFound

// Repository is the durable document catalog. GetByID returns soft-deleted
// rows too; callers decide how inactive documents surface.
type Repository interface {
	Create(ctx context.Context, doc *Document) error
	GetByID(ctx context.Context, id int64) (*Document, error)
	ListAccessible(ctx context.Context, tierLevel int, filter ListFilter) ([]*Document, error)
	SoftDelete(ctx context.Context, id int64) error
}

// AccessLogRepository is the append-only audit trail.
type AccessLogRepository interface {
	Append(ctx context.Context, access *Access) error
	ListByDocument(ctx context.Context, documentID int64) ([]*Access, error)
	ListByUser(ctx context.Context, userID int64) ([]*Access, error)
}

func ToDataModel(d *Document) *docDatamodel.Document {
	return &docDatamodel.Document{
		ID:               d.ID,
		FileName:         d.FileName,
		StorageKey:       d.StorageKey,
		FileHash:         d.FileHash,
		FileSize:         d.FileSize,
		ContentType:      d.ContentType,
		UploaderID:       d.UploaderID,
		MinimumTierLevel: d.MinimumTierLevel,
		Category:         d.Category,
		Description:      d.Description,
		IsConfidential:   d.IsConfidential,
		IsActive:         d.IsActive,
		UploadedAt:       d.UploadedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func FromDataModel(d *docDatamodel.Document) *Document {
	return &Document{
		ID:               d.ID,
		FileName:         d.FileName,
		StorageKey:       d.StorageKey,
		FileHash:         d.FileHash,
		FileSize:         d.FileSize,
		ContentType:      d.ContentType,
		UploaderID:       d.UploaderID,
		MinimumTierLevel: d.MinimumTierLevel,
		Category:         d.Category,
		Description:      d.Description,
		IsConfidential:   d.IsConfidential,
		IsActive:         d.IsActive,
		UploadedAt:       d.UploadedAt,
		CreatedAt:        d.CreatedAt,
		UpdatedAt:        d.UpdatedAt,
	}
}

func FromDataModelSlice(docs []*docDatamodel.Document) []*Document {
	result := make([]*Document, len(docs))
	for i, d := range docs {
		result[i] = FromDataModel(d)
	}
	return result
}

func AccessToDataModel(a *Access) *auditDatamodel.DocumentAccess {
	return &auditDatamodel.DocumentAccess{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		UserID:     a.UserID,
		AccessType: a.AccessType,
		AccessedAt: a.AccessedAt,
	}
}

func AccessFromDataModel(a *auditDatamodel.DocumentAccess) *Access {
	return &Access{
		ID:         a.ID,
		DocumentID: a.DocumentID,
		UserID:     a.UserID,
		AccessType: a.AccessType,
		AccessedAt: a.AccessedAt,
	}
}

func AccessFromDataModelSlice(accesses []*auditDatamodel.DocumentAccess) []*Access {
	result := make([]*Access, len(accesses))
	for i, a := range accesses {
		result[i] = AccessFromDataModel(a)
	}
	return result
}
