package postgres

import (
	"context"

	auditDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/audit"
	docDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/document"
	"github.com/rizkipratama/tierdocs/internal/document"
	"gorm.io/gorm"
)

const defaultPageSize = 50

// DocumentRepository implements the document.Repository interface using GORM
type DocumentRepository struct {
	db *gorm.DB
}

func NewDocumentRepository(db *gorm.DB) document.Repository {
	return &DocumentRepository{db: db}
}

func (r *DocumentRepository) Create(ctx context.Context, doc *document.Document) error {
	dm := document.ToDataModel(doc)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return err
	}
	doc.ID = dm.ID
	doc.CreatedAt = dm.CreatedAt
	doc.UpdatedAt = dm.UpdatedAt
	return nil
}

func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*document.Document, error) {
	var dm docDatamodel.Document
	err := r.db.WithContext(ctx).First(&dm, id).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, document.ErrNotFound
		}
		return nil, err
	}
	return document.FromDataModel(&dm), nil
}

func (r *DocumentRepository) ListAccessible(ctx context.Context, tierLevel int, filter document.ListFilter) ([]*document.Document, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultPageSize
	}

	query := r.db.WithContext(ctx).
		Where("is_active = ?", true).
		Where("minimum_tier_level >= ?", tierLevel)

	if filter.Category != "" {
		query = query.Where("category = ?", filter.Category)
	}

	var docs []*docDatamodel.Document
	err := query.
		Order("uploaded_at DESC").
		Limit(limit).
		Offset(filter.Offset).
		Find(&docs).Error
	if err != nil {
		return nil, err
	}
	return document.FromDataModelSlice(docs), nil
}

func (r *DocumentRepository) SoftDelete(ctx context.Context, id int64) error {
	result := r.db.WithContext(ctx).
		Model(&docDatamodel.Document{}).
		Where("id = ?", id).
		Where("is_active = ?", true).
		Update("is_active", false)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return document.ErrNotFound
	}
	return nil
}

// AccessLogRepository implements the document.AccessLogRepository interface
// using GORM. The table is append-only.
type AccessLogRepository struct {
	db *gorm.DB
}

func NewAccessLogRepository(db *gorm.DB) document.AccessLogRepository {
	return &AccessLogRepository{db: db}
}

func (r *AccessLogRepository) Append(ctx context.Context, access *document.Access) error {
	dm := document.AccessToDataModel(access)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		return err
	}
	access.ID = dm.ID
	return nil
}

func (r *AccessLogRepository) ListByDocument(ctx context.Context, documentID int64) ([]*document.Access, error) {
	var rows []*auditDatamodel.DocumentAccess
	err := r.db.WithContext(ctx).
		Where("document_id = ?", documentID).
		Order("accessed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return document.AccessFromDataModelSlice(rows), nil
}

func (r *AccessLogRepository) ListByUser(ctx context.Context, userID int64) ([]*document.Access, error) {
	var rows []*auditDatamodel.DocumentAccess
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("accessed_at DESC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	return document.AccessFromDataModelSlice(rows), nil
}
