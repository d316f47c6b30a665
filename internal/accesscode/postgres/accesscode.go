package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	codeDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/accesscode"
	"gorm.io/gorm"
)

// AccessCodeRepository implements the accesscode.Repository interface using GORM
type AccessCodeRepository struct {
	db *gorm.DB
}

func NewAccessCodeRepository(db *gorm.DB) accesscode.Repository {
	return &AccessCodeRepository{db: db}
}

func (r *AccessCodeRepository) Create(ctx context.Context, code *accesscode.AccessCode) error {
	dm := accesscode.ToDataModel(code)
	if err := r.db.WithContext(ctx).Create(dm).Error; err != nil {
		if isUniqueViolation(err) {
			return accesscode.ErrCodeCollision
		}
		return err
	}
	code.ID = dm.ID
	return nil
}

func (r *AccessCodeRepository) GetByCode(ctx context.Context, code string) (*accesscode.AccessCode, error) {
	var dm codeDatamodel.AccessCode
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&dm).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, accesscode.ErrNotFound
		}
		return nil, err
	}
	return accesscode.FromDataModel(&dm), nil
}

func (r *AccessCodeRepository) ListByIssuer(ctx context.Context, issuerID int64) ([]*accesscode.AccessCode, error) {
	var codes []*codeDatamodel.AccessCode
	err := r.db.WithContext(ctx).
		Where("issuer_id = ?", issuerID).
		Order("created_at DESC").
		Find(&codes).Error
	if err != nil {
		return nil, err
	}
	return accesscode.FromDataModelSlice(codes), nil
}

func (r *AccessCodeRepository) ListRedemptions(ctx context.Context, accessCodeID int64) ([]*accesscode.Redemption, error) {
	var rows []*codeDatamodel.Redemption
	err := r.db.WithContext(ctx).
		Where("access_code_id = ?", accessCodeID).
		Order("redeemed_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	result := make([]*accesscode.Redemption, len(rows))
	for i, row := range rows {
		result[i] = &accesscode.Redemption{
			ID:           row.ID,
			AccessCodeID: row.AccessCodeID,
			UserID:       row.UserID,
			RedeemedAt:   row.RedeemedAt,
		}
	}
	return result, nil
}

// isUniqueViolation detects a unique-constraint failure from postgres
// (SQLSTATE 23505) or sqlite, which the tests run against.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}
