package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	apperrors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/accesscode"
	"github.com/rizkipratama/tierdocs/internal/auth"
	codeDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/accesscode"
	userDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/user"
	"github.com/rizkipratama/tierdocs/internal/identity"
	"gorm.io/gorm"
)

// RegistrationStore implements auth.RegistrationStore over GORM. Both
// admission paths run inside a single database transaction so the user
// insert and the code accounting land or roll back together.
type RegistrationStore struct {
	db *gorm.DB
}

func NewRegistrationStore(db *gorm.DB) auth.RegistrationStore {
	return &RegistrationStore{db: db}
}

func (s *RegistrationStore) HasUsers(ctx context.Context) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&userDatamodel.User{}).Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (s *RegistrationStore) CreateRootUser(ctx context.Context, u *identity.User) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Re-check emptiness inside the transaction. Under read committed a
		// concurrent bootstrap can still slip past this count, so the
		// one_root_user partial unique index is what actually serializes the
		// single-root rule; a loser surfaces here as a constraint violation.
		var count int64
		if err := tx.Model(&userDatamodel.User{}).Count(&count).Error; err != nil {
			return err
		}
		if count > 0 {
			return apperrors.ErrAccessCodeRequired
		}

		dm := identity.ToDataModel(u)
		if err := tx.Create(dm).Error; err != nil {
			if isConstraintViolation(err, "one_root_user") {
				return apperrors.ErrAccessCodeRequired
			}
			if isUniqueViolation(err) {
				return apperrors.ErrDuplicateUsername
			}
			return err
		}
		u.ID = dm.ID
		return nil
	})
}

func (s *RegistrationStore) CreateUserWithCode(ctx context.Context, u *identity.User, code string) (*accesscode.AccessCode, error) {
	var redeemed *accesscode.AccessCode

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()

		// Conditional increment: the redeemability check and the counter
		// bump are one statement, so concurrent redeemers of the last use
		// cannot both pass.
		res := tx.Model(&codeDatamodel.AccessCode{}).
			Where("code = ? AND is_used = ? AND current_uses < max_uses AND expires_at > ?", code, false, now).
			Updates(map[string]interface{}{
				"current_uses": gorm.Expr("current_uses + 1"),
				"updated_at":   now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.ErrInvalidAccessCode
		}

		var dm codeDatamodel.AccessCode
		if err := tx.Where("code = ?", code).First(&dm).Error; err != nil {
			return err
		}

		u.TierLevel = dm.TargetTierLevel
		u.Department = dm.Department
		u.ParentUserID = &dm.IssuerID

		userDM := identity.ToDataModel(u)
		if err := tx.Create(userDM).Error; err != nil {
			if isUniqueViolation(err) {
				return apperrors.ErrDuplicateUsername
			}
			return err
		}
		u.ID = userDM.ID

		// Last-consumer fields are informational; the redemption row below
		// is the authoritative per-use record.
		updates := map[string]interface{}{
			"used_by_user_id": u.ID,
			"used_at":         now,
			"updated_at":      now,
		}
		if dm.CurrentUses >= dm.MaxUses {
			updates["is_used"] = true
			dm.IsUsed = true
		}
		if err := tx.Model(&codeDatamodel.AccessCode{}).Where("id = ?", dm.ID).Updates(updates).Error; err != nil {
			return err
		}

		redemption := &codeDatamodel.Redemption{
			AccessCodeID: dm.ID,
			UserID:       u.ID,
			RedeemedAt:   now,
		}
		if err := tx.Create(redemption).Error; err != nil {
			return err
		}

		dm.UsedByUserID = &u.ID
		dm.UsedAt = &now
		redeemed = accesscode.FromDataModel(&dm)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return redeemed, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// isConstraintViolation reports whether err is a unique violation on the
// named constraint or index.
func isConstraintViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && pgErr.ConstraintName == constraint
	}
	return strings.Contains(err.Error(), constraint)
}
