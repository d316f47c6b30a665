package postgres

import (
	"context"
	"time"

	userDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/user"
	"github.com/rizkipratama/tierdocs/internal/identity"
	"gorm.io/gorm"
)

// UserRepository implements the identity.Repository interface using GORM
type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) identity.Repository {
	return &UserRepository{db: db}
}

func (r *UserRepository) GetByID(ctx context.Context, id int64) (*identity.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	return identity.FromDataModel(&u), nil
}

func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*identity.User, error) {
	var u userDatamodel.User
	err := r.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, identity.ErrNotFound
		}
		return nil, err
	}
	return identity.FromDataModel(&u), nil
}

// GetSubordinates returns active users whose parent is the given user.
func (r *UserRepository) GetSubordinates(ctx context.Context, parentUserID int64) ([]*identity.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("parent_user_id = ? AND is_active = ?", parentUserID, true).
		Order("tier_level ASC, name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return identity.FromDataModelSlice(users), nil
}

// GetFromTier returns active users at or below the given authority level
// (tier number >= tierLevel).
func (r *UserRepository) GetFromTier(ctx context.Context, tierLevel int) ([]*identity.User, error) {
	var users []*userDatamodel.User
	err := r.db.WithContext(ctx).
		Where("tier_level >= ? AND is_active = ?", tierLevel, true).
		Order("tier_level ASC, name ASC").
		Find(&users).Error
	if err != nil {
		return nil, err
	}
	return identity.FromDataModelSlice(users), nil
}

func (r *UserRepository) Deactivate(ctx context.Context, id int64) error {
	res := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"is_active":  false,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return identity.ErrNotFound
	}
	return nil
}
