package identity

import (
	"context"
	"time"

	errors "github.com/rizkipratama/tierdocs/internal"
	userDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/user"
)

// User is an organization member. TierLevel is an authority rank where a
// smaller number means more authority; the bootstrap user holds tier 1.
// ParentUserID points at the user whose access code admitted this one and is
// nil only for the bootstrap user.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	PasswordHash string    `json:"-"`
	Department   string    `json:"department"`
	TierLevel    int       `json:"tier_level"`
	ParentUserID *int64    `json:"parent_user_id,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

const RootTierLevel = 1

// HasAuthorityOver reports whether u ranks strictly above other.
func (u *User) HasAuthorityOver(other *User) bool {
	return other.TierLevel > u.TierLevel
}

// MeetsTier reports whether u satisfies a minimum-tier gate. The gate is a
// ceiling on the tier number: tier 2 passes a gate of 3, tier 5 does not.
func (u *User) MeetsTier(minimumTierLevel int) bool {
	return u.TierLevel <= minimumTierLevel
}

func (u *User) IsRoot() bool {
	return u.ParentUserID == nil
}

// Repository is the durable user store. Implementations must enforce the
// unique-username constraint and be safe for concurrent use.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	GetByUsername(ctx context.Context, username string) (*User, error)
	GetSubordinates(ctx context.Context, parentUserID int64) ([]*User, error)
	GetFromTier(ctx context.Context, tierLevel int) ([]*User, error)
	Deactivate(ctx context.Context, id int64) error
}

var ErrNotFound = errors.ErrUserNotFound

func ToDataModel(u *User) *userDatamodel.User {
	return &userDatamodel.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Department:   u.Department,
		TierLevel:    u.TierLevel,
		ParentUserID: u.ParentUserID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModel(u *userDatamodel.User) *User {
	return &User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		Name:         u.Name,
		PasswordHash: u.PasswordHash,
		Department:   u.Department,
		TierLevel:    u.TierLevel,
		ParentUserID: u.ParentUserID,
		IsActive:     u.IsActive,
		CreatedAt:    u.CreatedAt,
		UpdatedAt:    u.UpdatedAt,
	}
}

func FromDataModelSlice(users []*userDatamodel.User) []*User {
	result := make([]*User, len(users))
	for i, u := range users {
		result[i] = FromDataModel(u)
	}
	return result
}
