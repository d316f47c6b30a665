package accesscode

import (
	"context"
	"errors"
	"time"

	apperrors "github.com/rizkipratama/tierdocs/internal"
	codeDatamodel "github.com/rizkipratama/tierdocs/internal/core/datamodel/accesscode"
)

// AccessCode is a time-boxed, use-limited invitation. It admits a new user
// at TargetTierLevel in Department, and is never deleted: exhausted and
// expired codes remain as part of the audit trail.
type AccessCode struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	IssuerID        int64      `json:"issuer_id"`
	TargetTierLevel int        `json:"target_tier_level"`
	Department      string     `json:"department"`
	MaxUses         int        `json:"max_uses"`
	CurrentUses     int        `json:"current_uses"`
	IsUsed          bool       `json:"is_used"`
	ExpiresAt       time.Time  `json:"expires_at"`
	UsedByUserID    *int64     `json:"used_by_user_id,omitempty"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

const (
	StateActive    = "active"
	StateExhausted = "exhausted"
	StateExpired   = "expired"
)

// Redeemable reports whether the code can still admit a user at the given
// instant. The check and the matching counter increment must not be split
// across store calls; redemption itself goes through an atomic store
// operation.
func (c *AccessCode) Redeemable(now time.Time) bool {
	return !c.IsUsed && c.CurrentUses < c.MaxUses && now.Before(c.ExpiresAt)
}

// State derives the lifecycle state. Exhausted wins over expired when both
// hold, since the budget ran out first from the issuer's perspective.
func (c *AccessCode) State(now time.Time) string {
	if c.IsUsed || c.CurrentUses >= c.MaxUses {
		return StateExhausted
	}
	if !now.Before(c.ExpiresAt) {
		return StateExpired
	}
	return StateActive
}

// Redemption records one successful use of a code.
type Redemption struct {
	ID           int64     `json:"id"`
	AccessCodeID int64     `json:"access_code_id"`
	UserID       int64     `json:"user_id"`
	RedeemedAt   time.Time `json:"redeemed_at"`
}

// ErrCodeCollision is returned by Create when the generated code string
// already exists, so the caller can retry with a fresh one.
var ErrCodeCollision = errors.New("access code already exists")

var ErrNotFound = apperrors.ErrInvalidAccessCode

// Repository is the durable access-code ledger. Implementations must enforce
// the unique-code constraint.
type Repository interface {
	Create(ctx context.Context, code *AccessCode) error
	GetByCode(ctx context.Context, code string) (*AccessCode, error)
	ListByIssuer(ctx context.Context, issuerID int64) ([]*AccessCode, error)
	ListRedemptions(ctx context.Context, accessCodeID int64) ([]*Redemption, error)
}

func ToDataModel(c *AccessCode) *codeDatamodel.AccessCode {
	return &codeDatamodel.AccessCode{
		ID:              c.ID,
		Code:            c.Code,
		IssuerID:        c.IssuerID,
		TargetTierLevel: c.TargetTierLevel,
		Department:      c.Department,
		MaxUses:         c.MaxUses,
		CurrentUses:     c.CurrentUses,
		IsUsed:          c.IsUsed,
		ExpiresAt:       c.ExpiresAt,
		UsedByUserID:    c.UsedByUserID,
		UsedAt:          c.UsedAt,
		CreatedAt:       c.CreatedAt,
	}
}

func FromDataModel(c *codeDatamodel.AccessCode) *AccessCode {
	return &AccessCode{
		ID:              c.ID,
		Code:            c.Code,
		IssuerID:        c.IssuerID,
		TargetTierLevel: c.TargetTierLevel,
		Department:      c.Department,
		MaxUses:         c.MaxUses,
		CurrentUses:     c.CurrentUses,
		IsUsed:          c.IsUsed,
		ExpiresAt:       c.ExpiresAt,
		UsedByUserID:    c.UsedByUserID,
		UsedAt:          c.UsedAt,
		CreatedAt:       c.CreatedAt,
	}
}

func FromDataModelSlice(codes []*codeDatamodel.AccessCode) []*AccessCode {
	result := make([]*AccessCode, len(codes))
	for i, c := range codes {
		result[i] = FromDataModel(c)
	}
	return result
}
