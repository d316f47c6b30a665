package accesscode

import (
	"time"

	errors "github.com/rizkipratama/tierdocs/internal"
	"github.com/rizkipratama/tierdocs/internal/core/common/validation"
)

// GenerateCodeDTO is the request payload for minting an access code.
// MaxUses and ExpiryDays of zero mean "use the configured defaults".
type GenerateCodeDTO struct {
	TargetTierLevel int    `json:"target_tier_level" validate:"required,min=1"`
	Department      string `json:"department,omitempty"`
	MaxUses         int    `json:"max_uses,omitempty"`
	ExpiryDays      int    `json:"expiry_days,omitempty"`
}

func (dto GenerateCodeDTO) Validate() error {
	if err := validation.ValidateTierLevel("target_tier_level", dto.TargetTierLevel); err != nil {
		return err
	}
	if dto.MaxUses < 0 {
		return errors.NewValidationError("max uses cannot be negative", errors.ErrCodeInvalidMaxUses)
	}
	if dto.ExpiryDays < 0 {
		return errors.NewValidationError("expiry days cannot be negative", errors.ErrCodeInvalidExpiry)
	}
	return nil
}

// IssuedCodeDTO is the issuer-facing view of a minted code.
type IssuedCodeDTO struct {
	ID              int64      `json:"id"`
	Code            string     `json:"code"`
	TargetTierLevel int        `json:"target_tier_level"`
	Department      string     `json:"department"`
	MaxUses         int        `json:"max_uses"`
	CurrentUses     int        `json:"current_uses"`
	State           string     `json:"state"`
	ExpiresAt       time.Time  `json:"expires_at"`
	UsedByUserID    *int64     `json:"used_by_user_id,omitempty"`
	UsedAt          *time.Time `json:"used_at,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
}

func ToIssuedCodeDTO(c *AccessCode, now time.Time) IssuedCodeDTO {
	return IssuedCodeDTO{
		ID:              c.ID,
		Code:            c.Code,
		TargetTierLevel: c.TargetTierLevel,
		Department:      c.Department,
		MaxUses:         c.MaxUses,
		CurrentUses:     c.CurrentUses,
		State:           c.State(now),
		ExpiresAt:       c.ExpiresAt,
		UsedByUserID:    c.UsedByUserID,
		UsedAt:          c.UsedAt,
		CreatedAt:       c.CreatedAt,
	}
}
