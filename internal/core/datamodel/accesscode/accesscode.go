package accesscode

import "time"

type AccessCode struct {
	ID              int64      `gorm:"primaryKey"`
	Code            string     `gorm:"column:code;uniqueIndex;not null"`
	IssuerID        int64      `gorm:"column:issuer_id;not null"`
	TargetTierLevel int        `gorm:"column:target_tier_level;not null"`
	Department      string     `gorm:"column:department"`
	MaxUses         int        `gorm:"column:max_uses;default:1"`
	CurrentUses     int        `gorm:"column:current_uses;default:0"`
	IsUsed          bool       `gorm:"column:is_used;default:false"`
	ExpiresAt       time.Time  `gorm:"column:expires_at;not null"`
	UsedByUserID    *int64     `gorm:"column:used_by_user_id"`
	UsedAt          *time.Time `gorm:"column:used_at"`
	CreatedAt       time.Time  `gorm:"column:created_at;default:now()"`
	UpdatedAt       time.Time  `gorm:"column:updated_at;default:now()"`
}

func (AccessCode) TableName() string {
	return "access_codes"
}

// Redemption is one successful use of an access code. Multi-use codes
// produce one row per admitted user, so attribution survives past the
// informational last-consumer fields on the code itself.
type Redemption struct {
	ID           int64     `gorm:"primaryKey"`
	AccessCodeID int64     `gorm:"column:access_code_id;not null"`
	UserID       int64     `gorm:"column:user_id;not null"`
	RedeemedAt   time.Time `gorm:"column:redeemed_at;default:now()"`
}

func (Redemption) TableName() string {
	return "access_code_redemptions"
}
