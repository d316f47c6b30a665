package audit

import "time"

// DocumentAccess rows are append-only. There is no update or delete path.
type DocumentAccess struct {
	ID         int64     `gorm:"primaryKey"`
	DocumentID int64     `gorm:"column:document_id;index;not null"`
	UserID     int64     `gorm:"column:user_id;index;not null"`
	AccessType string    `gorm:"column:access_type;not null"`
	AccessedAt time.Time `gorm:"column:accessed_at;default:now()"`
}

func (DocumentAccess) TableName() string {
	return "document_accesses"
}
