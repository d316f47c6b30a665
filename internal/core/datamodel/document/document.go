package document

import "time"

type Document struct {
	ID               int64     `gorm:"primaryKey"`
	FileName         string    `gorm:"column:file_name;not null"`
	StorageKey       string    `gorm:"column:storage_key;not null"`
	FileHash         string    `gorm:"column:file_hash;index;not null"`
	FileSize         int64     `gorm:"column:file_size;not null"`
	ContentType      string    `gorm:"column:content_type"`
	UploaderID       int64     `gorm:"column:uploader_id;not null"`
	MinimumTierLevel int       `gorm:"column:minimum_tier_level;not null"`
	Category         string    `gorm:"column:category"`
	Description      string    `gorm:"column:description"`
	IsConfidential   bool      `gorm:"column:is_confidential;default:false"`
	IsActive         bool      `gorm:"column:is_active;default:true"`
	UploadedAt       time.Time `gorm:"column:uploaded_at"`
	CreatedAt        time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt        time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Document) TableName() string {
	return "documents"
}
