package document

import (
	"github.com/rizkipratama/tierdocs/internal/core/common/validation"
)

// UploadDTO carries the metadata of an upload. The content bytes travel
// separately as a stream.
type UploadDTO struct {
	FileName         string `json:"file_name" validate:"required"`
	ContentType      string `json:"content_type,omitempty"`
	MinimumTierLevel int    `json:"minimum_tier_level" validate:"required,min=1"`
	Category         string `json:"category,omitempty"`
	Description      string `json:"description,omitempty"`
	IsConfidential   bool   `json:"is_confidential,omitempty"`
}

func (dto UploadDTO) Validate() error {
	validator := validation.NewValidator()
	validator.Field("file_name", dto.FileName).Required().MaxLength(255)
	validator.Field("description", dto.Description).MaxLength(2000)
	if err := validator.Validate(); err != nil {
		return err
	}
	if err := validation.ValidateTierLevel("minimum_tier_level", dto.MinimumTierLevel); err != nil {
		return err
	}
	return nil
}
