package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ComplaintAttachment rows are written once during submission and never
// mutated afterwards.
type ComplaintAttachment struct {
	ID          string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	ComplaintID string    `gorm:"type:varchar(64);not null;index" json:"complaint_id"`
	FileName    string    `gorm:"type:varchar(255);not null" json:"file_name"`
	FilePath    string    `gorm:"type:varchar(255);not null" json:"file_path"`
	FileSize    int64     `json:"file_size"`
	MimeType    string    `gorm:"type:varchar(100)" json:"mime_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a *ComplaintAttachment) BeforeCreate(tx *gorm.DB) (err error) {
	if a.ID == "" {
		a.ID = uuid.New().String()
	}
	return
}
