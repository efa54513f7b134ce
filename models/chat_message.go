package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Chat message types.
const (
	MessageTypeText        = "text"
	MessageTypeImage       = "image"
	MessageTypeFile        = "file"
	MessageTypeStaffUpdate = "staff_update"
)

// ChatMessage is one entry in a complaint's chat room. Editable by its
// sender (text + edited flag updated in place), append-only otherwise.
type ChatMessage struct {
	ID            string     `gorm:"type:varchar(64);primaryKey" json:"id"`
	ComplaintID   string     `gorm:"type:varchar(64);not null;index" json:"complaint_id"`
	SenderID      string     `gorm:"type:varchar(64);not null" json:"sender_id"`
	Sender        *User      `gorm:"foreignKey:SenderID" json:"sender,omitempty"`
	Message       string     `gorm:"type:text;not null" json:"message"`
	MessageType   string     `gorm:"type:varchar(20);not null;default:'text'" json:"message_type"`
	AttachmentURL *string    `gorm:"type:varchar(255)" json:"attachment_url,omitempty"`
	IsEdited      bool       `gorm:"default:false" json:"is_edited"`
	EditedAt      *time.Time `json:"edited_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

func (m *ChatMessage) BeforeCreate(tx *gorm.DB) (err error) {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	return
}
