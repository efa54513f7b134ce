package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Notification types emitted by server-side side effects.
const (
	NotifComplaintSubmitted = "complaint_submitted"
	NotifStatusUpdated      = "status_updated"
	NotifComplaintAssigned  = "complaint_assigned"
	NotifChatMessage        = "chat_message"
	NotifAccountCreated     = "account_created"
	NotifProfileUpdated     = "profile_updated"
)

type Notification struct {
	ID                 string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID             string    `gorm:"type:varchar(64);not null;index" json:"user_id"`
	Title              string    `gorm:"type:varchar(255);not null" json:"title"`
	Message            string    `gorm:"type:text;not null" json:"message"`
	Type               string    `gorm:"type:varchar(50);not null" json:"type"`
	IsRead             bool      `gorm:"default:false" json:"is_read"`
	RelatedComplaintID *string   `gorm:"type:varchar(64)" json:"related_complaint_id,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

func (n *Notification) BeforeCreate(tx *gorm.DB) (err error) {
	if n.ID == "" {
		n.ID = uuid.New().String()
	}
	return
}
