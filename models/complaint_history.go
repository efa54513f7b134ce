package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// History actions recorded on a complaint's timeline.
const (
	ActionSubmitted     = "submitted"
	ActionStatusUpdated = "status_updated"
	ActionAssigned      = "assigned"
)

// ComplaintHistory is an append-only audit log: one row per status or
// assignment change, plus the initial submitted row.
type ComplaintHistory struct {
	ID            string    `gorm:"type:varchar(64);primaryKey" json:"id"`
	ComplaintID   string    `gorm:"type:varchar(64);not null;index" json:"complaint_id"`
	ActorID       string    `gorm:"type:varchar(64);not null" json:"actor_id"`
	Actor         *User     `gorm:"foreignKey:ActorID" json:"actor,omitempty"`
	Action        string    `gorm:"type:varchar(50);not null" json:"action"`
	Description   string    `gorm:"type:text" json:"description"`
	PreviousValue *string   `gorm:"type:text" json:"previous_value,omitempty"`
	NewValue      *string   `gorm:"type:text" json:"new_value,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
}

func (h *ComplaintHistory) BeforeCreate(tx *gorm.DB) (err error) {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	return
}
