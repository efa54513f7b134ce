package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

const (
	RoleStudent = "student"
	RoleStaff   = "staff"
	RoleAdmin   = "admin"
)

// ValidRole reports whether role is one of the three portal roles.
func ValidRole(role string) bool {
	return role == RoleStudent || role == RoleStaff || role == RoleAdmin
}

type User struct {
	ID              string         `gorm:"type:varchar(64);primaryKey" json:"id"`
	Email           string         `gorm:"type:varchar(255);unique;not null" json:"email"`
	FirstName       string         `gorm:"type:varchar(100);not null" json:"first_name"`
	LastName        string         `gorm:"type:varchar(100);not null" json:"last_name"`
	Password        string         `gorm:"type:varchar(255)" json:"-"`
	Role            string         `gorm:"type:varchar(20);not null;default:'student'" json:"role"`
	DepartmentID    *string        `gorm:"type:varchar(64);index" json:"department_id,omitempty"`
	Department      *Department    `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	StudentID       *string        `gorm:"type:varchar(50)" json:"student_id,omitempty"`
	ProfileImageURL *string        `gorm:"type:varchar(255)" json:"profile_image_url,omitempty"`
	CreatedAt       time.Time      `json:"created_at"`
	UpdatedAt       time.Time      `json:"updated_at"`
	DeletedAt       gorm.DeletedAt `gorm:"index" json:"-"`
}

func (u *User) BeforeCreate(tx *gorm.DB) (err error) {
	if u.ID == "" {
		u.ID = uuid.New().String()
	}
	return
}

// FullName is used in notification and chat payloads.
func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
