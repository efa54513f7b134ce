package models

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Complaint statuses. A complaint walks this set under the transition
// table below; any other pair is rejected before the row is touched.
const (
	StatusSubmitted   = "submitted"
	StatusAssigned    = "assigned"
	StatusInProgress  = "in_progress"
	StatusUnderReview = "under_review"
	StatusResolved    = "resolved"
	StatusClosed      = "closed"
	StatusRejected    = "rejected"
)

const (
	PriorityLow      = "low"
	PriorityMedium   = "medium"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

const (
	CategoryAcademic       = "academic_issues"
	CategoryInfrastructure = "infrastructure"
	CategoryHostel         = "hostel_accommodation"
	CategoryFood           = "food_services"
	CategoryIT             = "it_services"
	CategoryAdministration = "administration"
	CategoryOther          = "other"
)

// statusTransitions lists the legal (from, to) pairs. Forward skips are
// allowed (a submitted complaint may be resolved outright); closed and
// rejected are terminal; resolved may be reopened to in_progress.
var statusTransitions = map[string][]string{
	StatusSubmitted:   {StatusAssigned, StatusInProgress, StatusUnderReview, StatusResolved, StatusRejected, StatusClosed},
	StatusAssigned:    {StatusInProgress, StatusUnderReview, StatusResolved, StatusRejected, StatusClosed},
	StatusInProgress:  {StatusUnderReview, StatusResolved, StatusRejected, StatusClosed},
	StatusUnderReview: {StatusInProgress, StatusResolved, StatusRejected, StatusClosed},
	StatusResolved:    {StatusClosed, StatusInProgress},
	StatusClosed:      {},
	StatusRejected:    {},
}

func ValidStatus(status string) bool {
	_, ok := statusTransitions[status]
	return ok
}

func ValidPriority(p string) bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityCritical:
		return true
	}
	return false
}

func ValidCategory(c string) bool {
	switch c {
	case CategoryAcademic, CategoryInfrastructure, CategoryHostel,
		CategoryFood, CategoryIT, CategoryAdministration, CategoryOther:
		return true
	}
	return false
}

// CanTransition reports whether a complaint in status from may move to to.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// InvalidTransitionError is returned when a status update names a pair
// not present in the transition table.
type InvalidTransitionError struct {
	From string
	To   string
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("illegal status transition: %s -> %s", e.From, e.To)
}

type Complaint struct {
	ID           string                `gorm:"type:varchar(64);primaryKey" json:"id"`
	UserID       string                `gorm:"type:varchar(64);not null;index" json:"user_id"`
	User         *User                 `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DepartmentID *string               `gorm:"type:varchar(64);index" json:"department_id,omitempty"`
	Department   *Department           `gorm:"foreignKey:DepartmentID" json:"department,omitempty"`
	AssignedToID *string               `gorm:"type:varchar(64);index" json:"assigned_to_id,omitempty"`
	AssignedTo   *User                 `gorm:"foreignKey:AssignedToID" json:"assigned_to,omitempty"`
	Subject      string                `gorm:"type:varchar(255);not null" json:"subject"`
	Description  string                `gorm:"type:text;not null" json:"description"`
	Category     string                `gorm:"type:varchar(50);not null" json:"category"`
	Priority     string                `gorm:"type:varchar(20);not null;default:'medium'" json:"priority"`
	Status       string                `gorm:"type:varchar(20);not null;default:'submitted'" json:"status"`
	Location     *string               `gorm:"type:varchar(255)" json:"location,omitempty"`
	IsAnonymous  bool                  `gorm:"default:false" json:"is_anonymous"`
	Attachments  []ComplaintAttachment `gorm:"foreignKey:ComplaintID" json:"attachments,omitempty"`
	History      []ComplaintHistory    `gorm:"foreignKey:ComplaintID" json:"history,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
	UpdatedAt    time.Time             `json:"updated_at"`
	ResolvedAt   *time.Time            `json:"resolved_at,omitempty"`
}

func (cp *Complaint) BeforeCreate(tx *gorm.DB) (err error) {
	if cp.ID == "" {
		cp.ID = uuid.New().String()
	}
	return
}
