package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/chat"
	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

var (
	ErrComplaintNotFound = errors.New("complaint not found")
	ErrAssigneeNotFound  = errors.New("assignee not found")
)

// ComplaintService owns the multi-row complaint flows: submission,
// status transitions and assignment. Each flow runs inside one
// transaction so a failure cannot leave orphaned attachment, history or
// notification rows.
type ComplaintService struct {
	DB  *gorm.DB
	Hub *chat.Hub // nil disables room broadcasts (tests)
}

func NewComplaintService(db *gorm.DB, hub *chat.Hub) *ComplaintService {
	return &ComplaintService{DB: db, Hub: hub}
}

// AttachmentInput is the file metadata collected by the upload handler.
type AttachmentInput struct {
	FileName string
	FilePath string
	FileSize int64
	MimeType string
}

// SubmitInput carries a validated submission. Field validation happens
// at the controller boundary; the service only enforces row semantics.
type SubmitInput struct {
	UserID       string
	Subject      string
	Description  string
	Category     string
	Priority     string
	DepartmentID *string
	Location     *string
	IsAnonymous  bool
	Attachments  []AttachmentInput
}

// Submit inserts the complaint, its attachments, the initial history
// row and the department-head notification atomically, then returns the
// complaint with its relations loaded.
func (s *ComplaintService) Submit(in SubmitInput) (*models.Complaint, error) {
	complaint := models.Complaint{
		UserID:       in.UserID,
		DepartmentID: in.DepartmentID,
		Subject:      in.Subject,
		Description:  in.Description,
		Category:     in.Category,
		Priority:     in.Priority,
		Status:       models.StatusSubmitted,
		Location:     in.Location,
		IsAnonymous:  in.IsAnonymous,
	}

	err := s.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&complaint).Error; err != nil {
			return err
		}

		for _, att := range in.Attachments {
			row := models.ComplaintAttachment{
				ComplaintID: complaint.ID,
				FileName:    att.FileName,
				FilePath:    att.FilePath,
				FileSize:    att.FileSize,
				MimeType:    att.MimeType,
			}
			if err := tx.Create(&row).Error; err != nil {
				return err
			}
		}

		history := models.ComplaintHistory{
			ComplaintID: complaint.ID,
			ActorID:     in.UserID,
			Action:      models.ActionSubmitted,
			Description: "Complaint submitted successfully",
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		// Notify the department head, when the department has one.
		if complaint.DepartmentID != nil {
			var dept models.Department
			if err := tx.First(&dept, "id = ?", *complaint.DepartmentID).Error; err != nil {
				return err
			}
			if dept.HeadID != nil {
				notif := models.Notification{
					UserID:             *dept.HeadID,
					Title:              "New Complaint Received",
					Message:            fmt.Sprintf("A new complaint %q has been submitted to your department.", complaint.Subject),
					Type:               models.NotifComplaintSubmitted,
					RelatedComplaintID: &complaint.ID,
				}
				if err := tx.Create(&notif).Error; err != nil {
					return err
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.GetComplaint(complaint.ID)
}

// GetComplaint loads a complaint with user, department, assignee,
// attachments and history (newest history first).
func (s *ComplaintService) GetComplaint(id string) (*models.Complaint, error) {
	var complaint models.Complaint
	err := s.DB.
		Preload("User").
		Preload("Department").
		Preload("AssignedTo").
		Preload("Attachments").
		Preload("History", func(db *gorm.DB) *gorm.DB {
			return db.Order("created_at DESC")
		}).
		Preload("History.Actor").
		First(&complaint, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrComplaintNotFound
	}
	if err != nil {
		return nil, err
	}
	return &complaint, nil
}

// UpdateStatus walks the complaint's status under the transition table.
// resolvedAt is set on the resolved path and deliberately kept when a
// resolved complaint is reopened (it records the last resolution).
func (s *ComplaintService) UpdateStatus(id, newStatus string, actor *models.User, comment string) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.DB.First(&complaint, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrComplaintNotFound
		}
		return nil, err
	}

	if !models.ValidStatus(newStatus) {
		return nil, fmt.Errorf("unknown status %q", newStatus)
	}
	if !models.CanTransition(complaint.Status, newStatus) {
		return nil, &models.InvalidTransitionError{From: complaint.Status, To: newStatus}
	}

	previous := complaint.Status
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     newStatus,
			"updated_at": time.Now(),
		}
		if newStatus == models.StatusResolved {
			updates["resolved_at"] = time.Now()
		}
		if err := tx.Model(&complaint).Updates(updates).Error; err != nil {
			return err
		}

		prev, next := previous, newStatus
		history := models.ComplaintHistory{
			ComplaintID:   complaint.ID,
			ActorID:       actor.ID,
			Action:        models.ActionStatusUpdated,
			Description:   fmt.Sprintf("Status updated to %s", newStatus),
			PreviousValue: &prev,
			NewValue:      &next,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		if comment != "" {
			msg := models.ChatMessage{
				ComplaintID: complaint.ID,
				SenderID:    actor.ID,
				Message:     comment,
				MessageType: models.MessageTypeStaffUpdate,
			}
			if err := tx.Create(&msg).Error; err != nil {
				return err
			}
		}

		notif := models.Notification{
			UserID:             complaint.UserID,
			Title:              "Complaint Status Updated",
			Message:            fmt.Sprintf("Your complaint %q status has been updated to %s.", complaint.Subject, newStatus),
			Type:               models.NotifStatusUpdated,
			RelatedComplaintID: &complaint.ID,
		}
		return tx.Create(&notif).Error
	})
	if err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.BroadcastStatusUpdate(complaint.ID, newStatus, actor.FullName())
	}

	utils.InfoLogger.Printf("complaint %s: %s -> %s by %s", complaint.ID, previous, newStatus, actor.ID)
	return s.GetComplaint(complaint.ID)
}

// Assign sets the assignee. A freshly submitted complaint moves to
// assigned; a complaint already in flight keeps its status and only
// swaps the assignee.
func (s *ComplaintService) Assign(id, assigneeID string, actor *models.User) (*models.Complaint, error) {
	var complaint models.Complaint
	if err := s.DB.First(&complaint, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrComplaintNotFound
		}
		return nil, err
	}

	var assignee models.User
	if err := s.DB.First(&assignee, "id = ?", assigneeID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAssigneeNotFound
		}
		return nil, err
	}

	newStatus := complaint.Status
	if complaint.Status == models.StatusSubmitted {
		newStatus = models.StatusAssigned
	}

	previousAssignee := complaint.AssignedToID
	err := s.DB.Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"assigned_to_id": assigneeID,
			"status":         newStatus,
			"updated_at":     time.Now(),
		}
		if err := tx.Model(&complaint).Updates(updates).Error; err != nil {
			return err
		}

		history := models.ComplaintHistory{
			ComplaintID:   complaint.ID,
			ActorID:       actor.ID,
			Action:        models.ActionAssigned,
			Description:   "Complaint assigned to staff member",
			PreviousValue: previousAssignee,
			NewValue:      &assigneeID,
		}
		if err := tx.Create(&history).Error; err != nil {
			return err
		}

		assigneeNotif := models.Notification{
			UserID:             assigneeID,
			Title:              "Complaint Assigned",
			Message:            fmt.Sprintf("You have been assigned a new complaint: %q.", complaint.Subject),
			Type:               models.NotifComplaintAssigned,
			RelatedComplaintID: &complaint.ID,
		}
		if err := tx.Create(&assigneeNotif).Error; err != nil {
			return err
		}

		ownerNotif := models.Notification{
			UserID:             complaint.UserID,
			Title:              "Complaint Assigned",
			Message:            fmt.Sprintf("Your complaint %q has been assigned to a staff member.", complaint.Subject),
			Type:               models.NotifComplaintAssigned,
			RelatedComplaintID: &complaint.ID,
		}
		return tx.Create(&ownerNotif).Error
	})
	if err != nil {
		return nil, err
	}

	if s.Hub != nil {
		s.Hub.BroadcastStatusUpdate(complaint.ID, newStatus, actor.FullName())
	}

	return s.GetComplaint(complaint.ID)
}

// ComplaintStats aggregates the dashboard numbers, optionally scoped to
// one department. The average is computed over resolved complaints with
// a non-null resolvedAt; zero resolved complaints yield 0, not an error.
type ComplaintStats struct {
	Total             int64   `json:"total"`
	InProgress        int64   `json:"in_progress"`
	Resolved          int64   `json:"resolved"`
	AvgResolutionDays float64 `json:"avg_resolution_days"`
}

func (s *ComplaintService) Stats(departmentID *string) (*ComplaintStats, error) {
	scoped := func() *gorm.DB {
		q := s.DB.Model(&models.Complaint{})
		if departmentID != nil && *departmentID != "" {
			q = q.Where("department_id = ?", *departmentID)
		}
		return q
	}

	var stats ComplaintStats
	if err := scoped().Count(&stats.Total).Error; err != nil {
		return nil, err
	}

	openStatuses := []string{
		models.StatusSubmitted,
		models.StatusAssigned,
		models.StatusInProgress,
		models.StatusUnderReview,
	}
	if err := scoped().Where("status IN ?", openStatuses).Count(&stats.InProgress).Error; err != nil {
		return nil, err
	}

	if err := scoped().Where("status = ?", models.StatusResolved).Count(&stats.Resolved).Error; err != nil {
		return nil, err
	}

	// Mean resolution time in days, computed here rather than in SQL so
	// the same query runs on sqlite and postgres.
	var resolved []models.Complaint
	if err := scoped().
		Where("status = ? AND resolved_at IS NOT NULL", models.StatusResolved).
		Select("created_at", "resolved_at").
		Find(&resolved).Error; err != nil {
		return nil, err
	}
	if len(resolved) > 0 {
		var totalDays float64
		for _, cp := range resolved {
			totalDays += cp.ResolvedAt.Sub(cp.CreatedAt).Hours() / 24
		}
		stats.AvgResolutionDays = totalDays / float64(len(resolved))
	}

	return &stats, nil
}
