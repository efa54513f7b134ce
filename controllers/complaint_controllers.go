package controllers

import (
	"errors"
	"net/http"
	"os"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/services"
	"github.com/campuscare/grievance-app/utils"
)

type ComplaintController struct {
	DB      *gorm.DB
	Service *services.ComplaintService
}

func NewComplaintController(db *gorm.DB, svc *services.ComplaintService) *ComplaintController {
	return &ComplaintController{DB: db, Service: svc}
}

// canAccessComplaint is the read gate: admin sees everything, staff
// their department, students their own complaints (assignees included).
func canAccessComplaint(user *models.User, complaint *models.Complaint) bool {
	if user.Role == models.RoleAdmin {
		return true
	}
	if complaint.UserID == user.ID {
		return true
	}
	if complaint.AssignedToID != nil && *complaint.AssignedToID == user.ID {
		return true
	}
	if user.Role == models.RoleStaff && user.DepartmentID != nil && complaint.DepartmentID != nil {
		return *user.DepartmentID == *complaint.DepartmentID
	}
	return false
}

// GetAllComplaints lists complaints scoped by the caller's role.
func (cc *ComplaintController) GetAllComplaints(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	query := cc.DB.
		Preload("User").
		Preload("Department").
		Preload("AssignedTo").
		Order("created_at DESC")

	switch user.Role {
	case models.RoleAdmin:
		// unscoped
	case models.RoleStaff:
		if user.DepartmentID == nil {
			utils.RespondJSON(c, http.StatusOK, "All complaints", []models.Complaint{})
			return
		}
		query = query.Where("department_id = ?", *user.DepartmentID)
	default:
		query = query.Where("user_id = ?", user.ID)
	}

	var complaints []models.Complaint
	if err := query.Find(&complaints).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All complaints", complaints)
}

// GetDepartmentComplaints is the staff work queue; admin may use it too.
func (cc *ComplaintController) GetDepartmentComplaints(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	query := cc.DB.
		Preload("User").
		Preload("Department").
		Preload("AssignedTo").
		Order("created_at DESC")

	switch {
	case user.Role == models.RoleAdmin:
		// unscoped
	case user.Role == models.RoleStaff && user.DepartmentID != nil:
		query = query.Where("department_id = ?", *user.DepartmentID)
	default:
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var complaints []models.Complaint
	if err := query.Find(&complaints).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Department complaints", complaints)
}

// GetComplaintByID returns the full joined record for authorized callers.
func (cc *ComplaintController) GetComplaintByID(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	complaint, err := cc.Service.GetComplaint(c.Param("complaint_id"))
	if err != nil {
		if errors.Is(err, services.ErrComplaintNotFound) {
			utils.RespondError(c, http.StatusNotFound, err)
		} else {
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	if !canAccessComplaint(user, complaint) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Complaint detail", complaint)
}

// CreateComplaint handles the multipart submission form: fields plus
// 0-5 attachments, each at most 10MB, images and documents only.
func (cc *ComplaintController) CreateComplaint(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	subject := c.PostForm("subject")
	description := c.PostForm("description")
	category := c.PostForm("category")
	if subject == "" || description == "" || category == "" {
		utils.RespondError(c, http.StatusBadRequest, errors.New("subject, description and category are required"))
		return
	}
	if !models.ValidCategory(category) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid category"))
		return
	}

	priority := c.PostForm("priority")
	if priority == "" {
		priority = models.PriorityMedium
	}
	if !models.ValidPriority(priority) {
		utils.RespondError(c, http.StatusBadRequest, errors.New("invalid priority"))
		return
	}

	var departmentID *string
	if id := c.PostForm("department_id"); id != "" {
		var dept models.Department
		if err := cc.DB.First(&dept, "id = ?", id).Error; err != nil {
			utils.RespondError(c, http.StatusBadRequest, errors.New("unknown department"))
			return
		}
		departmentID = &dept.ID
	}

	var location *string
	if loc := c.PostForm("location"); loc != "" {
		location = &loc
	}
	isAnonymous := c.PostForm("is_anonymous") == "true"

	form, err := c.MultipartForm()
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("error processing form"))
		return
	}
	files := form.File["attachments"]
	if err := utils.ValidateAttachments(files); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	if err := os.MkdirAll(utils.UploadDir(), 0755); err != nil {
		utils.RespondError(c, http.StatusInternalServerError, errors.New("error creating upload directory"))
		return
	}

	// Write the files, then the rows; on any failure remove what was
	// already written so nothing orphaned stays on disk.
	var saved []string
	cleanup := func() {
		for _, path := range saved {
			os.Remove(path)
		}
	}

	attachments := make([]services.AttachmentInput, 0, len(files))
	for _, file := range files {
		path := utils.AttachmentPath(file.Filename)
		if err := c.SaveUploadedFile(file, path); err != nil {
			cleanup()
			utils.RespondError(c, http.StatusInternalServerError, errors.New("error saving attachment"))
			return
		}
		saved = append(saved, path)
		attachments = append(attachments, services.AttachmentInput{
			FileName: file.Filename,
			FilePath: path,
			FileSize: file.Size,
			MimeType: file.Header.Get("Content-Type"),
		})
	}

	complaint, err := cc.Service.Submit(services.SubmitInput{
		UserID:       user.ID,
		Subject:      subject,
		Description:  description,
		Category:     category,
		Priority:     priority,
		DepartmentID: departmentID,
		Location:     location,
		IsAnonymous:  isAnonymous,
		Attachments:  attachments,
	})
	if err != nil {
		cleanup()
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Complaint %s submitted by %s", complaint.ID, user.ID)
	utils.RespondJSON(c, http.StatusCreated, "Complaint submitted", complaint)
}

// UpdateComplaintStatus walks the status machine. Staff may only touch
// complaints of their own department.
func (cc *ComplaintController) UpdateComplaintStatus(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var complaint models.Complaint
	if err := cc.DB.First(&complaint, "id = ?", c.Param("complaint_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("complaint not found"))
		return
	}

	canUpdate := user.Role == models.RoleAdmin ||
		(user.Role == models.RoleStaff && user.DepartmentID != nil &&
			complaint.DepartmentID != nil && *user.DepartmentID == *complaint.DepartmentID)
	if !canUpdate {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var body struct {
		Status  string `json:"status" binding:"required"`
		Comment string `json:"comment"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := cc.Service.UpdateStatus(complaint.ID, body.Status, user, body.Comment)
	if err != nil {
		var transitionErr *models.InvalidTransitionError
		switch {
		case errors.As(err, &transitionErr):
			utils.RespondError(c, http.StatusUnprocessableEntity, err)
		case errors.Is(err, services.ErrComplaintNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Complaint status updated", updated)
}

// AssignComplaint is admin only.
func (cc *ComplaintController) AssignComplaint(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	if user.Role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var body struct {
		AssignedToID string `json:"assigned_to_id" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updated, err := cc.Service.Assign(c.Param("complaint_id"), body.AssignedToID, user)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrComplaintNotFound):
			utils.RespondError(c, http.StatusNotFound, err)
		case errors.Is(err, services.ErrAssigneeNotFound):
			utils.RespondError(c, http.StatusBadRequest, err)
		default:
			utils.RespondError(c, http.StatusInternalServerError, err)
		}
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Complaint assigned", updated)
}

// GetComplaintMessages returns the room's chat history, oldest first.
func (cc *ComplaintController) GetComplaintMessages(c *gin.Context) {
	user, err := currentUser(c, cc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var complaint models.Complaint
	if err := cc.DB.First(&complaint, "id = ?", c.Param("complaint_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("complaint not found"))
		return
	}

	if !canAccessComplaint(user, &complaint) {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	var messages []models.ChatMessage
	if err := cc.DB.
		Preload("Sender").
		Where("complaint_id = ?", complaint.ID).
		Order("created_at asc").
		Find(&messages).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Complaint messages", messages)
}
