package controllers

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

// AdminController owns the user management surface. Every handler
// requires the caller's row to carry the admin role.
type AdminController struct {
	DB *gorm.DB
}

func NewAdminController(db *gorm.DB) *AdminController {
	return &AdminController{DB: db}
}

func (ac *AdminController) requireAdmin(c *gin.Context) (*models.User, bool) {
	user, err := currentUser(c, ac.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return nil, false
	}
	if user.Role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return nil, false
	}
	return user, true
}

type createUserRequest struct {
	Email        string  `json:"email" binding:"required,email"`
	FirstName    string  `json:"first_name" binding:"required"`
	LastName     string  `json:"last_name" binding:"required"`
	Password     string  `json:"password" binding:"required,min=8"`
	Role         string  `json:"role" binding:"required"`
	StudentID    *string `json:"student_id"`
	DepartmentID *string `json:"department_id"`
}

func (ac *AdminController) createUser(req createUserRequest) (*models.User, error) {
	if !models.ValidRole(req.Role) {
		return nil, fmt.Errorf("invalid role %q", req.Role)
	}
	if req.Role == models.RoleStudent && (req.StudentID == nil || *req.StudentID == "") {
		return nil, errors.New("student accounts require a student_id")
	}
	if req.Role == models.RoleStaff && (req.DepartmentID == nil || *req.DepartmentID == "") {
		return nil, errors.New("staff accounts require a department_id")
	}
	if req.DepartmentID != nil && *req.DepartmentID != "" {
		var dept models.Department
		if err := ac.DB.First(&dept, "id = ?", *req.DepartmentID).Error; err != nil {
			return nil, fmt.Errorf("unknown department %q", *req.DepartmentID)
		}
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	user := models.User{
		Email:        strings.ToLower(req.Email),
		FirstName:    req.FirstName,
		LastName:     req.LastName,
		Password:     string(hashed),
		Role:         req.Role,
		StudentID:    req.StudentID,
		DepartmentID: req.DepartmentID,
	}
	err = ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			return err
		}
		welcome := models.Notification{
			UserID:  user.ID,
			Title:   "Account Created",
			Message: fmt.Sprintf("Welcome %s, your account has been created.", user.FullName()),
			Type:    models.NotifAccountCreated,
		}
		return tx.Create(&welcome).Error
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetAllUsers lists every active user with their department.
func (ac *AdminController) GetAllUsers(c *gin.Context) {
	if _, ok := ac.requireAdmin(c); !ok {
		return
	}

	var users []models.User
	if err := ac.DB.Preload("Department").Order("created_at DESC").Find(&users).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All users", users)
}

// SearchUsers filters by role, department and a free-text term matched
// against name, email and student id.
func (ac *AdminController) SearchUsers(c *gin.Context) {
	if _, ok := ac.requireAdmin(c); !ok {
		return
	}

	query := ac.DB.Preload("Department").Order("created_at DESC")
	if role := c.Query("role"); role != "" {
		query = query.Where("role = ?", role)
	}
	if deptID := c.Query("department_id"); deptID != "" {
		query = query.Where("department_id = ?", deptID)
	}
	if term := c.Query("search"); term != "" {
		like := "%" + strings.ToLower(term) + "%"
		query = query.Where(
			"LOWER(first_name) LIKE ? OR LOWER(last_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(student_id) LIKE ?",
			like, like, like, like,
		)
	}

	var users []models.User
	if err := query.Find(&users).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "Users", users)
}

// CreateUser provisions a single account of any role.
func (ac *AdminController) CreateUser(c *gin.Context) {
	if _, ok := ac.requireAdmin(c); !ok {
		return
	}

	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	user, err := ac.createUser(req)
	if err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	utils.InfoLogger.Printf("User %s created with role %s", user.ID, user.Role)
	utils.RespondJSON(c, http.StatusCreated, "User created", user)
}

type bulkCreateRequest struct {
	Users []createUserRequest `json:"users" binding:"required,min=1"`
}

type bulkRowError struct {
	Index int    `json:"index"`
	Email string `json:"email"`
	Error string `json:"error"`
}

// BulkCreateUsers imports a batch of accounts. Rows fail independently;
// the response reports created users alongside per-row errors.
func (ac *AdminController) BulkCreateUsers(c *gin.Context) {
	if _, ok := ac.requireAdmin(c); !ok {
		return
	}

	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	created := make([]models.User, 0, len(req.Users))
	failed := make([]bulkRowError, 0)
	for i, row := range req.Users {
		user, err := ac.createUser(row)
		if err != nil {
			failed = append(failed, bulkRowError{Index: i, Email: row.Email, Error: err.Error()})
			continue
		}
		created = append(created, *user)
	}

	utils.InfoLogger.Printf("Bulk import: %d created, %d failed", len(created), len(failed))
	utils.RespondJSON(c, http.StatusOK, "Bulk import complete", gin.H{
		"created": created,
		"failed":  failed,
	})
}

// UpdateUser edits profile fields on behalf of a user.
func (ac *AdminController) UpdateUser(c *gin.Context) {
	if _, ok := ac.requireAdmin(c); !ok {
		return
	}

	var user models.User
	if err := ac.DB.First(&user, "id = ?", c.Param("user_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("user not found"))
		return
	}

	var req struct {
		FirstName    *string `json:"first_name"`
		LastName     *string `json:"last_name"`
		Email        *string `json:"email"`
		StudentID    *string `json:"student_id"`
		DepartmentID *string `json:"department_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	updates := map[string]interface{}{}
	if req.FirstName != nil {
		updates["first_name"] = *req.FirstName
	}
	if req.LastName != nil {
		updates["last_name"] = *req.LastName
	}
	if req.Email != nil {
		updates["email"] = strings.ToLower(*req.Email)
	}
	if req.StudentID != nil {
		updates["student_id"] = *req.StudentID
	}
	if req.DepartmentID != nil {
		if *req.DepartmentID == "" {
			updates["department_id"] = nil
		} else {
			var dept models.Department
			if err := ac.DB.First(&dept, "id = ?", *req.DepartmentID).Error; err != nil {
				utils.RespondError(c, http.StatusBadRequest, errors.New("unknown department"))
				return
			}
			updates["department_id"] = *req.DepartmentID
		}
	}
	if len(updates) == 0 {
		utils.RespondError(c, http.StatusBadRequest, errors.New("no fields to update"))
		return
	}

	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&user).Updates(updates).Error; err != nil {
			return err
		}
		note := models.Notification{
			UserID:  user.ID,
			Title:   "Profile Updated",
			Message: "Your profile was updated by an administrator.",
			Type:    models.NotifProfileUpdated,
		}
		return tx.Create(&note).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "User updated", user)
}

// UpdateUserRole changes a user's role, revalidating role constraints.
func (ac *AdminController) UpdateUserRole(c *gin.Context) {
	if _, ok := ac.requireAdmin(c); !ok {
		return
	}

	var user models.User
	if err := ac.DB.First(&user, "id = ?", c.Param("user_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("user not found"))
		return
	}

	var req struct {
		Role string `json:"role" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}
	if !models.ValidRole(req.Role) {
		utils.RespondError(c, http.StatusBadRequest, fmt.Errorf("invalid role %q", req.Role))
		return
	}
	if req.Role == models.RoleStaff && user.DepartmentID == nil {
		utils.RespondError(c, http.StatusBadRequest, errors.New("assign a department before promoting to staff"))
		return
	}

	if err := ac.DB.Model(&user).Update("role", req.Role).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("User %s role changed to %s", user.ID, req.Role)
	utils.RespondJSON(c, http.StatusOK, "User role updated", user)
}

// DeleteUser soft deletes the account and releases their assignments so
// complaint history stays intact. Admins cannot delete themselves.
func (ac *AdminController) DeleteUser(c *gin.Context) {
	admin, ok := ac.requireAdmin(c)
	if !ok {
		return
	}

	var user models.User
	if err := ac.DB.First(&user, "id = ?", c.Param("user_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("user not found"))
		return
	}
	if user.ID == admin.ID {
		utils.RespondError(c, http.StatusBadRequest, errors.New("cannot delete your own account"))
		return
	}

	err := ac.DB.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Complaint{}).
			Where("assigned_to_id = ?", user.ID).
			Update("assigned_to_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&user).Error
	})
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("User %s deleted by %s", user.ID, admin.ID)
	utils.RespondJSON(c, http.StatusOK, "User deleted", nil)
}
