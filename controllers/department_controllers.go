package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

type DepartmentController struct {
	DB *gorm.DB
}

func NewDepartmentController(db *gorm.DB) *DepartmentController {
	return &DepartmentController{DB: db}
}

// GetAllDepartments lists departments for any authenticated caller.
func (dc *DepartmentController) GetAllDepartments(c *gin.Context) {
	var departments []models.Department
	if err := dc.DB.Order("name asc").Find(&departments).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}
	utils.RespondJSON(c, http.StatusOK, "All departments", departments)
}

// CreateDepartment is admin only.
func (dc *DepartmentController) CreateDepartment(c *gin.Context) {
	user, err := currentUser(c, dc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}
	if user.Role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	type request struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		HeadID      *string `json:"head_id"`
		Email       *string `json:"email"`
		Phone       *string `json:"phone"`
	}
	var req request
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.RespondError(c, http.StatusBadRequest, err)
		return
	}

	dept := models.Department{
		Name:        req.Name,
		Description: req.Description,
		HeadID:      req.HeadID,
		Email:       req.Email,
		Phone:       req.Phone,
	}
	if err := dc.DB.Create(&dept).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.InfoLogger.Printf("Department created: %s", dept.Name)
	utils.RespondJSON(c, http.StatusCreated, "Department created", dept)
}
