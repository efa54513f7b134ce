package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/services"
	"github.com/campuscare/grievance-app/utils"
)

type AnalyticsController struct {
	DB      *gorm.DB
	Service *services.ComplaintService
}

func NewAnalyticsController(db *gorm.DB, svc *services.ComplaintService) *AnalyticsController {
	return &AnalyticsController{DB: db, Service: svc}
}

// GetStats returns the dashboard counters. Admins see global numbers and
// may narrow with ?department_id; staff are always scoped to their own
// department.
func (an *AnalyticsController) GetStats(c *gin.Context) {
	user, err := currentUser(c, an.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var departmentID *string
	switch user.Role {
	case models.RoleAdmin:
		if id := c.Query("department_id"); id != "" {
			departmentID = &id
		}
	case models.RoleStaff:
		if user.DepartmentID == nil {
			utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
			return
		}
		departmentID = user.DepartmentID
	default:
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	stats, err := an.Service.Stats(departmentID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Complaint stats", stats)
}

// GetDepartmentStats is the staff dashboard endpoint; it always scopes
// to the caller's department.
func (an *AnalyticsController) GetDepartmentStats(c *gin.Context) {
	user, err := currentUser(c, an.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	if user.Role != models.RoleStaff && user.Role != models.RoleAdmin {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}
	if user.DepartmentID == nil {
		utils.RespondError(c, http.StatusBadRequest, ErrNoPermission)
		return
	}

	stats, err := an.Service.Stats(user.DepartmentID)
	if err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Department stats", stats)
}
