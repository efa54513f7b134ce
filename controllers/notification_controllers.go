package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

type NotificationController struct {
	DB *gorm.DB
}

func NewNotificationController(db *gorm.DB) *NotificationController {
	return &NotificationController{DB: db}
}

// GetMyNotifications returns the caller's ten most recent notifications.
func (nc *NotificationController) GetMyNotifications(c *gin.Context) {
	user, err := currentUser(c, nc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var notifications []models.Notification
	if err := nc.DB.
		Where("user_id = ?", user.ID).
		Order("created_at DESC").
		Limit(10).
		Find(&notifications).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notifications", notifications)
}

// MarkNotificationRead flips is_read; only the recipient may do it.
func (nc *NotificationController) MarkNotificationRead(c *gin.Context) {
	user, err := currentUser(c, nc.DB)
	if err != nil {
		utils.RespondError(c, http.StatusUnauthorized, err)
		return
	}

	var notification models.Notification
	if err := nc.DB.First(&notification, "id = ?", c.Param("notification_id")).Error; err != nil {
		utils.RespondError(c, http.StatusNotFound, errors.New("notification not found"))
		return
	}
	if notification.UserID != user.ID {
		utils.RespondError(c, http.StatusForbidden, ErrNoPermission)
		return
	}

	if err := nc.DB.Model(&notification).Update("is_read", true).Error; err != nil {
		utils.RespondError(c, http.StatusInternalServerError, err)
		return
	}

	utils.RespondJSON(c, http.StatusOK, "Notification marked as read", notification)
}
