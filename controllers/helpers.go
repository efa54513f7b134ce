package controllers

import (
	"errors"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
)

// ErrNoPermission is the access-denied error surfaced to clients.
var ErrNoPermission = &CustomError{"You do not have permission"}

type CustomError struct {
	Message string
}

func (e *CustomError) Error() string {
	return e.Message
}

// currentUser resolves the authenticated caller to their persisted row.
// The role used for authorization always comes from this row, never
// from anything the client sent.
func currentUser(c *gin.Context, db *gorm.DB) (*models.User, error) {
	userIDInterface, exists := c.Get("user_id")
	if !exists {
		return nil, errors.New("user id not found in context")
	}

	userID, ok := userIDInterface.(string)
	if !ok {
		return nil, errors.New("invalid user id type")
	}

	var user models.User
	if err := db.First(&user, "id = ?", userID).Error; err != nil {
		return nil, errors.New("user not found")
	}
	return &user, nil
}
