package controllers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/chat"
	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

type ChatController struct {
	DB  *gorm.DB
	Hub *chat.Hub
}

func NewChatController(db *gorm.DB, hub *chat.Hub) *ChatController {
	return &ChatController{DB: db, Hub: hub}
}

// ServeWS upgrades the connection and hands it to the hub. Room
// membership is negotiated afterwards through join-complaint events.
func (ch *ChatController) ServeWS(c *gin.Context) {
	userID, exists := c.Get("user_id")
	if !exists {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}

	var user models.User
	if err := ch.DB.First(&user, "id = ?", userID).Error; err != nil {
		utils.RespondError(c, http.StatusUnauthorized, errors.New("unauthorized"))
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		utils.ErrorLogger.Printf("WebSocket upgrade failed: %v", err)
		return
	}

	client := chat.NewClient(ch.Hub, conn, user)
	utils.InfoLogger.Printf("WebSocket connected: user %s", user.ID)
	client.Run()
}
