package chat

import (
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 4096
)

// clientEvent is the inbound frame shape.
type clientEvent struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// Client is one websocket connection bound to an authenticated user.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	user models.User

	send   chan Message
	mu     sync.Mutex
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, user models.User) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		user: user,
		send: make(chan Message, 256),
	}
}

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.writePump()
	go c.readPump()
}

// Close shuts the send channel, which stops the write pump and closes
// the connection. Idempotent; the client owns its channel and every
// send goes through trySend, which checks the closed flag under the
// same mutex.
func (c *Client) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.closed = true
	close(c.send)
}

// trySend queues msg for the write pump. It reports false when the
// client is closed or its buffer is full.
func (c *Client) trySend(msg Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) sendError(message string) {
	c.trySend(Message{Event: EventError, Data: map[string]string{"message": message}})
}

func (c *Client) readPump() {
	defer func() {
		c.hub.RemoveClient(c)
		c.Close()
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				utils.ErrorLogger.Printf("chat: read error for %s: %v", c.user.ID, err)
			}
			break
		}

		var evt clientEvent
		if err := json.Unmarshal(raw, &evt); err != nil {
			c.sendError("malformed event")
			continue
		}
		c.dispatch(evt)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteJSON(msg); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (c *Client) dispatch(evt clientEvent) {
	switch evt.Event {
	case EventJoinComplaint:
		c.handleJoin(evt.Data)
	case EventLeaveComplaint:
		c.handleLeave(evt.Data)
	case EventSendMessage:
		c.handleSend(evt.Data)
	case EventEditMessage:
		c.handleEdit(evt.Data)
	default:
		c.sendError("unknown event")
	}
}

func (c *Client) handleJoin(data json.RawMessage) {
	var payload struct {
		ComplaintID string `json:"complaint_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ComplaintID == "" {
		c.sendError("complaint_id is required")
		return
	}

	var complaint models.Complaint
	if err := c.hub.DB.First(&complaint, "id = ?", payload.ComplaintID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			c.sendError("complaint not found")
		} else {
			c.sendError("failed to join complaint")
		}
		return
	}

	if !canAccessRoom(&c.user, &complaint) {
		c.sendError("access denied")
		return
	}

	c.hub.JoinRoom(c, complaint.ID)
	utils.InfoLogger.Printf("chat: %s joined complaint %s", c.user.ID, complaint.ID)
}

func (c *Client) handleLeave(data json.RawMessage) {
	var payload struct {
		ComplaintID string `json:"complaint_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ComplaintID == "" {
		c.sendError("complaint_id is required")
		return
	}
	c.hub.LeaveRoom(c, payload.ComplaintID)
}

func (c *Client) handleSend(data json.RawMessage) {
	var payload struct {
		ComplaintID   string  `json:"complaint_id"`
		Message       string  `json:"message"`
		MessageType   string  `json:"message_type"`
		AttachmentURL *string `json:"attachment_url"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.ComplaintID == "" || payload.Message == "" {
		c.sendError("complaint_id and message are required")
		return
	}

	if !c.hub.InRoom(c, payload.ComplaintID) {
		c.sendError("join the complaint before sending messages")
		return
	}

	var complaint models.Complaint
	if err := c.hub.DB.First(&complaint, "id = ?", payload.ComplaintID).Error; err != nil {
		c.sendError("complaint not found")
		return
	}

	msgType := payload.MessageType
	if msgType == "" {
		msgType = models.MessageTypeText
	}

	// Persist first; a storage failure must not reach the room.
	msg := models.ChatMessage{
		ComplaintID:   complaint.ID,
		SenderID:      c.user.ID,
		Message:       payload.Message,
		MessageType:   msgType,
		AttachmentURL: payload.AttachmentURL,
	}
	if err := c.hub.DB.Create(&msg).Error; err != nil {
		utils.ErrorLogger.Printf("chat: persist message failed: %v", err)
		c.sendError("failed to send message")
		return
	}

	c.hub.BroadcastToRoom(complaint.ID, Message{
		Event: EventNewMessage,
		Data: map[string]interface{}{
			"id":             msg.ID,
			"complaint_id":   msg.ComplaintID,
			"sender_id":      msg.SenderID,
			"message":        msg.Message,
			"message_type":   msg.MessageType,
			"attachment_url": msg.AttachmentURL,
			"created_at":     msg.CreatedAt,
			"sender":         sanitizeSender(&c.user),
		},
	})

	c.hub.notifyParticipants(&complaint, &c.user, msg.Message)
}

func (c *Client) handleEdit(data json.RawMessage) {
	var payload struct {
		MessageID   string `json:"message_id"`
		NewMessage  string `json:"new_message"`
		ComplaintID string `json:"complaint_id"`
	}
	if err := json.Unmarshal(data, &payload); err != nil || payload.MessageID == "" || payload.NewMessage == "" {
		c.sendError("message_id and new_message are required")
		return
	}

	var msg models.ChatMessage
	if err := c.hub.DB.First(&msg, "id = ?", payload.MessageID).Error; err != nil {
		c.sendError("message not found")
		return
	}

	// Only the author may edit; no edit history is retained.
	if msg.SenderID != c.user.ID {
		c.sendError("access denied")
		return
	}

	now := time.Now()
	updates := map[string]interface{}{
		"message":   payload.NewMessage,
		"is_edited": true,
		"edited_at": now,
	}
	if err := c.hub.DB.Model(&msg).Updates(updates).Error; err != nil {
		utils.ErrorLogger.Printf("chat: edit message failed: %v", err)
		c.sendError("failed to edit message")
		return
	}

	c.hub.BroadcastToRoom(msg.ComplaintID, Message{
		Event: EventMessageEdited,
		Data: map[string]interface{}{
			"message_id":  msg.ID,
			"new_message": payload.NewMessage,
			"edited_at":   now,
		},
	})
}
