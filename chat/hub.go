package chat

import (
	"context"
	"encoding/json"
	"strings"
	"sync"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/utils"
)

// Server-emitted events.
const (
	EventNewMessage    = "new-message"
	EventMessageEdited = "message-edited"
	EventStatusUpdated = "status-updated"
	EventNotification  = "notification"
	EventError         = "error"
)

// Client-emitted events.
const (
	EventJoinComplaint  = "join-complaint"
	EventLeaveComplaint = "leave-complaint"
	EventSendMessage    = "send-message"
	EventEditMessage    = "edit-message"
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

// redisEnvelope carries a room broadcast across instances.
type redisEnvelope struct {
	Room    string          `json:"room"`
	Payload json.RawMessage `json:"payload"`
}

const redisChannelPrefix = "chat:"

// Hub tracks which clients sit in which complaint room and fans
// broadcasts out to them. With a Redis client configured, broadcasts go
// through pub/sub so every instance's rooms receive them; without one
// delivery is in-process only.
type Hub struct {
	DB    *gorm.DB
	Redis *redis.Client

	rooms map[string]map[*Client]bool
	mu    sync.Mutex
}

func NewHub(db *gorm.DB, rdb *redis.Client) *Hub {
	return &Hub{
		DB:    db,
		Redis: rdb,
		rooms: make(map[string]map[*Client]bool),
	}
}

// Run starts the Redis pub/sub listener. It is a no-op without Redis;
// call it from main as a goroutine.
func (h *Hub) Run() {
	if h.Redis == nil {
		return
	}
	ctx := context.Background()
	pubsub := h.Redis.PSubscribe(ctx, redisChannelPrefix+"*")
	defer pubsub.Close()

	for msg := range pubsub.Channel() {
		var env redisEnvelope
		if err := json.Unmarshal([]byte(msg.Payload), &env); err != nil {
			utils.ErrorLogger.Printf("chat: bad pub/sub payload: %v", err)
			continue
		}
		var m Message
		if err := json.Unmarshal(env.Payload, &m); err != nil {
			utils.ErrorLogger.Printf("chat: bad pub/sub message: %v", err)
			continue
		}
		h.deliver(env.Room, m)
	}
}

// JoinRoom puts the client in a complaint room. Authorization happens
// in the caller (handleJoin) before membership changes.
func (h *Hub) JoinRoom(c *Client, complaintID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[complaintID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[complaintID] = room
	}
	room[c] = true
}

func (h *Hub) LeaveRoom(c *Client, complaintID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromRoom(c, complaintID)
}

// RemoveClient drops a disconnected client from every room.
func (h *Hub) RemoveClient(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for complaintID := range h.rooms {
		h.removeFromRoom(c, complaintID)
	}
}

// removeFromRoom assumes h.mu is held.
func (h *Hub) removeFromRoom(c *Client, complaintID string) {
	room, ok := h.rooms[complaintID]
	if !ok {
		return
	}
	delete(room, c)
	if len(room) == 0 {
		delete(h.rooms, complaintID)
	}
}

// InRoom reports current membership; room state is ephemeral and
// reconstructed from the database on each join.
func (h *Hub) InRoom(c *Client, complaintID string) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[complaintID]
	return ok && room[c]
}

// BroadcastToRoom sends msg to every client in the complaint room,
// via Redis when configured so other instances see it too.
func (h *Hub) BroadcastToRoom(complaintID string, msg Message) {
	if h.Redis != nil {
		payload, err := json.Marshal(msg)
		if err != nil {
			utils.ErrorLogger.Printf("chat: marshal broadcast: %v", err)
			return
		}
		env, _ := json.Marshal(redisEnvelope{Room: complaintID, Payload: payload})
		if err := h.Redis.Publish(context.Background(), redisChannelPrefix+complaintID, env).Err(); err != nil {
			utils.ErrorLogger.Printf("chat: publish to %s failed: %v", complaintID, err)
		}
		return
	}
	h.deliver(complaintID, msg)
}

func (h *Hub) deliver(complaintID string, msg Message) {
	h.mu.Lock()
	defer h.mu.Unlock()
	room, ok := h.rooms[complaintID]
	if !ok {
		return
	}
	for client := range room {
		if !client.trySend(msg) {
			// Slow or closed consumer: drop it from every room rather
			// than block the hub. The client closes its own channel.
			for id := range h.rooms {
				h.removeFromRoom(client, id)
			}
			client.Close()
		}
	}
}

// BroadcastStatusUpdate pushes a live status-change event into the
// complaint's room. Called from the service layer after the row commit.
func (h *Hub) BroadcastStatusUpdate(complaintID, status, updatedBy string) {
	h.BroadcastToRoom(complaintID, Message{
		Event: EventStatusUpdated,
		Data: map[string]interface{}{
			"complaint_id": complaintID,
			"status":       status,
			"updated_by":   updatedBy,
		},
	})
}

// notifyParticipants writes notification rows for the complaint's
// participants other than the sender, then pushes a lightweight
// notification event into the room.
func (h *Hub) notifyParticipants(complaint *models.Complaint, sender *models.User, text string) {
	preview := text
	if runes := []rune(preview); len(runes) > 50 {
		preview = string(runes[:50]) + "..."
	}

	participantIDs := make([]string, 0, 2)
	if complaint.UserID != sender.ID {
		participantIDs = append(participantIDs, complaint.UserID)
	}
	if complaint.AssignedToID != nil && *complaint.AssignedToID != sender.ID && *complaint.AssignedToID != complaint.UserID {
		participantIDs = append(participantIDs, *complaint.AssignedToID)
	}

	for _, participantID := range participantIDs {
		notif := models.Notification{
			UserID:             participantID,
			Title:              "New Message",
			Message:            sender.FirstName + " sent a message: " + preview,
			Type:               models.NotifChatMessage,
			RelatedComplaintID: &complaint.ID,
		}
		if err := h.DB.Create(&notif).Error; err != nil {
			utils.ErrorLogger.Printf("chat: notification for %s failed: %v", participantID, err)
		}
	}

	if len(participantIDs) > 0 {
		h.BroadcastToRoom(complaint.ID, Message{
			Event: EventNotification,
			Data: map[string]interface{}{
				"type":         "new_message",
				"complaint_id": complaint.ID,
				"sender":       sender.FirstName,
			},
		})
	}
}

// canAccessRoom mirrors the REST-side complaint gate: admins, staff and
// the complaint's participants may join its room.
func canAccessRoom(user *models.User, complaint *models.Complaint) bool {
	if user.Role == models.RoleAdmin || user.Role == models.RoleStaff {
		return true
	}
	if complaint.UserID == user.ID {
		return true
	}
	return complaint.AssignedToID != nil && *complaint.AssignedToID == user.ID
}

// sanitizeSender trims a user row down to the fields chat payloads need.
func sanitizeSender(u *models.User) map[string]interface{} {
	name := strings.TrimSpace(u.FullName())
	return map[string]interface{}{
		"id":                u.ID,
		"first_name":        u.FirstName,
		"last_name":         u.LastName,
		"full_name":         name,
		"role":              u.Role,
		"profile_image_url": u.ProfileImageURL,
	}
}
