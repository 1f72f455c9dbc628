package realtime

import "github.com/devlinkhq/devlink-backend/internal/models"

// Event types carried over the fan-out channel and relayed to clients.
// user-typing is ephemeral: it goes straight from the gateway to room
// members and never touches the bus or storage.
const (
	EventNewMessage  = "new-message"
	EventMessageRead = "message-read"
	EventUserTyping  = "user-typing"
	EventError       = "error"
)

// Event is the payload published per conversation channel and delivered
// to every connection joined to that conversation's room.
type Event struct {
	EventType string          `json:"eventType"`
	Message   *models.Message `json:"message,omitempty"`
	MessageID string          `json:"messageId,omitempty"`
	ReadBy    string          `json:"readBy,omitempty"`
	UserID    string          `json:"userId,omitempty"`
	ChatID    string          `json:"chatId,omitempty"`
	Error     string          `json:"error,omitempty"`
}
