package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

const (
	readLimit    = 64 * 1024
	readDeadline = 90 * time.Second
	sendBuffer   = 32
	writeTimeout = 10 * time.Second
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// CORS for WebSocket is handled at the HTTP layer already.
		return true
	},
}

// clientFrame is a message coming from the frontend over WebSocket.
type clientFrame struct {
	Event  string `json:"event"` // "join-user-room", "join-chat", "typing-start", "send-message"
	UserID string `json:"userId,omitempty"`
	ChatID string `json:"chatId,omitempty"`
	Text   string `json:"text,omitempty"`
}

// client is one live WebSocket connection bound to an authenticated user.
// Writes go through a buffered channel and a single writer goroutine so
// the hub and the reader never write to the socket concurrently.
type client struct {
	id       uuid.UUID
	identity auth.Identity
	conn     *websocket.Conn
	send     chan interface{}
	done     chan struct{}
}

// WriteJSON enqueues a payload for the writer goroutine. Delivery is
// best-effort: when the buffer is full the payload is dropped rather
// than blocking the fan-out path.
func (c *client) WriteJSON(v interface{}) error {
	select {
	case c.send <- v:
		return nil
	case <-c.done:
		return websocket.ErrCloseSent
	default:
		return nil
	}
}

func (c *client) writeLoop() {
	for {
		select {
		case v := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.conn.WriteJSON(v); err != nil {
				return
			}
		case <-c.done:
			return
		}
	}
}

// Gateway upgrades HTTP connections, binds each one to a verified
// identity, and dispatches client events. The handshake checks the token
// signature only, not the session registry.
type Gateway struct {
	verifier *auth.Verifier
	hub      *Hub
	chats    store.ChatStore
	bus      Publisher
	log      zerolog.Logger
}

func NewGateway(verifier *auth.Verifier, hub *Hub, chats store.ChatStore, bus Publisher, log zerolog.Logger) *Gateway {
	return &Gateway{verifier: verifier, hub: hub, chats: chats, bus: bus, log: log}
}

// HandleWS is the /ws endpoint.
func (g *Gateway) HandleWS(w http.ResponseWriter, r *http.Request) {
	token := auth.ExtractBearerToken(r.Header.Get("Authorization"))
	if token == "" {
		// Browser WebSocket clients can't set headers; allow ?token=.
		token = r.URL.Query().Get("token")
	}
	if token == "" {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	claims, err := g.verifier.Verify(token)
	if err != nil {
		http.Error(w, "Unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}

	c := &client{
		id:       uuid.New(),
		identity: auth.Identity{ID: claims.ID, Username: claims.Username},
		conn:     conn,
		send:     make(chan interface{}, sendBuffer),
		done:     make(chan struct{}),
	}
	go c.writeLoop()

	g.log.Debug().Str("user", c.identity.ID).Str("conn", c.id.String()).Msg("websocket connected")
	g.readLoop(r.Context(), c)

	// Per-connection cleanup only; the session registry is untouched.
	g.hub.LeaveAll(c)
	close(c.done)
	_ = conn.Close()
	g.log.Debug().Str("user", c.identity.ID).Str("conn", c.id.String()).Msg("websocket disconnected")
}

func (g *Gateway) readLoop(ctx context.Context, c *client) {
	c.conn.SetReadLimit(readLimit)
	_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
	c.conn.SetPongHandler(func(string) error {
		_ = c.conn.SetReadDeadline(time.Now().Add(readDeadline))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var frame clientFrame
		if err := json.Unmarshal(data, &frame); err != nil {
			continue
		}

		switch frame.Event {
		case "join-user-room":
			userID := frame.UserID
			if userID == "" {
				userID = c.identity.ID
			}
			g.hub.Join(UserRoom(userID), c)
		case "join-chat":
			if frame.ChatID != "" {
				g.hub.Join(ChatRoom(frame.ChatID), c)
			}
		case "typing-start":
			if frame.ChatID != "" {
				// Ephemeral: room-local broadcast, never published or stored.
				g.hub.BroadcastExcept(ChatRoom(frame.ChatID), Event{
					EventType: EventUserTyping,
					UserID:    c.identity.ID,
					ChatID:    frame.ChatID,
				}, c)
			}
		case "send-message":
			g.handleSendMessage(ctx, c, frame)
		default:
			// Ignore unknown events
		}
	}
}

// handleSendMessage persists the message and hands it to the fan-out
// channel, mirroring the HTTP send path.
func (g *Gateway) handleSendMessage(ctx context.Context, c *client, frame clientFrame) {
	if frame.ChatID == "" || frame.Text == "" {
		return
	}

	chatID, err := primitive.ObjectIDFromHex(frame.ChatID)
	if err != nil {
		return
	}
	senderID, err := primitive.ObjectIDFromHex(c.identity.ID)
	if err != nil {
		return
	}

	opCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	msg := &models.Message{
		ChatID:    chatID,
		SenderID:  senderID,
		Text:      frame.Text,
		ReadBy:    []primitive.ObjectID{senderID},
		CreatedAt: time.Now().UTC(),
	}

	if err := g.chats.InsertMessage(opCtx, msg); err != nil {
		g.log.Error().Err(err).Str("chat", frame.ChatID).Msg("failed to persist message")
		_ = c.WriteJSON(Event{EventType: EventError, ChatID: frame.ChatID, Error: "failed to persist message"})
		return
	}
	if err := g.chats.SetLastMessage(opCtx, chatID, msg.ID); err != nil {
		// Message itself is saved and listable; pointer repair is deferred.
		g.log.Error().Err(err).Str("chat", frame.ChatID).Msg("failed to update last message")
	}

	if err := g.bus.PublishNewMessage(opCtx, frame.ChatID, msg); err != nil {
		g.log.Error().Err(err).Str("chat", frame.ChatID).Msg("failed to publish message")
		_ = c.WriteJSON(Event{EventType: EventError, ChatID: frame.ChatID, Error: "failed to send message"})
	}
}

// Relay wires the fan-out channel into the hub: every event for
// conversation C reaches every connection joined to room C.
func (g *Gateway) Relay(chatID string, evt Event) {
	g.hub.Broadcast(ChatRoom(chatID), evt)
}
