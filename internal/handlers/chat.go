package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/realtime"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

// DefaultMessagePageSize is the page size for message history.
const DefaultMessagePageSize = 20

type CreateChatRequest struct {
	Participants []string `json:"participants"`
	IsGroup      bool     `json:"isGroup"`
	GroupName    string   `json:"groupName,omitempty"`
}

type SendMessageRequest struct {
	Text string `json:"text"`
}

// ChatHandler owns the chat REST surface. Messages are persisted first
// and then handed to the fan-out channel; see SendMessage for how the
// two failure modes differ.
type ChatHandler struct {
	chats store.ChatStore
	bus   realtime.Publisher
	log   zerolog.Logger
}

func NewChatHandler(chats store.ChatStore, bus realtime.Publisher, log zerolog.Logger) *ChatHandler {
	return &ChatHandler{chats: chats, bus: bus, log: log}
}

// CreateChat starts a 1:1 or group conversation.
func (h *ChatHandler) CreateChat(w http.ResponseWriter, r *http.Request) {
	var req CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if len(req.Participants) == 0 {
		writeMessage(w, http.StatusBadRequest, "participants are required")
		return
	}

	participants := make([]primitive.ObjectID, 0, len(req.Participants))
	for _, p := range req.Participants {
		id, err := primitive.ObjectIDFromHex(p)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid participant id", err)
			return
		}
		participants = append(participants, id)
	}

	chat := &models.Chat{
		Participants: participants,
		IsGroup:      req.IsGroup,
		GroupName:    req.GroupName,
	}
	if err := h.chats.CreateChat(r.Context(), chat); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to create chat"})
		return
	}

	writeJSON(w, http.StatusCreated, chat)
}

// SendMessage persists a message, updates the conversation pointer, and
// publishes it to the fan-out channel. A publish failure is reported as
// a failure of the whole request even though the write already
// succeeded: without live delivery the send is considered failed.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}

	chatID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "chatId"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send message : " + err.Error()})
		return
	}
	senderID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send message : " + err.Error()})
		return
	}

	var req SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	msg := &models.Message{
		ChatID:   chatID,
		SenderID: senderID,
		Text:     req.Text,
		// The sender has read their own message by definition.
		ReadBy:    []primitive.ObjectID{senderID},
		CreatedAt: time.Now().UTC(),
	}

	if err := h.chats.InsertMessage(r.Context(), msg); err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send message : " + err.Error()})
		return
	}

	if err := h.chats.SetLastMessage(r.Context(), chatID, msg.ID); err != nil {
		// The message is saved and listable; a stale pointer is an
		// accepted eventual-consistency gap.
		h.log.Error().Err(err).Str("chat", chatID.Hex()).Msg("failed to update last message pointer")
	}

	if err := h.bus.PublishNewMessage(r.Context(), chatID.Hex(), msg); err != nil {
		h.log.Error().Err(err).Str("chat", chatID.Hex()).Msg("publish failed after persist")
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to send message : " + err.Error()})
		return
	}

	writeJSON(w, http.StatusCreated, msg)
}

// GetMessages returns one page of history, oldest-first within the page.
// Storage fetches newest-first; the page is reversed for display.
func (h *ChatHandler) GetMessages(w http.ResponseWriter, r *http.Request) {
	chatID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "chatId"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch messages"})
		return
	}

	page := int64(1)
	if p, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64); err == nil && p > 0 {
		page = p
	}
	limit := int64(DefaultMessagePageSize)
	if l, err := strconv.ParseInt(r.URL.Query().Get("limit"), 10, 64); err == nil && l > 0 && l <= 100 {
		limit = l
	}
	skip := (page - 1) * limit

	msgs, err := h.chats.ListMessages(r.Context(), chatID, skip, limit)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch messages"})
		return
	}

	for i, j := 0, len(msgs)-1; i < j; i, j = i+1, j-1 {
		msgs[i], msgs[j] = msgs[j], msgs[i]
	}
	if msgs == nil {
		msgs = []models.Message{}
	}

	writeJSON(w, http.StatusOK, msgs)
}

// GetChats lists all conversations of the caller with participants and
// last message populated.
func (h *ChatHandler) GetChats(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch chats"})
		return
	}

	chats, err := h.chats.ListChatsForUser(r.Context(), userID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to fetch chats"})
		return
	}
	if chats == nil {
		chats = []models.ChatSummary{}
	}

	writeJSON(w, http.StatusOK, chats)
}

// MarkAsRead adds the caller to the message's read set and propagates a
// read receipt. Unlike the send path, a publish failure here is only a
// cosmetic realtime miss and does not fail the request.
func (h *ChatHandler) MarkAsRead(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}

	chatID := chi.URLParam(r, "chatId")
	messageID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "messageId"))
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update read status"})
		return
	}
	readerID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update read status"})
		return
	}

	if err := h.chats.MarkMessageRead(r.Context(), messageID, readerID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Message not found")
			return
		}
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "Failed to update read status"})
		return
	}

	if err := h.bus.PublishMessageRead(r.Context(), chatID, messageID.Hex(), identity.ID); err != nil {
		h.log.Error().Err(err).Str("chat", chatID).Msg("read receipt publish failed")
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "read"})
}
