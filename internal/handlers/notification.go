package handlers

import (
	"net/http"

	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

// NotificationHandler serves the caller's activity notifications.
type NotificationHandler struct {
	notifications store.NotificationStore
	log           zerolog.Logger
}

func NewNotificationHandler(notifications store.NotificationStore, log zerolog.Logger) *NotificationHandler {
	return &NotificationHandler{notifications: notifications, log: log}
}

func (h *NotificationHandler) GetNotifications(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error fetching notifications")
		return
	}

	list, err := h.notifications.ListForUser(r.Context(), userID)
	if err != nil {
		writeMessage(w, http.StatusInternalServerError, "Error fetching notifications")
		return
	}
	if list == nil {
		list = []models.Notification{}
	}
	writeJSON(w, http.StatusOK, list)
}
