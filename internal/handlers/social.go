package handlers

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

// SocialHandler owns the follow graph endpoints.
type SocialHandler struct {
	users         store.UserStore
	notifications store.NotificationStore
	log           zerolog.Logger
}

func NewSocialHandler(users store.UserStore, notifications store.NotificationStore, log zerolog.Logger) *SocialHandler {
	return &SocialHandler{users: users, notifications: notifications, log: log}
}

// FollowUser adds the caller to the target's followers and vice versa.
// A user never follows themselves, and a duplicate follow is rejected
// before any write.
func (h *SocialHandler) FollowUser(w http.ResponseWriter, r *http.Request) {
	current, target, ok := h.resolvePair(w, r)
	if !ok {
		return
	}

	if target.ID == current.ID {
		writeMessage(w, http.StatusBadRequest, "You cannot follow yourself.")
		return
	}
	if current.IsFollowing(target.ID) {
		writeMessage(w, http.StatusBadRequest, "You are already following this user.")
		return
	}

	if err := h.users.Follow(r.Context(), current.ID, target.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Error following user", err)
		return
	}

	n := &models.Notification{
		RecipientID: target.ID,
		SenderID:    current.ID,
		Type:        models.NotificationFollow,
	}
	if err := h.notifications.Insert(r.Context(), n); err != nil {
		h.log.Error().Err(err).Msg("failed to record follow notification")
	}

	writeMessage(w, http.StatusOK, "User followed successfully")
}

func (h *SocialHandler) UnfollowUser(w http.ResponseWriter, r *http.Request) {
	current, target, ok := h.resolvePair(w, r)
	if !ok {
		return
	}

	if !current.IsFollowing(target.ID) {
		writeMessage(w, http.StatusBadRequest, "You are not following this user.")
		return
	}

	if err := h.users.Unfollow(r.Context(), current.ID, target.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Error unfollowing user", err)
		return
	}

	writeMessage(w, http.StatusOK, "User unfollowed successfully")
}

func (h *SocialHandler) GetFollowers(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	refs, err := h.users.FindRefs(r.Context(), current.Followers)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching followers", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"followers": refs,
		"count":     len(refs),
	})
}

func (h *SocialHandler) GetFollowing(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	refs, err := h.users.FindRefs(r.Context(), current.Following)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching following", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"following": refs,
		"count":     len(refs),
	})
}

// GetSuggestions returns users the caller does not follow yet.
func (h *SocialHandler) GetSuggestions(w http.ResponseWriter, r *http.Request) {
	current, ok := h.currentUser(w, r)
	if !ok {
		return
	}

	suggestions, err := h.users.Suggestions(r.Context(), current.ID, current.Following, 10)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching suggestions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"suggestions": suggestions,
		"count":       len(suggestions),
	})
}

// currentUser loads the authenticated caller's document.
func (h *SocialHandler) currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return nil, false
	}
	currentID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", err)
		return nil, false
	}

	current, err := h.users.FindByID(r.Context(), currentID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Current user not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching user", err)
		return nil, false
	}
	return current, true
}

// resolvePair loads the caller and the target user from the id URL param.
func (h *SocialHandler) resolvePair(w http.ResponseWriter, r *http.Request) (current, target *models.User, ok bool) {
	current, ok = h.currentUser(w, r)
	if !ok {
		return nil, nil, false
	}

	targetID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Error following user", errors.New("Invalid user ID"))
		return nil, nil, false
	}

	target, err = h.users.FindByID(r.Context(), targetID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return nil, nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching user", err)
		return nil, nil, false
	}
	return current, target, true
}
