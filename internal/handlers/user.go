package handlers

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

// profileCacheTTL bounds staleness of the cached public profile.
const profileCacheTTL = time.Hour

// ProfileCache is the caching collaborator for user profiles (Redis in
// production, an in-memory fake in tests).
type ProfileCache interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
}

// UserHandler serves public profile lookups.
type UserHandler struct {
	users store.UserStore
	cache ProfileCache
	log   zerolog.Logger
}

func NewUserHandler(users store.UserStore, cache ProfileCache, log zerolog.Logger) *UserHandler {
	return &UserHandler{users: users, cache: cache, log: log}
}

func profileCacheKey(userID string) string {
	return fmt.Sprintf("user:%s:profile", userID)
}

// GetProfile returns a user's public profile, cached for one hour.
func (h *UserHandler) GetProfile(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	userID, err := primitive.ObjectIDFromHex(idParam)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid user ID", err)
		return
	}

	var cached models.User
	if hit, err := h.cache.Get(r.Context(), profileCacheKey(idParam), &cached); err == nil && hit {
		writeJSON(w, http.StatusOK, cached)
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching user profile", err)
		return
	}

	if err := h.cache.Set(r.Context(), profileCacheKey(idParam), user, profileCacheTTL); err != nil {
		h.log.Error().Err(err).Str("user", idParam).Msg("failed to cache profile")
	}

	writeJSON(w, http.StatusOK, user)
}
