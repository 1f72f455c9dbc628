package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
	"github.com/devlinkhq/devlink-backend/pkg/utils"
)

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned by signup and login.
type AuthResponse struct {
	Message string                 `json:"message"`
	Token   string                 `json:"token"`
	User    map[string]interface{} `json:"user"`
}

// AuthHandler owns signup, login and logout.
type AuthHandler struct {
	users    store.UserStore
	issuer   *auth.Issuer
	sessions auth.SessionRegistry
	log      zerolog.Logger
}

func NewAuthHandler(users store.UserStore, issuer *auth.Issuer, sessions auth.SessionRegistry, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{users: users, issuer: issuer, sessions: sessions, log: log}
}

// Signup registers a new user, issues a token and registers the session.
func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if req.Username == "" || req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	existing, err := h.users.FindByUsernameOrEmail(r.Context(), req.Username, req.Email)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusInternalServerError, "Error creating user", err)
		return
	}
	if existing != nil {
		writeMessage(w, http.StatusBadRequest, "User already exists")
		return
	}

	hashed, err := utils.HashPassword(req.Password)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error creating user", err)
		return
	}

	user := &models.User{
		Username: req.Username,
		Email:    req.Email,
		Password: hashed,
	}
	if err := h.users.Create(r.Context(), user); err != nil {
		writeError(w, http.StatusInternalServerError, "Error creating user", err)
		return
	}

	token, _, err := h.issuer.Issue(r.Context(), auth.Identity{
		ID:       user.ID.Hex(),
		Username: user.Username,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error creating user", err)
		return
	}

	writeJSON(w, http.StatusCreated, AuthResponse{
		Message: "User registered successfully",
		Token:   token,
		User: map[string]interface{}{
			"id":       user.ID.Hex(),
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Login verifies credentials, issues a fresh token and overwrites any
// previous session for the user.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}
	if req.Email == "" || req.Password == "" {
		writeMessage(w, http.StatusBadRequest, "All fields are required")
		return
	}

	user, err := h.users.FindByEmail(r.Context(), req.Email)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "User not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error logging in", err)
		return
	}

	valid, err := utils.VerifyPassword(req.Password, user.Password)
	if err != nil || !valid {
		writeMessage(w, http.StatusBadRequest, "Invalid credentials")
		return
	}

	token, _, err := h.issuer.Issue(r.Context(), auth.Identity{
		ID:       user.ID.Hex(),
		Username: user.Username,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error logging in", err)
		return
	}

	writeJSON(w, http.StatusOK, AuthResponse{
		Message: "Login successful",
		Token:   token,
		User: map[string]interface{}{
			"id":       user.ID.Hex(),
			"username": user.Username,
			"email":    user.Email,
		},
	})
}

// Logout deletes the caller's session registry entry, invalidating the
// token immediately even though its signature stays valid until expiry.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}

	if err := h.sessions.Delete(r.Context(), identity.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Error logging out", err)
		return
	}

	writeMessage(w, http.StatusOK, "Logged out successfully")
}
