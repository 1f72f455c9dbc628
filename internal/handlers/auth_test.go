package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
	"github.com/devlinkhq/devlink-backend/pkg/utils"
)

// fakeUserStore keeps users in memory keyed by id.
type fakeUserStore struct {
	users map[primitive.ObjectID]*models.User
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{users: make(map[primitive.ObjectID]*models.User)}
}

func (f *fakeUserStore) Create(_ context.Context, user *models.User) error {
	user.ID = primitive.NewObjectID()
	f.users[user.ID] = user
	return nil
}

func (f *fakeUserStore) FindByID(_ context.Context, id primitive.ObjectID) (*models.User, error) {
	user, ok := f.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return user, nil
}

func (f *fakeUserStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) FindByUsernameOrEmail(_ context.Context, username, email string) (*models.User, error) {
	for _, u := range f.users {
		if u.Username == username || u.Email == email {
			return u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeUserStore) FindRefs(_ context.Context, ids []primitive.ObjectID) ([]models.UserRef, error) {
	refs := make([]models.UserRef, 0, len(ids))
	for _, id := range ids {
		if u, ok := f.users[id]; ok {
			refs = append(refs, u.Ref())
		}
	}
	return refs, nil
}

func (f *fakeUserStore) Follow(_ context.Context, followerID, targetID primitive.ObjectID) error {
	follower, ok := f.users[followerID]
	if !ok {
		return store.ErrNotFound
	}
	target, ok := f.users[targetID]
	if !ok {
		return store.ErrNotFound
	}
	follower.Following = addToSet(follower.Following, targetID)
	target.Followers = addToSet(target.Followers, followerID)
	return nil
}

func (f *fakeUserStore) Unfollow(_ context.Context, followerID, targetID primitive.ObjectID) error {
	follower, ok := f.users[followerID]
	if !ok {
		return store.ErrNotFound
	}
	target, ok := f.users[targetID]
	if !ok {
		return store.ErrNotFound
	}
	follower.Following = removeFromSet(follower.Following, targetID)
	target.Followers = removeFromSet(target.Followers, followerID)
	return nil
}

func (f *fakeUserStore) Suggestions(_ context.Context, userID primitive.ObjectID, excluding []primitive.ObjectID, limit int64) ([]models.UserRef, error) {
	skip := map[primitive.ObjectID]bool{userID: true}
	for _, id := range excluding {
		skip[id] = true
	}
	var refs []models.UserRef
	for id, u := range f.users {
		if skip[id] || int64(len(refs)) >= limit {
			continue
		}
		refs = append(refs, u.Ref())
	}
	return refs, nil
}

func addToSet(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	for _, existing := range set {
		if existing == id {
			return set
		}
	}
	return append(set, id)
}

func removeFromSet(set []primitive.ObjectID, id primitive.ObjectID) []primitive.ObjectID {
	kept := set[:0]
	for _, existing := range set {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	return kept
}

// memSessions is an in-memory auth.SessionRegistry.
type memSessions struct {
	entries map[string]string
}

func newMemSessions() *memSessions {
	return &memSessions{entries: make(map[string]string)}
}

func (m *memSessions) Set(_ context.Context, userID, token string, _ time.Duration) error {
	m.entries[userID] = token
	return nil
}

func (m *memSessions) Get(_ context.Context, userID string) (string, error) {
	token, ok := m.entries[userID]
	if !ok {
		return "", auth.ErrNoSession
	}
	return token, nil
}

func (m *memSessions) Delete(_ context.Context, userID string) error {
	delete(m.entries, userID)
	return nil
}

func authHandlerSetup() (*AuthHandler, *fakeUserStore, *memSessions) {
	users := newFakeUserStore()
	sessions := newMemSessions()
	issuer := auth.NewIssuer("secret", time.Hour, sessions)
	return NewAuthHandler(users, issuer, sessions, zerolog.Nop()), users, sessions
}

func postJSON(handler http.HandlerFunc, target, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, bytes.NewBufferString(body))
	rec := httptest.NewRecorder()
	handler(rec, req)
	return rec
}

func decodeAuthResponse(t *testing.T, rec *httptest.ResponseRecorder) AuthResponse {
	t.Helper()
	var resp AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestSignup_CreatesUserAndSession(t *testing.T) {
	h, users, sessions := authHandlerSetup()

	rec := postJSON(h.Signup, "/api/auth/signup", `{"username":"ada","email":"ada@example.com","password":"hunter22"}`)

	require.Equal(t, http.StatusCreated, rec.Code)
	resp := decodeAuthResponse(t, rec)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, "ada", resp.User["username"])

	require.Len(t, users.users, 1)
	for id, u := range users.users {
		// Stored password is a hash, never the plaintext.
		assert.NotEqual(t, "hunter22", u.Password)
		stored, err := sessions.Get(context.Background(), id.Hex())
		require.NoError(t, err)
		assert.Equal(t, resp.Token, stored)
	}
}

func TestSignup_MissingFields(t *testing.T) {
	h, users, _ := authHandlerSetup()

	rec := postJSON(h.Signup, "/api/auth/signup", `{"username":"ada","email":"","password":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "All fields are required")
	assert.Empty(t, users.users)
}

func TestSignup_DuplicateUser(t *testing.T) {
	h, users, _ := authHandlerSetup()
	_ = users.Create(context.Background(), &models.User{Username: "ada", Email: "ada@example.com"})

	rec := postJSON(h.Signup, "/api/auth/signup", `{"username":"ada","email":"other@example.com","password":"x"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "User already exists")
	assert.Len(t, users.users, 1)
}

func TestLogin_Success(t *testing.T) {
	h, users, sessions := authHandlerSetup()
	hashed, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	_ = users.Create(context.Background(), &models.User{Username: "bob", Email: "bob@example.com", Password: hashed})

	rec := postJSON(h.Login, "/api/auth/login", `{"email":"bob@example.com","password":"correct horse"}`)

	require.Equal(t, http.StatusOK, rec.Code)
	resp := decodeAuthResponse(t, rec)
	assert.Equal(t, "Login successful", resp.Message)
	assert.NotEmpty(t, resp.Token)
	assert.Len(t, sessions.entries, 1)
}

func TestLogin_UnknownEmail(t *testing.T) {
	h, _, _ := authHandlerSetup()

	rec := postJSON(h.Login, "/api/auth/login", `{"email":"ghost@example.com","password":"whatever"}`)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "User not found")
}

func TestLogin_WrongPassword(t *testing.T) {
	h, users, sessions := authHandlerSetup()
	hashed, err := utils.HashPassword("correct horse")
	require.NoError(t, err)
	_ = users.Create(context.Background(), &models.User{Username: "bob", Email: "bob@example.com", Password: hashed})

	rec := postJSON(h.Login, "/api/auth/login", `{"email":"bob@example.com","password":"wrong horse"}`)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "Invalid credentials")
	assert.Empty(t, sessions.entries)
}

func TestLogout_DeletesSession(t *testing.T) {
	h, _, sessions := authHandlerSetup()
	userID := primitive.NewObjectID()
	_ = sessions.Set(context.Background(), userID.Hex(), "tok", time.Hour)

	req := asIdentity(httptest.NewRequest(http.MethodPost, "/api/auth/logout", nil), userID)
	rec := httptest.NewRecorder()
	h.Logout(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Logged out successfully")
	_, err := sessions.Get(context.Background(), userID.Hex())
	assert.ErrorIs(t, err, auth.ErrNoSession)
}
