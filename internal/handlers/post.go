package handlers

import (
	"context"
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
	"github.com/devlinkhq/devlink-backend/internal/store"
)

// DefaultPostPageSize is the feed page size.
const DefaultPostPageSize = 10

type CreatePostRequest struct {
	Content     string              `json:"content"`
	CodeSnippet *models.CodeSnippet `json:"codeSnippet,omitempty"`
	Images      []string            `json:"images,omitempty"`
}

type CommentRequest struct {
	Content string `json:"content"`
}

// PostHandler owns the post/comment/like surface. All mutations go
// through atomic store operations rather than fetch-mutate-save.
type PostHandler struct {
	posts         store.PostStore
	notifications store.NotificationStore
	log           zerolog.Logger
}

func NewPostHandler(posts store.PostStore, notifications store.NotificationStore, log zerolog.Logger) *PostHandler {
	return &PostHandler{posts: posts, notifications: notifications, log: log}
}

func (h *PostHandler) CreatePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error creating post", err)
		return
	}

	var req CreatePostRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.Content == "" {
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	}

	post := &models.Post{
		UserID:      userID,
		Content:     req.Content,
		CodeSnippet: req.CodeSnippet,
		Images:      req.Images,
	}
	if err := h.posts.Create(r.Context(), post); err != nil {
		writeError(w, http.StatusInternalServerError, "Error creating post", err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"message": "Post created successfully",
		"post":    post,
	})
}

// GetAllPosts is the public global feed, newest first.
func (h *PostHandler) GetAllPosts(w http.ResponseWriter, r *http.Request) {
	skip, limit := pagination(r, DefaultPostPageSize)

	posts, err := h.posts.List(r.Context(), skip, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching posts", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

// GetPostsByUser lists the caller's own posts.
func (h *PostHandler) GetPostsByUser(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching posts by user", err)
		return
	}

	skip, limit := pagination(r, DefaultPostPageSize)
	posts, err := h.posts.ListByUser(r.Context(), userID, skip, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching posts by user", err)
		return
	}
	if posts == nil {
		posts = []models.Post{}
	}
	writeJSON(w, http.StatusOK, posts)
}

func (h *PostHandler) GetPostByID(w http.ResponseWriter, r *http.Request) {
	post, ok := h.fetchPost(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, post)
}

// DeletePost removes a post; only its author may delete it.
func (h *PostHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}

	post, ok := h.fetchPost(w, r)
	if !ok {
		return
	}

	if post.UserID.Hex() != identity.ID {
		writeMessage(w, http.StatusForbidden, "You are not authorized to delete this post")
		return
	}

	if err := h.posts.Delete(r.Context(), post.ID); err != nil {
		writeError(w, http.StatusInternalServerError, "Error deleting post", err)
		return
	}
	writeMessage(w, http.StatusOK, "Post deleted successfully")
}

// ToggleLike adds or removes the caller's like. The membership check and
// the set mutation are separate steps, but the mutation itself is a set
// operation, so the like set can never end up with duplicates.
func (h *PostHandler) ToggleLike(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error toggling like", err)
		return
	}

	post, ok := h.fetchPost(w, r)
	if !ok {
		return
	}

	alreadyLiked := post.LikedBy(userID)
	if alreadyLiked {
		err = h.posts.RemoveLike(r.Context(), post.ID, userID)
	} else {
		err = h.posts.AddLike(r.Context(), post.ID, userID)
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error toggling like", err)
		return
	}

	updated, err := h.posts.GetByID(r.Context(), post.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error toggling like", err)
		return
	}

	message := "Post liked"
	if alreadyLiked {
		message = "Like removed"
	} else if post.UserID != userID {
		h.notify(r.Context(), post.UserID, userID, models.NotificationLike, post.ID, primitive.NilObjectID)
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message":    message,
		"likesCount": len(updated.Likes),
		"post":       updated,
	})
}

func (h *PostHandler) AddComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error adding comment", err)
		return
	}

	post, ok := h.fetchPost(w, r)
	if !ok {
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	}

	comment := models.Comment{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Text:      req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.posts.AddComment(r.Context(), post.ID, comment); err != nil {
		writeError(w, http.StatusInternalServerError, "Error adding comment", err)
		return
	}

	if post.UserID != userID {
		h.notify(r.Context(), post.UserID, userID, models.NotificationComment, post.ID, comment.ID)
	}

	updated, err := h.posts.GetByID(r.Context(), post.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error adding comment", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (h *PostHandler) DeleteComment(w http.ResponseWriter, r *http.Request) {
	if _, ok := auth.IdentityFromContext(r.Context()); !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}

	post, ok := h.fetchPost(w, r)
	if !ok {
		return
	}
	commentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid comment id", err)
		return
	}

	if err := h.posts.RemoveComment(r.Context(), post.ID, commentID); err != nil {
		writeError(w, http.StatusInternalServerError, "Error deleting comment", err)
		return
	}

	updated, err := h.posts.GetByID(r.Context(), post.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error deleting comment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Comment deleted successfully",
		"post":    updated,
	})
}

func (h *PostHandler) ReplyToComment(w http.ResponseWriter, r *http.Request) {
	identity, ok := auth.IdentityFromContext(r.Context())
	if !ok {
		writeMessage(w, http.StatusUnauthorized, "Access Denied. No token provided.")
		return
	}
	userID, err := primitive.ObjectIDFromHex(identity.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error replying to comment", err)
		return
	}

	post, ok := h.fetchPost(w, r)
	if !ok {
		return
	}
	commentID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "commentId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid comment id", err)
		return
	}

	var req CommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Content == "" {
		writeMessage(w, http.StatusBadRequest, "content is required")
		return
	}

	reply := models.Reply{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Text:      req.Content,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.posts.AddReply(r.Context(), post.ID, commentID, reply); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeMessage(w, http.StatusNotFound, "Comment not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Error replying to comment", err)
		return
	}

	if post.UserID != userID {
		h.notify(r.Context(), post.UserID, userID, models.NotificationReply, post.ID, commentID)
	}

	updated, err := h.posts.GetByID(r.Context(), post.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error replying to comment", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": "Reply added successfully",
		"post":    updated,
	})
}

// fetchPost loads the post addressed by the postId URL param, writing
// the error response itself when the post cannot be served.
func (h *PostHandler) fetchPost(w http.ResponseWriter, r *http.Request) (*models.Post, bool) {
	postID, err := primitive.ObjectIDFromHex(chi.URLParam(r, "postId"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid post id", err)
		return nil, false
	}

	post, err := h.posts.GetByID(r.Context(), postID)
	if errors.Is(err, store.ErrNotFound) {
		writeMessage(w, http.StatusNotFound, "Post not found")
		return nil, false
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Error fetching post", err)
		return nil, false
	}
	return post, true
}

// notify records an activity notification, best effort.
func (h *PostHandler) notify(ctx context.Context, recipient, sender primitive.ObjectID, typ models.NotificationType, postID, commentID primitive.ObjectID) {
	n := &models.Notification{
		RecipientID: recipient,
		SenderID:    sender,
		Type:        typ,
		PostID:      postID,
		CommentID:   commentID,
	}
	if err := h.notifications.Insert(ctx, n); err != nil {
		h.log.Error().Err(err).Str("type", string(typ)).Msg("failed to record notification")
	}
}

func pagination(r *http.Request, pageSize int64) (skip, limit int64) {
	page := int64(1)
	if p, err := strconv.ParseInt(r.URL.Query().Get("page"), 10, 64); err == nil && p > 0 {
		page = p
	}
	return (page - 1) * pageSize, pageSize
}
