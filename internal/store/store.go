// Package store holds the persistence collaborators the handlers consume.
// Interfaces are defined here so tests can substitute in-memory fakes;
// the concrete implementations are backed by MongoDB.
package store

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/models"
)

// ErrNotFound is returned when a lookup matches no document.
var ErrNotFound = errors.New("not found")

// UserStore persists user records and the follow graph.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	FindRefs(ctx context.Context, ids []primitive.ObjectID) ([]models.UserRef, error)

	// Follow/Unfollow mutate both sides of the graph with atomic set
	// operators; either call is idempotent and safe to re-run after a
	// partial failure.
	Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error
	Suggestions(ctx context.Context, userID primitive.ObjectID, excluding []primitive.ObjectID, limit int64) ([]models.UserRef, error)
}

// ChatStore persists conversations and their messages.
type ChatStore interface {
	CreateChat(ctx context.Context, chat *models.Chat) error
	GetChat(ctx context.Context, id primitive.ObjectID) (*models.Chat, error)
	ListChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.ChatSummary, error)

	InsertMessage(ctx context.Context, msg *models.Message) error
	SetLastMessage(ctx context.Context, chatID, messageID primitive.ObjectID) error
	// ListMessages returns messages newest-first; callers reverse for display.
	ListMessages(ctx context.Context, chatID primitive.ObjectID, skip, limit int64) ([]models.Message, error)
	// MarkMessageRead adds the reader to the message's read set (set semantics).
	MarkMessageRead(ctx context.Context, messageID, readerID primitive.ObjectID) error
}

// PostStore persists posts with their embedded comments and likes.
// Mutations use atomic update operators rather than fetch-mutate-save so
// concurrent likes/comments on the same post cannot clobber each other.
type PostStore interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error)
	List(ctx context.Context, skip, limit int64) ([]models.Post, error)
	ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Post, error)
	Delete(ctx context.Context, id primitive.ObjectID) error

	AddLike(ctx context.Context, postID, userID primitive.ObjectID) error
	RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) error
	AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) error
	RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error
	AddReply(ctx context.Context, postID, commentID primitive.ObjectID, reply models.Reply) error
}

// NotificationStore persists activity notifications.
type NotificationStore interface {
	Insert(ctx context.Context, n *models.Notification) error
	ListForUser(ctx context.Context, userID primitive.ObjectID) ([]models.Notification, error)
}
