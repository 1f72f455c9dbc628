package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// NotificationType enumerates the actions that produce a notification.
type NotificationType string

const (
	NotificationLike    NotificationType = "like"
	NotificationComment NotificationType = "comment"
	NotificationFollow  NotificationType = "follow"
	NotificationReply   NotificationType = "reply"
)

type Notification struct {
	ID          primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	RecipientID primitive.ObjectID `bson:"recipient" json:"recipient"`
	SenderID    primitive.ObjectID `bson:"sender" json:"sender"`
	Type        NotificationType   `bson:"type" json:"type"`
	PostID      primitive.ObjectID `bson:"post_id,omitempty" json:"postId,omitempty"`
	CommentID   primitive.ObjectID `bson:"comment_id,omitempty" json:"commentId,omitempty"`
	Read        bool               `bson:"read" json:"read"`
	CreatedAt   time.Time          `bson:"created_at" json:"created_at"`
}
