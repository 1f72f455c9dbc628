package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Chat is a conversation between two or more users. Direct chats have
// exactly two participants; group chats carry a display name.
type Chat struct {
	ID           primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	Participants []primitive.ObjectID `bson:"participants" json:"participants"`
	IsGroup      bool                 `bson:"is_group" json:"isGroup"`
	GroupName    string               `bson:"group_name,omitempty" json:"groupName,omitempty"`
	LastMessage  primitive.ObjectID   `bson:"last_message,omitempty" json:"lastMessage,omitempty"`
	CreatedAt    time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt    time.Time            `bson:"updated_at" json:"updated_at"`
}

// ChatSummary is a chat with participants and last message populated,
// returned by the chat listing endpoint.
type ChatSummary struct {
	ID           primitive.ObjectID `bson:"_id" json:"id"`
	Participants []UserRef          `json:"participants"`
	IsGroup      bool               `json:"isGroup"`
	GroupName    string             `json:"groupName,omitempty"`
	LastMessage  *Message           `json:"lastMessage,omitempty"`
	CreatedAt    time.Time          `json:"created_at"`
}

// Message is a single chat message. The sender is always part of ReadBy
// from the moment the message is created.
type Message struct {
	ID        primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	ChatID    primitive.ObjectID   `bson:"chat" json:"chat"`
	SenderID  primitive.ObjectID   `bson:"sender" json:"sender"`
	Text      string               `bson:"text" json:"text"`
	ReadBy    []primitive.ObjectID `bson:"read_by" json:"readBy"`
	CreatedAt time.Time            `bson:"created_at" json:"created_at"`
}
