package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// CodeSnippet is an optional code attachment on a post.
type CodeSnippet struct {
	Code     string `bson:"code,omitempty" json:"code,omitempty"`
	Language string `bson:"language,omitempty" json:"language,omitempty"`
}

type Reply struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
}

type Comment struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"id"`
	UserID    primitive.ObjectID `bson:"user" json:"user"`
	Text      string             `bson:"text" json:"text"`
	CreatedAt time.Time          `bson:"created_at" json:"created_at"`
	Replies   []Reply            `bson:"replies,omitempty" json:"replies,omitempty"`
}

type Post struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty" json:"id"`
	UserID      primitive.ObjectID   `bson:"user" json:"user"`
	Content     string               `bson:"content" json:"content"`
	CodeSnippet *CodeSnippet         `bson:"code_snippet,omitempty" json:"codeSnippet,omitempty"`
	Images      []string             `bson:"images,omitempty" json:"images,omitempty"`
	Likes       []primitive.ObjectID `bson:"likes" json:"likes"`
	Comments    []Comment            `bson:"comments" json:"comments"`
	CreatedAt   time.Time            `bson:"created_at" json:"created_at"`
	UpdatedAt   time.Time            `bson:"updated_at" json:"updated_at"`
}

// LikedBy reports whether the given user id is present in the likes set.
func (p *Post) LikedBy(id primitive.ObjectID) bool {
	for _, l := range p.Likes {
		if l == id {
			return true
		}
	}
	return false
}
