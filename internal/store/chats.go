package store

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/devlinkhq/devlink-backend/internal/models"
)

type MongoChatStore struct {
	chats    *mongo.Collection
	messages *mongo.Collection
	users    *mongo.Collection
}

func NewMongoChatStore(db *mongo.Database) *MongoChatStore {
	return &MongoChatStore{
		chats:    db.Collection("chats"),
		messages: db.Collection("messages"),
		users:    db.Collection("users"),
	}
}

func (s *MongoChatStore) CreateChat(ctx context.Context, chat *models.Chat) error {
	now := time.Now().UTC()
	chat.CreatedAt = now
	chat.UpdatedAt = now

	res, err := s.chats.InsertOne(ctx, chat)
	if err != nil {
		return err
	}
	chat.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoChatStore) GetChat(ctx context.Context, id primitive.ObjectID) (*models.Chat, error) {
	var chat models.Chat
	if err := s.chats.FindOne(ctx, bson.M{"_id": id}).Decode(&chat); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &chat, nil
}

// ListChatsForUser returns every chat the user participates in, with
// participants and the last message populated.
func (s *MongoChatStore) ListChatsForUser(ctx context.Context, userID primitive.ObjectID) ([]models.ChatSummary, error) {
	cur, err := s.chats.Find(ctx, bson.M{"participants": userID},
		options.Find().SetSort(bson.D{{Key: "updated_at", Value: -1}}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var chats []models.Chat
	if err := cur.All(ctx, &chats); err != nil {
		return nil, err
	}

	summaries := make([]models.ChatSummary, 0, len(chats))
	for _, chat := range chats {
		summary := models.ChatSummary{
			ID:        chat.ID,
			IsGroup:   chat.IsGroup,
			GroupName: chat.GroupName,
			CreatedAt: chat.CreatedAt,
		}

		refs, err := s.findParticipantRefs(ctx, chat.Participants)
		if err != nil {
			return nil, err
		}
		summary.Participants = refs

		if !chat.LastMessage.IsZero() {
			var msg models.Message
			err := s.messages.FindOne(ctx, bson.M{"_id": chat.LastMessage}).Decode(&msg)
			if err == nil {
				summary.LastMessage = &msg
			} else if !errors.Is(err, mongo.ErrNoDocuments) {
				return nil, err
			}
		}

		summaries = append(summaries, summary)
	}
	return summaries, nil
}

func (s *MongoChatStore) findParticipantRefs(ctx context.Context, ids []primitive.ObjectID) ([]models.UserRef, error) {
	if len(ids) == 0 {
		return []models.UserRef{}, nil
	}
	opts := options.Find().SetProjection(bson.M{"username": 1, "avatar": 1})
	cur, err := s.users.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var refs []models.UserRef
	if err := cur.All(ctx, &refs); err != nil {
		return nil, err
	}
	return refs, nil
}

func (s *MongoChatStore) InsertMessage(ctx context.Context, msg *models.Message) error {
	if msg.CreatedAt.IsZero() {
		msg.CreatedAt = time.Now().UTC()
	}

	res, err := s.messages.InsertOne(ctx, msg)
	if err != nil {
		return err
	}
	msg.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoChatStore) SetLastMessage(ctx context.Context, chatID, messageID primitive.ObjectID) error {
	_, err := s.chats.UpdateByID(ctx, chatID, bson.M{
		"$set": bson.M{"last_message": messageID, "updated_at": time.Now().UTC()},
	})
	return err
}

func (s *MongoChatStore) ListMessages(ctx context.Context, chatID primitive.ObjectID, skip, limit int64) ([]models.Message, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.messages.Find(ctx, bson.M{"chat": chatID}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var msgs []models.Message
	if err := cur.All(ctx, &msgs); err != nil {
		return nil, err
	}
	return msgs, nil
}

// MarkMessageRead adds the reader to read_by with set semantics, so
// repeated receipts from the same reader stay idempotent.
func (s *MongoChatStore) MarkMessageRead(ctx context.Context, messageID, readerID primitive.ObjectID) error {
	res, err := s.messages.UpdateByID(ctx, messageID, bson.M{
		"$addToSet": bson.M{"read_by": readerID},
	})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EnsureChatIndexes configures the indexes backing chat listing and
// message pagination. Called on startup after Mongo has connected.
func EnsureChatIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[*mongo.Collection]mongo.IndexModel{
		db.Collection("chats"): {
			Keys:    bson.D{{Key: "participants", Value: 1}},
			Options: options.Index().SetName("idx_participants"),
		},
		db.Collection("messages"): {
			Keys: bson.D{
				{Key: "chat", Value: 1},
				{Key: "created_at", Value: -1},
			},
			Options: options.Index().SetName("idx_chat_created"),
		},
	}
	for col, m := range indexes {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
