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

type MongoUserStore struct {
	col *mongo.Collection
}

func NewMongoUserStore(db *mongo.Database) *MongoUserStore {
	return &MongoUserStore{col: db.Collection("users")}
}

func (s *MongoUserStore) Create(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Avatar == "" {
		user.Avatar = models.DefaultAvatarURL
	}
	if user.Followers == nil {
		user.Followers = []primitive.ObjectID{}
	}
	if user.Following == nil {
		user.Following = []primitive.ObjectID{}
	}

	res, err := s.col.InsertOne(ctx, user)
	if err != nil {
		return err
	}
	user.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoUserStore) FindByID(ctx context.Context, id primitive.ObjectID) (*models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *MongoUserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"email": email})
}

func (s *MongoUserStore) FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return s.findOne(ctx, bson.M{"$or": bson.A{
		bson.M{"username": username},
		bson.M{"email": email},
	}})
}

func (s *MongoUserStore) findOne(ctx context.Context, filter bson.M) (*models.User, error) {
	var user models.User
	if err := s.col.FindOne(ctx, filter).Decode(&user); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (s *MongoUserStore) FindRefs(ctx context.Context, ids []primitive.ObjectID) ([]models.UserRef, error) {
	if len(ids) == 0 {
		return []models.UserRef{}, nil
	}

	opts := options.Find().SetProjection(bson.M{"username": 1, "avatar": 1})
	cur, err := s.col.Find(ctx, bson.M{"_id": bson.M{"$in": ids}}, opts)
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

// Follow adds each user to the other's follower/following set. $addToSet
// keeps both writes idempotent, so a retried or interrupted follow can be
// re-applied without duplicating graph entries.
func (s *MongoUserStore) Follow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if _, err := s.col.UpdateByID(ctx, targetID, bson.M{
		"$addToSet": bson.M{"followers": followerID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	}); err != nil {
		return err
	}
	_, err := s.col.UpdateByID(ctx, followerID, bson.M{
		"$addToSet": bson.M{"following": targetID},
		"$set":      bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

// Unfollow removes both graph entries; $pull is a no-op when the entry is
// already gone, so it shares Follow's re-run safety.
func (s *MongoUserStore) Unfollow(ctx context.Context, followerID, targetID primitive.ObjectID) error {
	if _, err := s.col.UpdateByID(ctx, targetID, bson.M{
		"$pull": bson.M{"followers": followerID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	}); err != nil {
		return err
	}
	_, err := s.col.UpdateByID(ctx, followerID, bson.M{
		"$pull": bson.M{"following": targetID},
		"$set":  bson.M{"updated_at": time.Now().UTC()},
	})
	return err
}

func (s *MongoUserStore) Suggestions(ctx context.Context, userID primitive.ObjectID, excluding []primitive.ObjectID, limit int64) ([]models.UserRef, error) {
	if limit <= 0 {
		limit = 10
	}

	filter := bson.M{"_id": bson.M{"$ne": userID, "$nin": excluding}}
	opts := options.Find().
		SetProjection(bson.M{"username": 1, "email": 1, "avatar": 1}).
		SetLimit(limit)

	cur, err := s.col.Find(ctx, filter, opts)
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

// EnsureUserIndexes creates the unique username/email indexes.
func EnsureUserIndexes(ctx context.Context, db *mongo.Database) error {
	col := db.Collection("users")
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "username", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_username_unique"),
		},
		{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_email_unique"),
		},
	}
	for _, m := range indexes {
		if _, err := col.Indexes().CreateOne(ctx, m); err != nil {
			return err
		}
	}
	return nil
}
