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

type MongoPostStore struct {
	col *mongo.Collection
}

func NewMongoPostStore(db *mongo.Database) *MongoPostStore {
	return &MongoPostStore{col: db.Collection("posts")}
}

func (s *MongoPostStore) Create(ctx context.Context, post *models.Post) error {
	now := time.Now().UTC()
	post.CreatedAt = now
	post.UpdatedAt = now
	if post.Likes == nil {
		post.Likes = []primitive.ObjectID{}
	}
	if post.Comments == nil {
		post.Comments = []models.Comment{}
	}

	res, err := s.col.InsertOne(ctx, post)
	if err != nil {
		return err
	}
	post.ID = res.InsertedID.(primitive.ObjectID)
	return nil
}

func (s *MongoPostStore) GetByID(ctx context.Context, id primitive.ObjectID) (*models.Post, error) {
	var post models.Post
	if err := s.col.FindOne(ctx, bson.M{"_id": id}).Decode(&post); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &post, nil
}

func (s *MongoPostStore) List(ctx context.Context, skip, limit int64) ([]models.Post, error) {
	return s.list(ctx, bson.M{}, skip, limit)
}

func (s *MongoPostStore) ListByUser(ctx context.Context, userID primitive.ObjectID, skip, limit int64) ([]models.Post, error) {
	return s.list(ctx, bson.M{"user": userID}, skip, limit)
}

func (s *MongoPostStore) list(ctx context.Context, filter bson.M, skip, limit int64) ([]models.Post, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetSkip(skip).
		SetLimit(limit)

	cur, err := s.col.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var posts []models.Post
	if err := cur.All(ctx, &posts); err != nil {
		return nil, err
	}
	return posts, nil
}

func (s *MongoPostStore) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// AddLike and RemoveLike use atomic set operators so two users liking the
// same post concurrently cannot drop each other's like.
func (s *MongoPostStore) AddLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return s.updateByID(ctx, postID, bson.M{"$addToSet": bson.M{"likes": userID}})
}

func (s *MongoPostStore) RemoveLike(ctx context.Context, postID, userID primitive.ObjectID) error {
	return s.updateByID(ctx, postID, bson.M{"$pull": bson.M{"likes": userID}})
}

func (s *MongoPostStore) AddComment(ctx context.Context, postID primitive.ObjectID, comment models.Comment) error {
	return s.updateByID(ctx, postID, bson.M{"$push": bson.M{"comments": comment}})
}

func (s *MongoPostStore) RemoveComment(ctx context.Context, postID, commentID primitive.ObjectID) error {
	return s.updateByID(ctx, postID, bson.M{
		"$pull": bson.M{"comments": bson.M{"_id": commentID}},
	})
}

// AddReply pushes onto the embedded replies array of one comment,
// addressed with an array filter.
func (s *MongoPostStore) AddReply(ctx context.Context, postID, commentID primitive.ObjectID, reply models.Reply) error {
	res, err := s.col.UpdateOne(ctx,
		bson.M{"_id": postID},
		bson.M{"$push": bson.M{"comments.$[c].replies": reply}},
		options.Update().SetArrayFilters(options.ArrayFilters{
			Filters: []interface{}{bson.M{"c._id": commentID}},
		}),
	)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 || res.ModifiedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *MongoPostStore) updateByID(ctx context.Context, id primitive.ObjectID, update bson.M) error {
	update["$set"] = bson.M{"updated_at": time.Now().UTC()}
	res, err := s.col.UpdateByID(ctx, id, update)
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
