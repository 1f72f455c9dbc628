package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/devlinkhq/devlink-backend/internal/models"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

// fakePostStore keeps posts in memory with the same set semantics the
// real store gets from atomic update operators.
type fakePostStore struct {
	posts map[primitive.ObjectID]*models.Post
}

func newFakePostStore() *fakePostStore {
	return &fakePostStore{posts: make(map[primitive.ObjectID]*models.Post)}
}

func (f *fakePostStore) Create(_ context.Context, post *models.Post) error {
	post.ID = primitive.NewObjectID()
	f.posts[post.ID] = post
	return nil
}

func (f *fakePostStore) GetByID(_ context.Context, id primitive.ObjectID) (*models.Post, error) {
	post, ok := f.posts[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	clone := *post
	return &clone, nil
}

func (f *fakePostStore) List(context.Context, int64, int64) ([]models.Post, error) {
	return nil, nil
}

func (f *fakePostStore) ListByUser(context.Context, primitive.ObjectID, int64, int64) ([]models.Post, error) {
	return nil, nil
}

func (f *fakePostStore) Delete(_ context.Context, id primitive.ObjectID) error {
	delete(f.posts, id)
	return nil
}

func (f *fakePostStore) AddLike(_ context.Context, postID, userID primitive.ObjectID) error {
	post, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	for _, id := range post.Likes {
		if id == userID {
			return nil
		}
	}
	post.Likes = append(post.Likes, userID)
	return nil
}

func (f *fakePostStore) RemoveLike(_ context.Context, postID, userID primitive.ObjectID) error {
	post, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	kept := post.Likes[:0]
	for _, id := range post.Likes {
		if id != userID {
			kept = append(kept, id)
		}
	}
	post.Likes = kept
	return nil
}

func (f *fakePostStore) AddComment(_ context.Context, postID primitive.ObjectID, comment models.Comment) error {
	post, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	post.Comments = append(post.Comments, comment)
	return nil
}

func (f *fakePostStore) RemoveComment(_ context.Context, postID, commentID primitive.ObjectID) error {
	post, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	kept := post.Comments[:0]
	for _, c := range post.Comments {
		if c.ID != commentID {
			kept = append(kept, c)
		}
	}
	post.Comments = kept
	return nil
}

func (f *fakePostStore) AddReply(_ context.Context, postID, commentID primitive.ObjectID, reply models.Reply) error {
	post, ok := f.posts[postID]
	if !ok {
		return store.ErrNotFound
	}
	for i := range post.Comments {
		if post.Comments[i].ID == commentID {
			post.Comments[i].Replies = append(post.Comments[i].Replies, reply)
			return nil
		}
	}
	return store.ErrNotFound
}

type fakeNotificationStore struct {
	inserted []*models.Notification
}

func (f *fakeNotificationStore) Insert(_ context.Context, n *models.Notification) error {
	f.inserted = append(f.inserted, n)
	return nil
}

func (f *fakeNotificationStore) ListForUser(context.Context, primitive.ObjectID) ([]models.Notification, error) {
	return nil, nil
}

func postRouter(h *PostHandler) *chi.Mux {
	r := chi.NewRouter()
	r.Post("/api/posts/create", h.CreatePost)
	r.Put("/api/posts/likepost/{postId}", h.ToggleLike)
	r.Post("/api/posts/{postId}/comment", h.AddComment)
	r.Post("/api/posts/{postId}/comment/{commentId}/replycomment", h.ReplyToComment)
	r.Delete("/api/posts/{postId}", h.DeletePost)
	return r
}

func seedPost(f *fakePostStore, author primitive.ObjectID) *models.Post {
	post := &models.Post{UserID: author, Content: "initial content"}
	_ = f.Create(context.Background(), post)
	return post
}

func toggleLike(t *testing.T, h *PostHandler, postID, userID primitive.ObjectID) map[string]interface{} {
	t.Helper()
	req := asIdentity(httptest.NewRequest(http.MethodPut, "/api/posts/likepost/"+postID.Hex(), nil), userID)
	rec := httptest.NewRecorder()
	postRouter(h).ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp
}

func TestToggleLike_AddThenRemove(t *testing.T) {
	posts := newFakePostStore()
	notifications := &fakeNotificationStore{}
	h := NewPostHandler(posts, notifications, zerolog.Nop())

	author := primitive.NewObjectID()
	liker := primitive.NewObjectID()
	post := seedPost(posts, author)

	resp := toggleLike(t, h, post.ID, liker)
	assert.Equal(t, "Post liked", resp["message"])
	assert.Equal(t, float64(1), resp["likesCount"])
	// Liking someone else's post notifies the author.
	require.Len(t, notifications.inserted, 1)
	assert.Equal(t, models.NotificationLike, notifications.inserted[0].Type)

	resp = toggleLike(t, h, post.ID, liker)
	assert.Equal(t, "Like removed", resp["message"])
	assert.Equal(t, float64(0), resp["likesCount"])
	assert.Empty(t, posts.posts[post.ID].Likes)
}

func TestToggleLike_NoDuplicateLikes(t *testing.T) {
	posts := newFakePostStore()
	h := NewPostHandler(posts, &fakeNotificationStore{}, zerolog.Nop())

	post := seedPost(posts, primitive.NewObjectID())
	liker := primitive.NewObjectID()

	// A repeated add under the membership check's nose stays a set op.
	require.NoError(t, posts.AddLike(context.Background(), post.ID, liker))
	require.NoError(t, posts.AddLike(context.Background(), post.ID, liker))
	assert.Len(t, posts.posts[post.ID].Likes, 1)

	resp := toggleLike(t, h, post.ID, liker)
	assert.Equal(t, "Like removed", resp["message"])
	assert.Equal(t, float64(0), resp["likesCount"])
}

func TestToggleLike_OwnPostDoesNotNotify(t *testing.T) {
	posts := newFakePostStore()
	notifications := &fakeNotificationStore{}
	h := NewPostHandler(posts, notifications, zerolog.Nop())

	author := primitive.NewObjectID()
	post := seedPost(posts, author)

	resp := toggleLike(t, h, post.ID, author)
	assert.Equal(t, "Post liked", resp["message"])
	assert.Empty(t, notifications.inserted)
}

func TestDeletePost_OnlyAuthor(t *testing.T) {
	posts := newFakePostStore()
	h := NewPostHandler(posts, &fakeNotificationStore{}, zerolog.Nop())

	post := seedPost(posts, primitive.NewObjectID())
	stranger := primitive.NewObjectID()

	req := asIdentity(httptest.NewRequest(http.MethodDelete, "/api/posts/"+post.ID.Hex(), nil), stranger)
	rec := httptest.NewRecorder()
	postRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Contains(t, rec.Body.String(), "You are not authorized to delete this post")
	_, err := posts.GetByID(context.Background(), post.ID)
	assert.NoError(t, err)
}

func TestReplyToComment_UnknownComment(t *testing.T) {
	posts := newFakePostStore()
	h := NewPostHandler(posts, &fakeNotificationStore{}, zerolog.Nop())

	post := seedPost(posts, primitive.NewObjectID())
	url := "/api/posts/" + post.ID.Hex() + "/comment/" + primitive.NewObjectID().Hex() + "/replycomment"
	body := bytes.NewBufferString(`{"content":"me too"}`)
	req := asIdentity(httptest.NewRequest(http.MethodPost, url, body), primitive.NewObjectID())
	rec := httptest.NewRecorder()
	postRouter(h).ServeHTTP(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), "Comment not found")
}

func TestAddComment_AppendsAndNotifies(t *testing.T) {
	posts := newFakePostStore()
	notifications := &fakeNotificationStore{}
	h := NewPostHandler(posts, notifications, zerolog.Nop())

	post := seedPost(posts, primitive.NewObjectID())
	commenter := primitive.NewObjectID()

	body := bytes.NewBufferString(`{"content":"nice snippet"}`)
	req := asIdentity(httptest.NewRequest(http.MethodPost, "/api/posts/"+post.ID.Hex()+"/comment", body), commenter)
	rec := httptest.NewRecorder()
	postRouter(h).ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, posts.posts[post.ID].Comments, 1)
	assert.Equal(t, "nice snippet", posts.posts[post.ID].Comments[0].Text)
	require.Len(t, notifications.inserted, 1)
	assert.Equal(t, models.NotificationComment, notifications.inserted[0].Type)
}
