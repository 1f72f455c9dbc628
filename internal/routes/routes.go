package routes

import (
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/handlers"
	"github.com/devlinkhq/devlink-backend/internal/middleware"
	"github.com/devlinkhq/devlink-backend/internal/realtime"
)

// Deps carries everything the route table wires together.
type Deps struct {
	Authenticator *auth.Authenticator
	Auth          *handlers.AuthHandler
	Chat          *handlers.ChatHandler
	Posts         *handlers.PostHandler
	Social        *handlers.SocialHandler
	Users         *handlers.UserHandler
	Notifications *handlers.NotificationHandler
	Upload        *handlers.UploadHandler
	Gateway       *realtime.Gateway
	Redis         *redis.Client
}

func Setup(r *chi.Mux, d Deps) {
	authGate := d.Authenticator.Middleware

	// Auth routes; signup/login are rate limited to slow brute forcing.
	r.Route("/api/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthRateLimit(d.Redis))
			r.Post("/signup", d.Auth.Signup)
			r.Post("/login", d.Auth.Login)
		})
		r.With(authGate).Post("/logout", d.Auth.Logout)
	})

	// Chat routes (all protected)
	r.Route("/api/chat", func(r chi.Router) {
		r.Use(authGate)
		r.Post("/", d.Chat.CreateChat)
		r.Get("/", d.Chat.GetChats)
		r.Post("/{chatId}/messages", d.Chat.SendMessage)
		r.Get("/{chatId}/messages", d.Chat.GetMessages)
		r.Patch("/{chatId}/messages/{messageId}/read", d.Chat.MarkAsRead)
	})

	// Post routes; the global feed and single-post view are public.
	r.Route("/api/posts", func(r chi.Router) {
		r.Get("/", d.Posts.GetAllPosts)

		r.Group(func(r chi.Router) {
			r.Use(authGate)
			r.Post("/", d.Posts.CreatePost)
			r.Get("/allmyposts", d.Posts.GetPostsByUser)
			r.Delete("/{postId}", d.Posts.DeletePost)
			r.Post("/likepost/{postId}", d.Posts.ToggleLike)
			r.Post("/{postId}/comment", d.Posts.AddComment)
			r.Post("/{postId}/comment/{commentId}/replycomment", d.Posts.ReplyToComment)
			r.Delete("/{postId}/comments/{commentId}", d.Posts.DeleteComment)
		})

		r.Get("/{postId}", d.Posts.GetPostByID)
	})

	// Social graph routes
	r.Route("/api/social", func(r chi.Router) {
		r.Use(authGate)
		r.Post("/follow/{id}", d.Social.FollowUser)
		r.Post("/unfollow/{id}", d.Social.UnfollowUser)
		r.Get("/followers", d.Social.GetFollowers)
		r.Get("/following", d.Social.GetFollowing)
		r.Get("/suggestions", d.Social.GetSuggestions)
	})

	// Public profile lookup (cached)
	r.Get("/api/users/getprofile/{id}", d.Users.GetProfile)

	// Notifications
	r.With(authGate).Get("/api/notifications", d.Notifications.GetNotifications)

	// File uploads
	r.With(authGate).Post("/api/upload", d.Upload.UploadFile)

	// WebSocket endpoint for realtime chat
	r.Get("/ws", d.Gateway.HandleWS)
}
