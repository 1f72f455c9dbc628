package main

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/devlinkhq/devlink-backend/internal/auth"
	"github.com/devlinkhq/devlink-backend/internal/config"
	"github.com/devlinkhq/devlink-backend/internal/database"
	"github.com/devlinkhq/devlink-backend/internal/handlers"
	"github.com/devlinkhq/devlink-backend/internal/logger"
	"github.com/devlinkhq/devlink-backend/internal/middleware"
	"github.com/devlinkhq/devlink-backend/internal/realtime"
	"github.com/devlinkhq/devlink-backend/internal/routes"
	"github.com/devlinkhq/devlink-backend/internal/services"
	"github.com/devlinkhq/devlink-backend/internal/store"
)

func main() {
	// No .env file is fine in production.
	_ = godotenv.Load()
	cfg := config.Load()
	log := logger.New(cfg.Environment)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Connect to MongoDB
	log.Info().Msg("connecting to MongoDB")
	mongoClient, db, err := database.ConnectMongo(cfg.MongoURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to MongoDB")
	}
	defer database.DisconnectMongo(mongoClient)
	log.Info().Msg("connected to MongoDB")

	// Connect to Redis
	log.Info().Msg("connecting to Redis")
	redisClient, err := database.ConnectRedis(cfg.RedisURI)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to Redis")
	}
	defer redisClient.Close()
	log.Info().Msg("connected to Redis")

	// Ensure indexes
	if err := store.EnsureUserIndexes(ctx, db); err != nil {
		log.Warn().Err(err).Msg("failed to ensure user indexes")
	}
	if err := store.EnsureChatIndexes(ctx, db); err != nil {
		log.Warn().Err(err).Msg("failed to ensure chat indexes")
	}

	// Stores
	users := store.NewMongoUserStore(db)
	chats := store.NewMongoChatStore(db)
	posts := store.NewMongoPostStore(db)
	notifications := store.NewMongoNotificationStore(db)

	// Auth
	sessions := auth.NewRedisSessionRegistry(redisClient)
	issuer := auth.NewIssuer(cfg.JWTSecret, auth.TokenTTL, sessions)
	verifier := auth.NewVerifier(cfg.JWTSecret)
	authenticator := auth.NewAuthenticator(verifier, sessions)

	// Realtime fan-out
	bus := realtime.NewRedisBus(redisClient, log)
	hub := realtime.NewHub()
	gateway := realtime.NewGateway(verifier, hub, chats, bus, log)

	// Single shared subscriber relays bus events to local rooms.
	go bus.Subscribe(ctx, gateway.Relay)

	// Cloudinary (optional)
	var cloudinarySvc *services.CloudinaryService
	if cfg.CloudinaryName != "" && cfg.CloudinaryAPIKey != "" && cfg.CloudinaryAPISecret != "" {
		cloudinarySvc, err = services.NewCloudinaryService(cfg.CloudinaryName, cfg.CloudinaryAPIKey, cfg.CloudinaryAPISecret)
		if err != nil {
			log.Warn().Err(err).Msg("failed to initialize Cloudinary; file uploads disabled")
			cloudinarySvc = nil
		} else {
			log.Info().Msg("Cloudinary service initialized")
		}
	} else {
		log.Warn().Msg("Cloudinary credentials not found; file uploads disabled")
	}

	cache := services.NewCache(redisClient)

	// Router
	r := chi.NewRouter()
	r.Use(middleware.CORS(cfg.AllowedOrigins))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})

	routes.Setup(r, routes.Deps{
		Authenticator: authenticator,
		Auth:          handlers.NewAuthHandler(users, issuer, sessions, log),
		Chat:          handlers.NewChatHandler(chats, bus, log),
		Posts:         handlers.NewPostHandler(posts, notifications, log),
		Social:        handlers.NewSocialHandler(users, notifications, log),
		Users:         handlers.NewUserHandler(users, cache, log),
		Notifications: handlers.NewNotificationHandler(notifications, log),
		Upload:        handlers.NewUploadHandler(cloudinarySvc, log),
		Gateway:       gateway,
		Redis:         redisClient,
	})

	log.Info().Str("port", cfg.Port).Msg("devlink backend running")
	if err := http.ListenAndServe(":"+cfg.Port, r); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}
