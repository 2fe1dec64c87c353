package router

import (
	"context"
	"log"
	"time"

	"github.com/anonto42/nano-forum/backend/internal/handlers"
	"github.com/anonto42/nano-forum/backend/internal/middleware"
	"github.com/anonto42/nano-forum/backend/internal/models"
	"github.com/anonto42/nano-forum/backend/internal/repositories"
	"github.com/anonto42/nano-forum/backend/internal/repositories/memory"
	"github.com/anonto42/nano-forum/backend/internal/services"
	"github.com/anonto42/nano-forum/backend/internal/validators"
	"github.com/anonto42/nano-forum/backend/pkg/config"
	"github.com/anonto42/nano-forum/backend/pkg/mailer"
	"github.com/labstack/echo/v4"
	"go.mongodb.org/mongo-driver/mongo"
	"gorm.io/gorm"
)

// Repositories is the storage the services run on
type Repositories struct {
	Users         repositories.UserRepository
	Posts         repositories.PostRepository
	Replies       repositories.ReplyRepository
	Likes         repositories.LikeRepository
	Notifications repositories.NotificationRepository
}

// MemoryRepositories backs every repository with one in-memory store
func MemoryRepositories(store *memory.Store) *Repositories {
	return &Repositories{
		Users:         store.Users,
		Posts:         store.Posts,
		Replies:       store.Replies,
		Likes:         store.Likes,
		Notifications: store.Notifications,
	}
}

// NewRepositories migrates the SQL schema and wires users, likes and
// notifications to it and posts and replies to MongoDB. Without a Mongo
// client every repository shares one in-memory store.
func NewRepositories(ctx context.Context, sqlDB *gorm.DB, mongoClient *mongo.Client, mongoDatabase string) (*Repositories, error) {
	if mongoClient == nil {
		log.Println("Using in-memory repositories.")
		return MemoryRepositories(memory.NewStore()), nil
	}

	if err := sqlDB.WithContext(ctx).AutoMigrate(&models.User{}, &models.Like{}, &models.Notification{}); err != nil {
		return nil, err
	}
	log.Println("SQL auto-migrations completed.")

	repos := &Repositories{
		Users:         repositories.NewPostgresUserRepository(sqlDB),
		Likes:         repositories.NewPostgresLikeRepository(sqlDB),
		Notifications: repositories.NewPostgresNotificationRepository(sqlDB),
	}

	database := mongoClient.Database(mongoDatabase)
	posts := repositories.NewMongoPostRepository(database)
	replies := repositories.NewMongoReplyRepository(database)
	if err := posts.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	if err := replies.EnsureIndexes(ctx); err != nil {
		return nil, err
	}
	log.Println("MongoDB indexes ensured.")
	repos.Posts, repos.Replies = posts, replies
	return repos, nil
}

// Options carries the collaborators the services need besides storage
type Options struct {
	Tokens        *services.TokenIssuer
	Mailer        mailer.Mailer
	Verifier      services.TokenVerifier
	Tasks         services.TaskRunner
	FrontendURL   string
	SecureCookies bool
}

// SetupRoutes builds the services and registers every route
func SetupRoutes(e *echo.Echo, repos *Repositories, opts Options) {
	dispatcher := services.NewNotificationDispatcher(repos.Notifications)
	forum := services.NewForumService(repos.Users, repos.Posts, repos.Replies, repos.Likes, repos.Notifications, dispatcher, opts.Tasks)
	likes := services.NewLikeLedger(repos.Likes, repos.Posts, repos.Replies, repos.Users, dispatcher)
	users := services.NewUserService(repos.Users, forum)
	auth := services.NewAuthService(repos.Users, opts.Tokens, opts.Mailer, opts.Verifier, opts.FrontendURL)

	e.GET("/health", handlers.HealthCheck)

	handlers.NewAuthHandler(auth, opts.SecureCookies).RegisterAuthRoutes(e.Group("/auth"))

	requireJWT := middleware.JWTAuthMiddleware(opts.Tokens)
	handlers.NewUserHandler(users, likes, forum).RegisterUserRoutes(e.Group("/users"), e.Group("/users", requireJWT))
	handlers.NewPostHandler(models.KindForum, forum).RegisterPostRoutes(e.Group("/forums", requireJWT))
	handlers.NewPostHandler(models.KindNote, forum).RegisterPostRoutes(e.Group("/notes", requireJWT))
	handlers.NewReplyHandler(forum).RegisterReplyRoutes(e.Group("/replies", requireJWT))
	handlers.NewLikeHandler(likes).RegisterLikeRoutes(e.Group("/likes", requireJWT))
	handlers.NewNotificationHandler(dispatcher).RegisterNotificationRoutes(e.Group("/notifications", requireJWT))

	log.Println("All routes configured.")
}

// NewServer assembles Echo with middleware, validation and routes
func NewServer(cfg *config.Config, repos *Repositories, opts Options) *echo.Echo {
	e := echo.New()
	e.HideBanner = true
	config.SetupMiddleware(e, cfg)
	e.Validator = validators.NewValidator()
	SetupRoutes(e, repos, opts)
	e.Server.ReadHeaderTimeout = 5 * time.Second
	return e
}
