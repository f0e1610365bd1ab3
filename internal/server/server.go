// Package server contains the HTTP handlers for the geofeed API.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"geofeed/internal/cache"
	"geofeed/internal/config"
	"geofeed/internal/database"
	"geofeed/internal/geocoding"
	"geofeed/internal/middleware"
	"geofeed/internal/models"
	"geofeed/internal/repository"
	"geofeed/internal/service"

	"github.com/ansrivas/fiberprometheus/v2"
	"github.com/goccy/go-json"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/helmet"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Server holds all dependencies and provides handlers
type Server struct {
	config         *config.Config
	db             *gorm.DB
	redis          *redis.Client
	app            *fiber.App
	promMiddleware *fiberprometheus.FiberPrometheus
	auth           *middleware.Authenticator
	rateLimiter    *middleware.RateLimiter

	feed            FeedProvider
	geo             GeoProvider
	recommendations Recommender

	postService        *service.PostService
	commentService     *service.CommentService
	userService        *service.UserService
	interactionService *service.InteractionService
}

// NewServer connects to Postgres and Redis and builds the server on top of them.
func NewServer(cfg *config.Config) (*Server, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, fmt.Errorf("database connection failed: %w", err)
	}

	redisClient := cache.NewRedisClient(cfg.RedisURL)

	server, err := NewServerWithDeps(cfg, db, redisClient)
	if err != nil {
		return nil, err
	}
	server.promMiddleware = middleware.InitMetrics("geofeed-api")
	return server, nil
}

// NewServerWithDeps creates a Server using already-initialized dependencies.
// redisClient may be nil, in which case clusters are cached in process and
// per-route rate limits are off.
func NewServerWithDeps(cfg *config.Config, db *gorm.DB, redisClient *redis.Client) (*Server, error) {
	if db == nil {
		return nil, errors.New("server requires a database")
	}

	userRepo := repository.NewUserRepository(db)
	postRepo := repository.NewPostRepository(db)
	commentRepo := repository.NewCommentRepository(db)
	followRepo := repository.NewFollowRepository(db)
	reactionRepo := repository.NewReactionRepository(db)
	geoRepo := repository.NewGeoRepository(db)

	var store cache.Store
	if redisClient != nil {
		store = cache.NewRedisStore(redisClient, cache.KeyPrefix)
	} else {
		store = cache.NewMemoryStore()
	}

	geocoder := geocoding.NewLocationIQClient(geocoding.LocationIQConfig{
		APIKey:  cfg.LocationIQAPIKey,
		BaseURL: cfg.LocationIQBaseURL,
		Timeout: cfg.GeocodeTimeout(),
	})

	paging := service.Paging{Default: cfg.FeedDefaultPageSize, Max: cfg.FeedMaxPageSize}

	s := &Server{
		config:      cfg,
		db:          db,
		redis:       redisClient,
		auth:        middleware.NewAuthenticator(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTAudience),
		rateLimiter: middleware.NewRateLimiter(redisClient, redisClient != nil, middleware.FailOpen),
		feed:        service.NewFeedService(postRepo, userRepo, followRepo, reactionRepo, paging, cfg.FeedTopWindow()),
		geo: service.NewGeoService(geoRepo, postRepo, userRepo, geocoder, store, service.GeoConfig{
			ClusterCount: cfg.ClusterCount,
			ClusterTTL:   cfg.ClusterCacheTTL(),
			GeocodeDelay: cfg.GeocodeDelay(),
		}),
		recommendations: service.NewRecommendationService(followRepo, cfg.RecommendationLimit,
			service.NewLocationTier(postRepo, userRepo, cfg.RecommendationRadiusMeters),
			service.NewPopularityTier(userRepo),
		),
		postService:        service.NewPostService(postRepo, userRepo, reactionRepo),
		commentService:     service.NewCommentService(commentRepo, postRepo, userRepo, reactionRepo, paging),
		userService:        service.NewUserService(userRepo, followRepo, paging),
		interactionService: service.NewInteractionService(postRepo, commentRepo, userRepo, reactionRepo, followRepo),
	}
	return s, nil
}

// NewApp creates the fiber app with the API error handler and goccy JSON codec.
func NewApp() *fiber.App {
	return fiber.New(fiber.Config{
		AppName:      "geofeed API",
		BodyLimit:    1024 * 1024,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
		ErrorHandler: errorHandler,
	})
}

func errorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		return c.Status(fe.Code).JSON(models.ErrorResponse{Error: fe.Message})
	}
	middleware.Logger.ErrorContext(c.UserContext(), "unhandled error", slog.String("error", err.Error()))
	return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
}

// SetupMiddleware configures middleware for the Fiber app
func (s *Server) SetupMiddleware(app *fiber.App) {
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(middleware.TracingMiddleware())
	app.Use(middleware.ContextMiddleware())

	if s.promMiddleware != nil {
		app.Use(middleware.MetricsMiddleware(s.promMiddleware))
	}

	app.Use(helmet.New())
	app.Use(middleware.StructuredLogger())

	// CORS runs before anything that can short-circuit so error responses
	// still carry the headers.
	origins := s.config.AllowedOrigins
	if origins == "" {
		origins = "http://localhost:5173,http://localhost:3000"
	}
	app.Use(cors.New(cors.Config{
		AllowOrigins: origins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PATCH,DELETE,OPTIONS",
		MaxAge:       86400,
	}))

	app.Use(limiter.New(limiter.Config{
		Max:        300,
		Expiration: time.Minute,
		Next: func(c *fiber.Ctx) bool {
			return c.Method() == fiber.MethodOptions
		},
		KeyGenerator: func(c *fiber.Ctx) string {
			return c.IP()
		},
		LimitReached: func(c *fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(models.ErrorResponse{
				Error: "Too many requests, please try again later.",
				Code:  "RATE_LIMITED",
			})
		},
	}))
}

// SetupRoutes configures all routes for the application
func (s *Server) SetupRoutes(app *fiber.App) {
	app.Get("/health/live", s.LivenessCheck)
	app.Get("/health/ready", s.ReadinessCheck)

	if s.promMiddleware != nil {
		s.promMiddleware.RegisterAt(app, "/metrics")
	}

	optional := s.auth.Optional()
	required := s.auth.Required()

	api := app.Group("/api")

	api.Get("/feed", optional, s.GetFeed)

	geo := api.Group("/geo")
	geo.Get("/heatmap", s.GetHeatmap)
	geo.Get("/clusters", s.GetClusters)
	geo.Get("/reverse", s.rateLimiter.Limit(30, time.Minute, "geo_reverse"), s.ReverseGeocode)
	geo.Get("/default", s.GetDefaultLocation)

	users := api.Group("/users")
	users.Get("/", s.SearchUsers)
	// Specific routes before the generic /:id
	users.Get("/recommendations", optional, s.GetRecommendedUsers)
	users.Get("/:id/post-locations", s.GetUserPostLocations)
	users.Post("/:id/follow", required, s.rateLimiter.Limit(30, time.Minute, "follow"), s.SetFollow)
	users.Get("/:id", optional, s.GetUserProfile)

	posts := api.Group("/posts")
	posts.Post("/", required, s.rateLimiter.Limit(10, 5*time.Minute, "create_post"), s.CreatePost)
	posts.Get("/:id/comments", optional, s.GetComments)
	posts.Post("/:id/comments", required, s.rateLimiter.Limit(10, time.Minute, "create_comment"), s.CreateComment)
	posts.Post("/:id/comments/:commentId/reaction", required, s.SetCommentReaction)
	posts.Delete("/:id/comments/:commentId", required, s.DeleteComment)
	posts.Post("/:id/reaction", required, s.SetPostReaction)
	posts.Get("/:id", optional, s.GetPost)
	posts.Patch("/:id", required, s.UpdatePost)
	posts.Delete("/:id", required, s.DeletePost)

	app.Use(func(c *fiber.Ctx) error {
		return models.RespondWithError(c, fiber.StatusNotFound,
			models.NewNotFoundError("Route", c.Method()+" "+c.Path()))
	})
}

// LivenessCheck handles liveness probe requests
func (s *Server) LivenessCheck(c *fiber.Ctx) error {
	return c.Status(fiber.StatusOK).JSON(fiber.Map{
		"status": "up",
		"time":   time.Now(),
	})
}

// ReadinessCheck reports database, PostGIS and Redis health. Redis is
// optional; without it the server runs with an in-process cluster cache.
func (s *Server) ReadinessCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 5*time.Second)
	defer cancel()

	dbStatus := "healthy"
	sqlDB, err := s.db.DB()
	if err != nil {
		dbStatus = "unhealthy"
	} else if err := sqlDB.PingContext(ctx); err != nil {
		dbStatus = "unhealthy"
	}

	spatialStatus := "healthy"
	if ok, err := database.SpatialAvailable(ctx, s.db); err != nil || !ok {
		spatialStatus = "unavailable"
	}

	redisStatus := "disabled"
	if s.redis != nil {
		redisStatus = "healthy"
		if err := s.redis.Ping(ctx).Err(); err != nil {
			redisStatus = "unhealthy"
		}
	}

	status := fiber.StatusOK
	overall := "healthy"
	if dbStatus != "healthy" || spatialStatus != "healthy" || redisStatus == "unhealthy" {
		status = fiber.StatusServiceUnavailable
		overall = "unhealthy"
	}

	return c.Status(status).JSON(fiber.Map{
		"status": overall,
		"checks": fiber.Map{
			"database": dbStatus,
			"postgis":  spatialStatus,
			"redis":    redisStatus,
		},
		"time": time.Now(),
	})
}

// Start builds the app and listens on the configured port.
func (s *Server) Start() error {
	app := NewApp()
	s.app = app

	s.SetupMiddleware(app)
	s.SetupRoutes(app)

	middleware.Logger.Info("Server starting", slog.String("port", s.config.Port))
	return app.Listen(":" + s.config.Port)
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	if s.app != nil {
		if err := s.app.ShutdownWithContext(ctx); err != nil {
			middleware.Logger.Error("error shutting down HTTP server", slog.String("error", err.Error()))
		}
	}

	if sqlDB, err := s.db.DB(); err == nil {
		if cerr := sqlDB.Close(); cerr != nil {
			middleware.Logger.Error("error closing sql DB", slog.String("error", cerr.Error()))
		}
	}

	if s.redis != nil {
		if rerr := s.redis.Close(); rerr != nil {
			middleware.Logger.Error("error closing redis", slog.String("error", rerr.Error()))
		}
	}

	middleware.Logger.Info("Server shutdown complete")
	return nil
}
