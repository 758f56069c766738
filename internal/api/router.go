package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/jwtauth/v5"
	"github.com/redis/go-redis/v9"

	"devbook/internal/api/handler"
	"devbook/internal/api/middleware"
	"devbook/internal/app/service"
	"devbook/internal/common"
	"devbook/internal/common/security"
	"devbook/internal/domain/model"
	"devbook/internal/domain/repository"
	"devbook/internal/platform/logger"
	"devbook/internal/platform/metrics"
)

type RouterConfig struct {
	RequestTimeout     time.Duration
	MaxBodyBytes       int64
	MaxImageBytes      int64
	RateLimitMax       int
	RateLimitWindow    time.Duration
	CORSAllowedOrigins []string
}

// Stores holds one record store per entity.
type Stores struct {
	Users        repository.UserRepository
	Sessions     repository.SessionRepository
	Posts        repository.PostRepository
	Comments     repository.Store[model.Comment]
	PostLikes    repository.Store[model.PostLike]
	CommentLikes repository.Store[model.CommentLike]
	Addresses    repository.Store[model.Address]
	Educations   repository.Store[model.UserEducation]
	Experiences  repository.Store[model.UserExperience]
}

type Dependencies struct {
	Config       RouterConfig
	Stores       Stores
	Tokens       *security.TokenIssuer
	Redis        *redis.Client
	AuthService  *service.AuthService
	UserService  *service.UserService
	ImageService *service.ImageService
}

func NewRouter(deps Dependencies) http.Handler {
	cfg := deps.Config
	r := chi.NewRouter()

	// Base Middlewares
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(middleware.RequestLogger(logger.WithComponent("http")))
	r.Use(metrics.Middleware)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Timeout(cfg.RequestTimeout))
	r.Use(middleware.SecurityHeaders)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSAllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-RateLimit-Limit", "X-RateLimit-Remaining", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           300,
	}))
	r.Use(chiMiddleware.Compress(5))
	r.Use(middleware.BodyLimit(cfg.MaxBodyBytes, cfg.MaxImageBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("OK"))
	})
	r.Method(http.MethodGet, "/metrics", metrics.Handler())
	r.Get("/", func(w http.ResponseWriter, r *http.Request) {
		common.RespondWithJSON(w, http.StatusOK, map[string]string{"status": "success!"})
	})

	// Verifier finds the token in "Authorization: Bearer T" or the jwt cookie;
	// Authenticator turns it into the current user and session.
	authn := middleware.NewAuthenticator(deps.Stores.Sessions, deps.Stores.Users)
	protect := chi.Chain(jwtauth.Verifier(deps.Tokens.JWTAuth()), authn.Handler).Handler

	limiter := middleware.NewRateLimiter(deps.Redis, cfg.RateLimitMax, cfg.RateLimitWindow)

	r.Route("/api/v1", func(v1 chi.Router) {
		v1.Use(limiter.Handler)

		authHandler := handler.NewAuthHandler(deps.AuthService, handler.NewRecords[model.Session](deps.Stores.Sessions), protect)
		v1.Route("/auth", authHandler.RegisterRoutes)

		userHandler := handler.NewUserHandler(handler.UserHandlerDeps{
			AuthService:   deps.AuthService,
			UserService:   deps.UserService,
			ImageService:  deps.ImageService,
			Users:         handler.NewRecords[model.User](deps.Stores.Users),
			Educations:    handler.NewRecords(deps.Stores.Educations),
			Experiences:   handler.NewRecords(deps.Stores.Experiences),
			Protect:       protect,
			MaxImageBytes: cfg.MaxImageBytes,
		})
		v1.Route("/users", userHandler.RegisterRoutes)

		postHandler := handler.NewPostHandler(
			handler.NewRecords[model.Post](deps.Stores.Posts),
			handler.NewRecords(deps.Stores.Comments),
			handler.NewRecords(deps.Stores.PostLikes),
			handler.NewRecords(deps.Stores.CommentLikes),
			protect,
		)
		v1.Route("/posts", postHandler.RegisterRoutes)

		addressHandler := handler.NewAddressHandler(handler.NewRecords(deps.Stores.Addresses), protect)
		v1.Route("/addresses", addressHandler.RegisterRoutes)

		searchHandler := handler.NewSearchHandler(deps.UserService)
		v1.Route("/search", searchHandler.RegisterRoutes)
	})

	return r
}
