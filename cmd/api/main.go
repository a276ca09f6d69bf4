package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/heartlink/heartlink-api/internal/config"
	"github.com/heartlink/heartlink-api/internal/docstore"
	"github.com/heartlink/heartlink-api/internal/domain/conversation"
	"github.com/heartlink/heartlink-api/internal/domain/realtime"
	"github.com/heartlink/heartlink-api/internal/domain/relationship"
	"github.com/heartlink/heartlink-api/internal/middleware"
	"github.com/heartlink/heartlink-api/internal/pkg/database"
	"github.com/heartlink/heartlink-api/internal/pkg/jwt"
	"github.com/heartlink/heartlink-api/internal/pkg/logger"
	pkgresponse "github.com/heartlink/heartlink-api/internal/pkg/response"
)

func main() {
	cfg := config.Load()
	if err := logger.Init(logger.Config{Level: cfg.LogLevel, Environment: cfg.Env}); err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize logger")
	}

	log.Info().
		Str("env", cfg.Env).
		Str("port", cfg.Port).
		Msg("Starting HeartLink API")

	mongoClient, err := database.NewMongo(cfg.MongoURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to MongoDB")
	}
	defer database.CloseMongo(mongoClient)

	redis, err := database.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer database.CloseRedis(redis)

	jwtService := jwt.NewService(cfg.JWTSecret, cfg.JWTAccessTTL)

	store := docstore.NewMongo(mongoClient.Database(cfg.MongoDatabase))

	// ---------- Repositories ----------
	relationshipRepo := relationship.NewRepository(store)
	conversationRepo := conversation.NewRepository(store)

	// ---------- WebSocket hub ----------
	hub := realtime.NewHub(redis)
	go hub.Run()

	// ---------- Services ----------
	// Conversation access checks delegate to the relationship service, which
	// itself purges conversations through the conversation service. The
	// adapter breaks the construction cycle.
	accessChecker := &relationshipAccessAdapter{}
	conversationService := conversation.NewService(conversationRepo, accessChecker)
	relationshipService := relationship.NewService(relationshipRepo, conversationService)
	accessChecker.service = relationshipService

	// ---------- Handlers ----------
	relationshipHandler := relationship.NewHandler(relationshipService)
	conversationHandler := conversation.NewHandler(conversationService)
	realtimeHandler := realtime.NewHandler(store, hub, redis, cfg.AllowedOrigins, cfg.AlertWindow)

	authMiddleware := middleware.Auth(jwtService)

	// ---------- Router ----------
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recover)
	r.Use(middleware.CORSHandler(cfg.AllowedOrigins))

	// WebSocket endpoint (before Compress)
	r.Get("/ws", func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token != "" {
			r.Header.Set("Authorization", "Bearer "+token)
		}
		authMiddleware(http.HandlerFunc(realtimeHandler.WebSocket)).ServeHTTP(w, r)
	})

	// Compress for everything else
	r.Group(func(r chi.Router) {
		r.Use(chimw.Compress(5))
	})

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		pkgresponse.OK(w, map[string]string{
			"status":  "ok",
			"version": "1.0.0",
		})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
			pkgresponse.OK(w, map[string]string{"message": "pong"})
		})

		r.Mount("/", relationshipHandler.Routes(authMiddleware))
		r.Mount("/conversations", conversationHandler.Routes(authMiddleware))
	})

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", server.Addr).Msg("HTTP server listening")
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	hub.Shutdown()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatal().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server exited properly")
}

// relationshipAccessAdapter bridges the conversation service's access checks
// to the relationship service without a constructor cycle.
type relationshipAccessAdapter struct {
	service *relationship.Service
}

func (a *relationshipAccessAdapter) IsBlocked(ctx context.Context, x, y uuid.UUID) (bool, error) {
	if a.service == nil {
		return false, nil
	}
	return a.service.IsBlocked(ctx, x, y)
}
