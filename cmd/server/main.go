package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/sessions"
	"github.com/gin-contrib/sessions/cookie"
	redisStore "github.com/gin-contrib/sessions/redis"
	"github.com/gin-gonic/gin"
	"github.com/go-chi/cors"
	"github.com/yukikurage/tenant-task-api/internal/auth"
	"github.com/yukikurage/tenant-task-api/internal/config"
	"github.com/yukikurage/tenant-task-api/internal/database"
	"github.com/yukikurage/tenant-task-api/internal/handlers"
	"github.com/yukikurage/tenant-task-api/internal/logger"
	"github.com/yukikurage/tenant-task-api/internal/middleware"
	"github.com/yukikurage/tenant-task-api/internal/repository"
	"github.com/yukikurage/tenant-task-api/internal/services"
)

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	log := logger.New(cfg.Server.Env)
	slog.SetDefault(log)

	// Set Gin mode
	gin.SetMode(cfg.Server.GinMode)

	// Connect to database
	db, err := database.Connect(&cfg.Database, log, cfg.Server.IsDevelopment())
	if err != nil {
		return err
	}
	defer func() {
		if err := database.Close(db); err != nil {
			log.Error("failed to close database", "error", err)
		}
	}()

	// Run migrations
	if err := database.Migrate(db); err != nil {
		return err
	}

	store, err := newSessionStore(cfg, log)
	if err != nil {
		return fmt.Errorf("create session store: %w", err)
	}

	repos := repository.New(db, cfg.Database.TxTimeout())
	tokens := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Expiry())
	recorder := services.NewActivityRecorder(nil)

	apiLimiter := middleware.NewRateLimiter(cfg.RateLimit.Requests, cfg.RateLimit.Window())
	loginLimiter := middleware.NewRateLimiter(cfg.RateLimit.LoginRequests, cfg.RateLimit.Window())

	router := handlers.NewRouter(handlers.Dependencies{
		DB:            db,
		Logger:        log,
		SessionStore:  store,
		APILimiter:    apiLimiter,
		LoginLimiter:  loginLimiter,
		Auth:          services.NewAuthService(repos, tokens),
		Organizations: services.NewOrganizationService(repos),
		Projects:      services.NewProjectService(repos, nil),
		Tasks:         services.NewTaskService(repos, recorder, nil),
		Activity:      services.NewActivityService(repos),
		Analytics:     services.NewAnalyticsService(repos, nil),
	})

	corsHandler := cors.Handler(cors.Options{
		AllowedOrigins:   []string{cfg.Server.CORSOrigin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"Retry-After", "X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: true,
		MaxAge:           300,
	})

	server := &http.Server{
		Addr:              cfg.Server.Addr(),
		Handler:           corsHandler(router),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go sweepRateLimiters(ctx, apiLimiter, loginLimiter)

	serveErr := make(chan error, 1)
	go func() {
		log.Info("server starting", "addr", server.Addr, "env", cfg.Server.Env)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
		close(serveErr)
	}()

	select {
	case err := <-serveErr:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
	case <-ctx.Done():
	}
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}

// newSessionStore uses Redis when REDIS_HOST is set and signed cookies otherwise.
func newSessionStore(cfg *config.Config, log *slog.Logger) (sessions.Store, error) {
	var store sessions.Store
	if cfg.Redis.Host != "" {
		rs, err := redisStore.NewStore(
			10,               // Redis pool size
			"tcp",            // network type
			cfg.Redis.Addr(), // Redis address from config
			"",               // password (empty = no password)
			[]byte(cfg.Session.Secret),
		)
		if err != nil {
			return nil, err
		}
		log.Info("using redis session store", "addr", cfg.Redis.Addr())
		store = rs
	} else {
		store = cookie.NewStore([]byte(cfg.Session.Secret))
	}

	store.Options(sessions.Options{
		Path:     "/",
		MaxAge:   86400 * 7, // 7 days
		HttpOnly: true,
		Secure:   cfg.Server.IsProduction(),
		SameSite: http.SameSiteLaxMode,
	})
	return store, nil
}

func sweepRateLimiters(ctx context.Context, limiters ...*middleware.RateLimiter) {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			for _, l := range limiters {
				l.Cleanup()
			}
		}
	}
}
