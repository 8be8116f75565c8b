package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/move-league/move-league-backend/internal/api"
	"github.com/move-league/move-league-backend/internal/api/handlers"
	"github.com/move-league/move-league-backend/internal/config"
	"github.com/move-league/move-league-backend/internal/models"
	"github.com/move-league/move-league-backend/internal/notify"
	"github.com/move-league/move-league-backend/internal/repository"
	"github.com/move-league/move-league-backend/internal/repository/memory"
	"github.com/move-league/move-league-backend/internal/service"
	"github.com/move-league/move-league-backend/internal/websocket"
	"github.com/move-league/move-league-backend/pkg/database"
	"github.com/move-league/move-league-backend/pkg/distributed"
	jwtutil "github.com/move-league/move-league-backend/pkg/jwt"
	"github.com/move-league/move-league-backend/pkg/logger"
	"github.com/move-league/move-league-backend/pkg/ratelimit"
	"github.com/redis/go-redis/v9"
)

const (
	notificationRetries  = 5
	notificationQueueCap = 100000
	relayChannel         = "notifications:relay"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	logger.Init(cfg.Env, cfg.LogLevel)
	defer logger.Sync()

	logger.Info("Starting Move League Backend",
		"port", cfg.Port,
		"env", cfg.Env,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	checks := map[string]handlers.Pinger{}
	jwtManager := jwtutil.NewJWTManager(cfg.JWTSecret, cfg.JWTExpiration,
		jwtutil.WithIssuer(cfg.JWTIssuer),
		jwtutil.WithLeeway(cfg.JWTLeeway),
	)

	// Persistence
	var gateway repository.Gateway
	if cfg.DatabaseURL != "" {
		db, err := database.Connect(cfg.DatabaseURL)
		if err != nil {
			logger.Fatal("Failed to connect to database", "error", err)
		}
		defer db.Close()

		gateway = repository.NewPostgresGateway(db)
		checks["postgres"] = db.PingContext
		logger.Info("Database connection established")
	} else {
		store := memory.NewStore()
		seedDemo(store, jwtManager)
		gateway = store
		logger.Warn("DATABASE_URL not set, using in-memory store")
	}

	// Websocket delivery
	hub := websocket.NewHub(logger.Zap())
	go hub.Run(ctx)
	local := notify.NewHubDispatcher(hub)

	// Redis: lock, rate limit, relay and offline queue
	var (
		locker  distributed.Locker
		limiter ratelimit.Limiter
		targets []notify.Dispatcher
	)
	if cfg.RedisURL != "" {
		client, err := connectRedis(ctx, cfg.RedisURL)
		if err != nil {
			logger.Fatal("Failed to connect to redis", "error", err)
		}
		defer client.Close()
		checks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }

		locker = distributed.NewRedisLocker(client, "battle-lock:", cfg.BattleLockTTL,
			distributed.WithRetry(3, 100*time.Millisecond))
		limiter = ratelimit.NewRedisLimiter(client, "ratelimit:action:", cfg.ActionRateLimit, cfg.ActionRateRefill)

		relay := distributed.NewRelay(client, relayChannel, logger.Zap())
		go func() {
			if err := relay.Run(ctx, notify.DeliverRelayed(local)); err != nil {
				logger.Error("Notification relay stopped", "error", err)
			}
		}()

		queue := distributed.NewRedisQueue(client, cfg.NotificationQueue, notificationQueueCap)
		targets = append(targets,
			notify.NewRelayDispatcher(relay),
			notify.NewQueueDispatcher(queue, notificationRetries),
		)
		logger.Info("Redis connected", "queue", cfg.NotificationQueue)
	} else {
		locker = distributed.NewLocalLocker()
		localLimiter := ratelimit.NewLocalLimiter(cfg.ActionRateLimit, cfg.ActionRateRefill)
		go localLimiter.RunSweeper(ctx, time.Minute)
		limiter = localLimiter
		logger.Warn("REDIS_URL not set, using in-process lock and rate limiter")
	}
	if len(targets) == 0 {
		targets = append(targets, local)
	}
	dispatcher := notify.NewFanout(logger.Zap(), targets...)

	// Services
	ledger := service.NewRatingLedger()
	engine := service.NewBattleEngine(ledger)
	battles := service.NewBattleService(gateway, engine, locker, dispatcher)
	seasons := service.NewSeasonService(gateway, ledger, dispatcher)

	router := api.SetupRouter(cfg, api.Dependencies{
		Battles:      battles,
		Seasons:      seasons,
		JWT:          jwtManager,
		Hub:          hub,
		ActionLimit:  limiter,
		HealthChecks: checks,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("Server listening", "address", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("Failed to start server", "error", err)
		}
	}()

	<-ctx.Done()
	logger.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
	}

	logger.Info("Server exited")
}

func connectRedis(ctx context.Context, url string) (*redis.Client, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_URL: %w", err)
	}

	client := redis.NewClient(opts)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := client.Ping(pingCtx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}
	return client, nil
}

// seedDemo fills the in-memory store with a small roster and logs a token per
// account so the API can be exercised locally.
func seedDemo(store *memory.Store, jwtManager *jwtutil.JWTManager) {
	users := []models.User{
		{ID: "dancer-a", Username: "dancer_a", Role: models.RoleParticipant},
		{ID: "dancer-b", Username: "dancer_b", Role: models.RoleParticipant},
		{ID: "referee-1", Username: "referee", Role: models.RoleReferee},
		{ID: "studio-owner", Username: "studio_owner", Role: models.RoleParticipant},
		{ID: "admin", Username: "admin", Role: models.RoleAdmin},
	}
	for _, u := range users {
		u.Active = true
		u.Rating = models.BaselineRating
		store.PutUser(u)

		token, err := jwtManager.Generate(u.ID, string(u.Role))
		if err != nil {
			logger.Warn("Failed to issue demo token", "userId", u.ID, "error", err)
			continue
		}
		logger.Info("Demo account", "userId", u.ID, "role", u.Role, "token", token)
	}

	store.PutStudio(models.Studio{ID: "studio-1", Name: "Main Floor", OwnerID: "studio-owner"})
	store.PutStudio(models.Studio{ID: "studio-2", Name: "Back Room", OwnerID: "studio-owner"})
}
