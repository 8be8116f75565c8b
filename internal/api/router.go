package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-contrib/pprof"
	"github.com/gin-gonic/gin"
	"github.com/move-league/move-league-backend/internal/api/handlers"
	"github.com/move-league/move-league-backend/internal/api/middleware"
	"github.com/move-league/move-league-backend/internal/config"
	"github.com/move-league/move-league-backend/internal/service"
	"github.com/move-league/move-league-backend/internal/websocket"
	jwtutil "github.com/move-league/move-league-backend/pkg/jwt"
	"github.com/move-league/move-league-backend/pkg/ratelimit"
)

// Dependencies are the wired components the router exposes.
type Dependencies struct {
	Battles      *service.BattleService
	Seasons      *service.SeasonService
	JWT          *jwtutil.JWTManager
	Hub          *websocket.Hub
	ActionLimit  ratelimit.Limiter
	HealthChecks map[string]handlers.Pinger
}

// SetupRouter wires middleware and routes.
func SetupRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.Logger())
	router.Use(cors.New(corsConfig(cfg.CORSAllowedOrigins)))

	if !cfg.IsProduction() {
		pprof.Register(router)
	}

	battleHandler := handlers.NewBattleHandler(deps.Battles)
	seasonHandler := handlers.NewSeasonHandler(deps.Seasons)
	healthHandler := handlers.NewHealthHandler(deps.HealthChecks)

	router.GET("/health", healthHandler.Live)
	router.GET("/ready", healthHandler.Ready)

	auth := middleware.Auth(deps.JWT)

	v1 := router.Group("/api/v1")
	v1.Use(auth)
	{
		if deps.Hub != nil {
			wsHandler := handlers.NewWebSocketHandler(deps.Hub, cfg.CORSAllowedOrigins)
			v1.GET("/ws", wsHandler.HandleWebSocket)
		}

		battles := v1.Group("/battles")
		{
			battles.GET("", battleHandler.ListMyBattles)
			battles.GET("/:id", battleHandler.GetBattle)

			limited := battles.Group("")
			if deps.ActionLimit != nil {
				limited.Use(middleware.RateLimit(deps.ActionLimit, middleware.UserKeyFunc))
			}
			limited.POST("", battleHandler.CreateBattle)
			limited.POST("/:id/actions/:action", battleHandler.PerformAction)
		}

		users := v1.Group("/users")
		{
			users.GET("/:id/ratings", battleHandler.RatingHistory)
		}

		admin := v1.Group("/admin")
		{
			admin.POST("/seasons/reset", seasonHandler.ResetSeason)
		}
	}

	return router
}

func corsConfig(origins []string) cors.Config {
	c := cors.Config{
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length", "Retry-After"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	for _, o := range origins {
		if o == "*" {
			c.AllowAllOrigins = true
			c.AllowCredentials = false
			return c
		}
	}
	c.AllowOrigins = origins
	return c
}
