package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"intentio/backend/internal/handler"
	"intentio/backend/internal/metrics"
	"intentio/backend/internal/middleware"
	"intentio/backend/internal/service"
)

type Handlers struct {
	Auth     *handler.AuthHandler
	Timer    *handler.TimerHandler
	Queue    *handler.QueueHandler
	Events   *handler.EventsHandler
	Sessions *handler.SessionHandler
	Settings *handler.SettingsHandler
}

// New builds the HTTP engine. With a nil authService the API is served
// without authentication.
func New(
	authService *service.AuthService,
	handlers Handlers,
	corsOrigins []string,
	logger zerolog.Logger,
) *gin.Engine {
	engine := gin.New()
	engine.Use(middleware.RequestLogger(logger), gin.Recovery(), middleware.CORS(corsOrigins))

	engine.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	engine.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := engine.Group("/api")
	if authService != nil {
		api.POST("/auth/token", handlers.Auth.Token)
	}

	protected := api.Group("")
	if authService != nil {
		protected.Use(middleware.Auth(authService))
	}

	protected.GET("/events", handlers.Events.Stream)

	timer := protected.Group("/timer")
	timer.GET("/session", handlers.Timer.GetSession)
	timer.GET("/status", handlers.Timer.Status)
	timer.PUT("/session/intent", handlers.Timer.SetIntent)
	timer.POST("/play", handlers.Timer.Play)
	timer.POST("/stop", handlers.Timer.Stop)
	timer.POST("/restart", handlers.Timer.Restart)
	timer.POST("/skip", handlers.Timer.Skip)

	queue := timer.Group("/queue")
	queue.GET("", handlers.Queue.List)
	queue.POST("", handlers.Queue.Add)
	queue.DELETE("", handlers.Queue.Clear)
	queue.DELETE("/:idx", handlers.Queue.Remove)
	queue.POST("/:idx/reorder", handlers.Queue.Reorder)
	queue.POST("/:idx/increment", handlers.Queue.Increment)
	queue.POST("/:idx/decrement", handlers.Queue.Decrement)
	queue.PUT("/:idx/duration", handlers.Queue.UpdateDuration)

	sessions := protected.Group("/sessions")
	sessions.GET("", handlers.Sessions.List)
	sessions.GET("/:id", handlers.Sessions.Get)
	sessions.PUT("/:id/summary", handlers.Sessions.UpdateSummary)

	settings := protected.Group("/settings")
	settings.GET("/timer", handlers.Settings.GetTimer)
	settings.PATCH("/timer", handlers.Settings.UpdateTimer)
	settings.POST("/timer/reset", handlers.Settings.ResetTimer)

	return engine
}
