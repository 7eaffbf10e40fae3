package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	infralogger "github.com/V-SK/moltboard/infrastructure/logger"
	"github.com/V-SK/moltboard/infrastructure/sse"
)

// SetupServiceRoutes registers the /api routes, plus /api/events when
// broker is non-nil and /metrics when metricsHandler is non-nil. Health
// routes come from the server builder.
func SetupServiceRoutes(router *gin.Engine, handler *Handler, broker sse.Broker, metricsHandler http.Handler, log infralogger.Logger) {
	api := router.Group("/api")
	{
		api.GET("/posts", handler.Posts)
		api.GET("/submolts", handler.Submolts)
		api.GET("/search", handler.Search)

		agents := api.Group("/agents")
		agents.GET("/leaderboard", handler.Leaderboard)
		agents.GET("/profile", handler.Profile)

		if broker != nil {
			api.GET("/events", sse.Handler(broker, log, sse.WithLeaderboardFilter()))
		}
	}

	if metricsHandler != nil {
		router.GET("/metrics", gin.WrapH(metricsHandler))
	}
}
