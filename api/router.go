package api

import (
	"log/slog"

	"github.com/Domenick1991/resortbooking/internal/metrics"
	"github.com/gin-gonic/gin"
)

type Handlers struct {
	Rooms  *RoomHandler
	Events *EventHandler
	User   *UserHandler
	Health *HealthHandler
}

// NewRouter builds the gin engine with the /api/v1 routes and /ping.
func NewRouter(log *slog.Logger, m *metrics.Metrics, jwtSecret []byte, h Handlers) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), RequestID(), Logger(log), Metrics(m))

	auth := RequireUser(jwtSecret)
	v1 := router.Group("/api/v1")
	h.Rooms.Register(v1.Group("/rooms"), auth)
	h.Events.Register(v1.Group("/events"), auth)
	h.User.Register(v1.Group("/user"), auth)
	h.Health.Register(router)

	return router
}
