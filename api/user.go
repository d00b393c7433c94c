package api

import (
	"net/http"

	"github.com/Domenick1991/resortbooking/internal/service/dashboard"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	service dashboard.DashboardUseCase
}

func NewUserHandler(service dashboard.DashboardUseCase) *UserHandler {
	return &UserHandler{service: service}
}

func (h *UserHandler) Register(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/dashboard", auth, h.dashboard)
}

func (h *UserHandler) dashboard(c *gin.Context) {
	d, err := h.service.Get(c.Request.Context(), UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reservations": d.Reservations, "events": d.Events})
}
