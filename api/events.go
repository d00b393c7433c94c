package api

import (
	"net/http"
	"strconv"

	"github.com/Domenick1991/resortbooking/internal/service/events"
	"github.com/gin-gonic/gin"
)

type EventHandler struct {
	service events.EventUseCase
}

func NewEventHandler(service events.EventUseCase) *EventHandler {
	return &EventHandler{service: service}
}

func (h *EventHandler) Register(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("", h.list)
	router.GET("/my", auth, h.listMine)
	router.POST("/:id/signup", auth, h.signup)
}

func (h *EventHandler) list(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "events": items})
}

func (h *EventHandler) signup(c *gin.Context) {
	eventID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || eventID <= 0 {
		badRequest(c, "event_id", "must be a positive integer")
		return
	}

	var req events.SignupInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}

	result, err := h.service.Signup(c.Request.Context(), UserID(c), eventID, req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "signup": result})
}

func (h *EventHandler) listMine(c *gin.Context) {
	items, err := h.service.ListMine(c.Request.Context(), UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "events": items})
}
