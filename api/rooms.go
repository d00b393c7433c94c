package api

import (
	"net/http"

	"github.com/Domenick1991/resortbooking/internal/service/stays"
	"github.com/gin-gonic/gin"
)

type RoomHandler struct {
	service stays.StayUseCase
}

func NewRoomHandler(service stays.StayUseCase) *RoomHandler {
	return &RoomHandler{service: service}
}

func (h *RoomHandler) Register(router *gin.RouterGroup, auth gin.HandlerFunc) {
	router.GET("/search", h.search)
	router.POST("/book", auth, h.book)
	router.GET("/my", auth, h.listMine)
}

func (h *RoomHandler) search(c *gin.Context) {
	items, err := h.service.Search(c.Request.Context(), stays.SearchInput{
		From:   c.Query("from"),
		To:     c.Query("to"),
		Guests: c.Query("guests"),
	})
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "rooms": items})
}

func (h *RoomHandler) book(c *gin.Context) {
	var req stays.BookInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "body", err.Error())
		return
	}

	result, err := h.service.Book(c.Request.Context(), UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"ok": true, "reservation": result})
}

func (h *RoomHandler) listMine(c *gin.Context) {
	items, err := h.service.ListMine(c.Request.Context(), UserID(c))
	if err != nil {
		writeError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"ok": true, "reservations": items})
}
