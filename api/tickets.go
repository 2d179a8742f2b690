package api

import (
	"log/slog"
	"net/http"

	"github.com/Domenick1991/skyinventory/internal/service/booking"
	"github.com/gin-gonic/gin"
)

type TicketHandler struct {
	service booking.BookingUseCase
	log     *slog.Logger
}

func NewTicketHandler(service booking.BookingUseCase, log *slog.Logger) *TicketHandler {
	return &TicketHandler{service: service, log: log}
}

func (h *TicketHandler) Register(router *gin.RouterGroup) {
	router.POST("", h.book)
	router.GET("/:email", h.listByEmail)
}

func (h *TicketHandler) book(c *gin.Context) {
	var input booking.BookTicketInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	ticket, err := h.service.Book(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"ticket_id": ticket.ID, "ticket": ticket})
}

func (h *TicketHandler) listByEmail(c *gin.Context) {
	tickets, err := h.service.ListByEmail(c.Request.Context(), c.Param("email"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, tickets)
}
