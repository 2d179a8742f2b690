package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/skyinventory/internal/auth"
	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/Domenick1991/skyinventory/internal/service/flights"
	"github.com/gin-gonic/gin"
)

type FlightHandler struct {
	service flights.FlightUseCase
	log     *slog.Logger
}

func NewFlightHandler(service flights.FlightUseCase, log *slog.Logger) *FlightHandler {
	return &FlightHandler{service: service, log: log}
}

// Register mounts reads publicly and guards mutations with admin.
func (h *FlightHandler) Register(router *gin.RouterGroup, admin gin.HandlerFunc) {
	router.GET("", h.search)
	router.GET("/:id", h.get)
	router.POST("", admin, h.create)
	router.PUT("/:id", admin, h.update)
	router.DELETE("/:id", admin, h.delete)
}

func (h *FlightHandler) search(c *gin.Context) {
	filter := domain.FlightFilter{
		Origin:      c.Query("origin"),
		Destination: c.Query("destination"),
	}
	if raw := c.Query("date"); raw != "" {
		date, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "date must be YYYY-MM-DD"})
			return
		}
		filter.Date = date
	}

	result, err := h.service.Search(c.Request.Context(), filter)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h *FlightHandler) get(c *gin.Context) {
	flight, err := h.service.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) create(c *gin.Context) {
	var input flights.FlightInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	flight, err := h.service.Create(c.Request.Context(), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("flight created", "flight_id", flight.ID, "admin", adminSubject(c))
	c.JSON(http.StatusCreated, flight)
}

func (h *FlightHandler) update(c *gin.Context) {
	var input flights.FlightInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	flight, err := h.service.Update(c.Request.Context(), c.Param("id"), input)
	if err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("flight updated", "flight_id", flight.ID, "admin", adminSubject(c))
	c.JSON(http.StatusOK, flight)
}

func (h *FlightHandler) delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, h.log, err)
		return
	}
	h.log.Info("flight deleted", "flight_id", c.Param("id"), "admin", adminSubject(c))
	c.Status(http.StatusNoContent)
}

// adminSubject names the token subject that passed the admin gate.
func adminSubject(c *gin.Context) string {
	claims, ok := auth.ClaimsFrom(c)
	if !ok {
		return ""
	}
	return claims.Subject
}
