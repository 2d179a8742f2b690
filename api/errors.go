package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/Domenick1991/skyinventory/internal/auth"
	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/gin-gonic/gin"
)

const (
	reasonSoldOut   = "SOLD_OUT"
	reasonSeatTaken = "SEAT_TAKEN"
)

// errorResponse maps a domain error to its HTTP status and JSON body.
func errorResponse(err error) (int, gin.H) {
	var conflict *domain.ConflictError
	switch {
	case errors.As(err, &conflict):
		return http.StatusConflict, gin.H{"error": conflict.Message, "reason": string(conflict.Reason)}
	case errors.Is(err, domain.ErrSoldOut):
		return http.StatusConflict, gin.H{"error": err.Error(), "reason": reasonSoldOut}
	case errors.Is(err, domain.ErrSeatTaken):
		return http.StatusConflict, gin.H{"error": err.Error(), "reason": reasonSeatTaken}
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound, gin.H{"error": err.Error()}
	case errors.Is(err, domain.ErrInvalidInput):
		return http.StatusBadRequest, gin.H{"error": err.Error()}
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized, gin.H{"error": err.Error()}
	case errors.Is(err, auth.ErrForbidden):
		return http.StatusForbidden, gin.H{"error": err.Error()}
	case errors.Is(err, domain.ErrStoreUnavailable):
		return http.StatusServiceUnavailable, gin.H{"error": "service temporarily unavailable"}
	default:
		return http.StatusInternalServerError, gin.H{"error": "internal error"}
	}
}

func writeError(c *gin.Context, log *slog.Logger, err error) {
	status, body := errorResponse(err)
	if status >= http.StatusInternalServerError {
		log.Error("request failed", "route", c.FullPath(), "status", status, "error", err)
	}
	c.JSON(status, body)
}
