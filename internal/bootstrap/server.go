package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/Domenick1991/skyinventory/api"
	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/auth"
	"github.com/Domenick1991/skyinventory/internal/metrics"
	"github.com/Domenick1991/skyinventory/internal/service/booking"
	"github.com/Domenick1991/skyinventory/internal/service/flights"
	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a backing dependency is reachable.
type HealthChecker func(ctx context.Context) error

// Run serves the HTTP API and blocks until ctx is canceled or the server
// fails.
func Run(ctx context.Context, cfg *config.Config, log *slog.Logger, router http.Handler) error {
	srv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("http server listening", "addr", cfg.HTTP.Address)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		log.Info("http server stopped")
		return nil
	}
}

// NewRouter wires the public and admin routes under /api plus /health and
// /metrics.
func NewRouter(log *slog.Logger, gate *auth.Gate, flightSvc flights.FlightUseCase, bookingSvc booking.BookingUseCase, health HealthChecker) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), metrics.GinMiddleware())

	router.GET("/health", func(c *gin.Context) {
		if health != nil {
			if err := health(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": err.Error()})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	apiGroup := router.Group("/api")
	api.NewFlightHandler(flightSvc, log).Register(apiGroup.Group("/flights"), auth.RequireAdmin(gate, log))
	api.NewTicketHandler(bookingSvc, log).Register(apiGroup.Group("/tickets"))

	return router
}
