package api

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/auth"
	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/Domenick1991/skyinventory/internal/logger"
	"github.com/Domenick1991/skyinventory/internal/service/flights"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

// MockFlightUseCase is a mock implementation of flights.FlightUseCase
type MockFlightUseCase struct {
	mock.Mock
}

func (m *MockFlightUseCase) Search(ctx context.Context, filter domain.FlightFilter) ([]domain.Flight, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Create(ctx context.Context, input flights.FlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Update(ctx context.Context, id string, input flights.FlightInput) (*domain.Flight, error) {
	args := m.Called(ctx, id, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Flight), args.Error(1)
}

func (m *MockFlightUseCase) Delete(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func testContext(method, target, body string) (*gin.Context, *httptest.ResponseRecorder) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, target, nil)
	}
	c.Request = req
	return c, w
}

func TestFlightHandler_search(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("GET", "/api/flights?origin=SVO&destination=LED&date=2026-12-01", "")

	filter := domain.FlightFilter{
		Origin:      "SVO",
		Destination: "LED",
		Date:        time.Date(2026, 12, 1, 0, 0, 0, 0, time.UTC),
	}
	result := []domain.Flight{{ID: "f1", Origin: "SVO", Destination: "LED", SeatsTotal: 100, SeatsAvailable: 50, PriceCents: 5000}}
	mockService.On("Search", c.Request.Context(), filter).Return(result, nil)

	handler.search(c)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"seats_available":50`)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_search_BadDate(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("GET", "/api/flights?date=01.12.2026", "")

	handler.search(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Search", mock.Anything, mock.Anything)
}

func TestFlightHandler_get(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("GET", "/api/flights/f1", "")
	c.Params = gin.Params{{Key: "id", Value: "f1"}}

	mockService.On("GetByID", c.Request.Context(), "f1").Return(&domain.Flight{ID: "f1"}, nil)

	handler.get(c)

	assert.Equal(t, http.StatusOK, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_get_NotFound(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("GET", "/api/flights/nope", "")
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	mockService.On("GetByID", c.Request.Context(), "nope").Return(nil, domain.ErrNotFound)

	handler.get(c)

	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestFlightHandler_create(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	body := `{"origin":"IST","destination":"ESB","departure_at":"2026-12-01T09:00:00Z","arrival_at":"2026-12-01T10:00:00Z","price_cents":99000,"seats_total":150}`
	c, w := testContext("POST", "/api/flights", body)

	input := flights.FlightInput{
		Origin:      "IST",
		Destination: "ESB",
		DepartureAt: time.Date(2026, 12, 1, 9, 0, 0, 0, time.UTC),
		ArrivalAt:   time.Date(2026, 12, 1, 10, 0, 0, 0, time.UTC),
		PriceCents:  99000,
		SeatsTotal:  150,
	}
	mockService.On("Create", c.Request.Context(), input).Return(&domain.Flight{ID: "f9", SeatsTotal: 150, SeatsAvailable: 150}, nil)

	handler.create(c)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"f9"`)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_create_Conflict(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("POST", "/api/flights", `{"origin":"IST"}`)
	mockService.On("Create", c.Request.Context(), mock.Anything).Return(nil, domain.NewConflict(domain.DepartureCollision))

	handler.create(c)

	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Contains(t, w.Body.String(), `"reason":"DEPARTURE_COLLISION"`)
}

func TestFlightHandler_create_BadBody(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("POST", "/api/flights", `{"seats_total":"many"}`)

	handler.create(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertNotCalled(t, "Create", mock.Anything, mock.Anything)
}

func TestFlightHandler_update_CapacityBelowBooked(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("PUT", "/api/flights/f1", `{"seats_total":10}`)
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	mockService.On("Update", c.Request.Context(), "f1", flights.FlightInput{SeatsTotal: 10}).Return(nil, domain.ErrCapacityBelowBooked)

	handler.update(c)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	mockService.AssertExpectations(t)
}

func TestFlightHandler_delete(t *testing.T) {
	mockService := &MockFlightUseCase{}
	handler := NewFlightHandler(mockService, logger.Discard())

	c, w := testContext("DELETE", "/api/flights/f1", "")
	c.Params = gin.Params{{Key: "id", Value: "f1"}}
	mockService.On("Delete", c.Request.Context(), "f1").Return(nil)

	handler.delete(c)

	assert.Equal(t, http.StatusNoContent, c.Writer.Status())
	assert.Empty(t, w.Body.String())
	mockService.AssertExpectations(t)
}

func TestFlightHandler_MutationsLogAdminSubject(t *testing.T) {
	gin.SetMode(gin.TestMode)
	gate := auth.NewGate(config.AuthConfig{JWTSecret: "test-secret", Issuer: "skyinventory"})
	token, err := gate.IssueToken("ops-lead", auth.RoleAdmin, time.Hour)
	require.NoError(t, err)

	var logs bytes.Buffer
	log := logger.New(config.LogConfig{Level: "info", Format: "text"}, &logs)

	mockService := &MockFlightUseCase{}
	mockService.On("Delete", mock.Anything, "f1").Return(nil)

	router := gin.New()
	NewFlightHandler(mockService, log).Register(router.Group("/api/flights"), auth.RequireAdmin(gate, log))

	req := httptest.NewRequest(http.MethodDelete, "/api/flights/f1", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, logs.String(), "flight deleted")
	assert.Contains(t, logs.String(), "flight_id=f1")
	assert.Contains(t, logs.String(), "admin=ops-lead")
	mockService.AssertExpectations(t)
}

func TestAdminSubject_WithoutGate(t *testing.T) {
	c, _ := testContext("DELETE", "/api/flights/f1", "")

	assert.Empty(t, adminSubject(c))
}
