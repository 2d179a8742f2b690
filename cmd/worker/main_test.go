package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skyinventory/config"
	"github.com/Domenick1991/skyinventory/internal/inventory"
	"github.com/Domenick1991/skyinventory/internal/logger"
	"github.com/Domenick1991/skyinventory/internal/repository/memory"
	kafkaGo "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateFlights(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func TestFlightEventHandler(t *testing.T) {
	mockCache := &MockInvalidator{}
	handler := flightEventHandler(mockCache, logger.Discard())
	ctx := context.Background()

	mockCache.On("InvalidateFlights", ctx).Return(nil).Once()
	assert.NoError(t, handler(ctx, kafkaGo.Message{Value: []byte(`{"type":"flight_updated","flight_id":"f1"}`)}))

	assert.NoError(t, handler(ctx, kafkaGo.Message{Value: []byte(`not json`)}), "poison messages are skipped")

	mockCache.On("InvalidateFlights", ctx).Return(errors.New("redis down")).Once()
	assert.NoError(t, handler(ctx, kafkaGo.Message{Value: []byte(`{"type":"flight_deleted","flight_id":"f1"}`)}))

	mockCache.AssertExpectations(t)
}

func TestSweep_StopsWithContext(t *testing.T) {
	inv := inventory.New(memory.NewStore())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	err := sweep(ctx, inv, config.WorkerConfig{ReconcileSweepMinutes: 1}, logger.Discard())

	assert.NoError(t, err)
}
