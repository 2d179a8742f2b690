package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/Domenick1991/skyinventory/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockSlotReader struct {
	mock.Mock
}

func (m *MockSlotReader) FindBySlot(ctx context.Context, slot domain.Slot) ([]domain.Flight, error) {
	args := m.Called(ctx, slot)
	return args.Get(0).([]domain.Flight), args.Error(1)
}

var (
	dep = time.Date(2026, 11, 20, 7, 30, 0, 0, time.UTC)
	arr = dep.Add(90 * time.Minute)
)

func existingFlight() domain.Flight {
	return domain.Flight{ID: "f1", Origin: "IST", Destination: "ESB", DepartureAt: dep, ArrivalAt: arr}
}

func reasonOf(t *testing.T, err error) domain.ConflictReason {
	t.Helper()
	var conflict *domain.ConflictError
	require.True(t, errors.As(err, &conflict), "expected ConflictError, got %v", err)
	return conflict.Reason
}

func TestCheck(t *testing.T) {
	testCases := []struct {
		name      string
		candidate domain.Slot
		excludeID string
		reason    domain.ConflictReason
	}{
		{
			name:      "same origin and departure",
			candidate: domain.Slot{Origin: "IST", Destination: "ADB", DepartureAt: dep, ArrivalAt: arr.Add(time.Hour)},
			reason:    domain.DepartureCollision,
		},
		{
			name:      "same destination and arrival",
			candidate: domain.Slot{Origin: "SAW", Destination: "ESB", DepartureAt: dep.Add(-time.Hour), ArrivalAt: arr},
			reason:    domain.ArrivalCollision,
		},
		{
			name:      "both collide reports departure first",
			candidate: domain.Slot{Origin: "IST", Destination: "ESB", DepartureAt: dep, ArrivalAt: arr},
			reason:    domain.DepartureCollision,
		},
		{
			name:      "different origin",
			candidate: domain.Slot{Origin: "SAW", Destination: "ADB", DepartureAt: dep, ArrivalAt: arr.Add(time.Hour)},
		},
		{
			name:      "one minute later is not a collision",
			candidate: domain.Slot{Origin: "IST", Destination: "ADB", DepartureAt: dep.Add(time.Minute), ArrivalAt: arr.Add(time.Hour)},
		},
		{
			name:      "excluded flight does not collide with itself",
			candidate: domain.Slot{Origin: "IST", Destination: "ESB", DepartureAt: dep, ArrivalAt: arr},
			excludeID: "f1",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := Check(tc.candidate, []domain.Flight{existingFlight()}, tc.excludeID)
			if tc.reason == "" {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, domain.ErrConflict)
			assert.Equal(t, tc.reason, reasonOf(t, err))
		})
	}
}

func TestCheck_SameInstantDifferentZone(t *testing.T) {
	istanbul := time.FixedZone("TRT", 3*60*60)
	candidate := domain.Slot{Origin: "IST", Destination: "ADB", DepartureAt: dep.In(istanbul), ArrivalAt: arr.Add(time.Hour)}

	err := Check(candidate, []domain.Flight{existingFlight()}, "")

	assert.Equal(t, domain.DepartureCollision, reasonOf(t, err))
}

func TestValidator_Validate(t *testing.T) {
	reader := &MockSlotReader{}
	v := NewValidator(reader)
	ctx := context.Background()
	candidate := domain.Slot{Origin: "IST", Destination: "ADB", DepartureAt: dep, ArrivalAt: arr}

	reader.On("FindBySlot", ctx, candidate).Return([]domain.Flight{existingFlight()}, nil).Once()

	err := v.Validate(ctx, candidate, "")

	assert.Equal(t, domain.DepartureCollision, reasonOf(t, err))
	reader.AssertExpectations(t)
}

func TestValidator_ReaderError(t *testing.T) {
	reader := &MockSlotReader{}
	v := NewValidator(reader)
	ctx := context.Background()
	candidate := domain.Slot{Origin: "IST", Destination: "ADB", DepartureAt: dep, ArrivalAt: arr}

	reader.On("FindBySlot", ctx, candidate).Return([]domain.Flight(nil), domain.ErrStoreUnavailable).Once()

	err := v.Validate(ctx, candidate, "")

	assert.ErrorIs(t, err, domain.ErrStoreUnavailable)
	assert.NotErrorIs(t, err, domain.ErrConflict)
}
