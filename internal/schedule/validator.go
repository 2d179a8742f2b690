// Package schedule checks candidate flights against the existing timetable.
//
// Two flights collide when they share an origin and the exact departure
// instant, or a destination and the exact arrival instant. The check is a
// friendly pre-check; the store's unique indexes remain the authority and
// report the same reasons when two writers race for one slot.
package schedule

import (
	"context"
	"fmt"

	"github.com/Domenick1991/skyinventory/internal/domain"
)

// SlotReader returns every flight that shares the origin+departure or the
// destination+arrival of the given slot.
type SlotReader interface {
	FindBySlot(ctx context.Context, slot domain.Slot) ([]domain.Flight, error)
}

type Validator struct {
	flights SlotReader
}

func NewValidator(flights SlotReader) *Validator {
	return &Validator{flights: flights}
}

// Validate returns nil or a *domain.ConflictError. excludeID skips the flight
// being edited.
func (v *Validator) Validate(ctx context.Context, candidate domain.Slot, excludeID string) error {
	existing, err := v.flights.FindBySlot(ctx, candidate)
	if err != nil {
		return fmt.Errorf("find flights by slot: %w", err)
	}
	return Check(candidate, existing, excludeID)
}

// Check runs the departure rule before the arrival rule over existing.
func Check(candidate domain.Slot, existing []domain.Flight, excludeID string) error {
	for _, f := range existing {
		if excluded(f, excludeID) {
			continue
		}
		if f.Origin == candidate.Origin && f.DepartureAt.Equal(candidate.DepartureAt) {
			return domain.NewConflict(domain.DepartureCollision)
		}
	}
	for _, f := range existing {
		if excluded(f, excludeID) {
			continue
		}
		if f.Destination == candidate.Destination && f.ArrivalAt.Equal(candidate.ArrivalAt) {
			return domain.NewConflict(domain.ArrivalCollision)
		}
	}
	return nil
}

func excluded(f domain.Flight, excludeID string) bool {
	return excludeID != "" && f.ID == excludeID
}
