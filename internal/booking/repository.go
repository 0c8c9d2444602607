package booking

import (
	"context"
	"errors"
)

var (
	// ErrSlotTaken means the (date, time, duration) slot is already booked.
	// It is raised by the storage layer's unique constraint, which is the
	// authoritative guard against double-booking under concurrent submits.
	ErrSlotTaken = errors.New("slot already booked")
)

// Repository contains all DB interactions needed by the service.
type Repository interface {
	// ListForDate returns every appointment on the given ISO date.
	ListForDate(ctx context.Context, date string) ([]Appointment, error)

	// IsSlotAvailable reports whether no appointment matches the exact
	// (date, time, duration) triple. Pre-check only: it is racy against
	// concurrent inserts and carries no correctness weight.
	IsSlotAvailable(ctx context.Context, date, startTime string, duration int) (bool, error)

	// Save inserts the appointment and returns it with ID and CreatedAt
	// assigned. Returns ErrSlotTaken when the slot unique constraint fires.
	Save(ctx context.Context, appt Appointment) (*Appointment, error)
}
