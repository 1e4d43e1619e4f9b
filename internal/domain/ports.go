package domain

import (
	"context"
	"time"
)

// OverlapQuery narrows an overlap lookup. Zero values mean "no filter".
type OverlapQuery struct {
	UnitID               int64 // scope to one unit
	ExcludeReservationID int64 // skip this reservation (Modify checks against itself)
}

// BookingRepository is the narrow persistence collaborator the engine runs
// against. Overlap queries must already exclude cancelled reservations.
// Implementations must apply reservation+line-item writes atomically,
// surface an insert conflict as ErrUnavailable, and make WithBookingLock
// serialize the whole read-decide-write sequence across processes.
type BookingRepository interface {
	// Inventory (managed externally, read-only here)
	Units(ctx context.Context) ([]Unit, error)
	UnitByID(ctx context.Context, id int64) (Unit, error)

	// Reservations
	Overlapping(ctx context.Context, start, end time.Time, q OverlapQuery) ([]Reservation, error)
	ReservationByID(ctx context.Context, id int64) (Reservation, error)
	ListReservations(ctx context.Context, status Status) ([]Reservation, error)
	ReservationsForGuest(ctx context.Context, guestID int64) ([]Reservation, error)
	CreateReservation(ctx context.Context, r Reservation, items []LineItem) (int64, error)
	UpdateReservation(ctx context.Context, r Reservation, items []LineItem) error
	UpdateReservationStatus(ctx context.Context, id int64, st Status) error
	DeleteReservation(ctx context.Context, id int64) error
	LineItems(ctx context.Context, reservationID int64) ([]LineItem, error)

	// Guests
	GuestByEmail(ctx context.Context, email string) (Guest, error)
	GuestByID(ctx context.Context, id int64) (Guest, error)
	CreateGuest(ctx context.Context, g Guest) (int64, error)

	// Rates & platforms
	ResolveRate(ctx context.Context, typeID, platformID int64, on time.Time) (Rate, error)
	Platforms(ctx context.Context) ([]Platform, error)

	WithBookingLock(ctx context.Context, key string, fn func(context.Context) error) error
}

// AuditSink consumes audit events. Callers treat it as fire-and-forget.
type AuditSink interface {
	Record(ctx context.Context, e AuditEvent) error
}

type Cache interface {
	Get(ctx context.Context, key string, dst any) (bool, error)
	Set(ctx context.Context, key string, v any, ttlSec int) error
	Del(ctx context.Context, key string) error
}
