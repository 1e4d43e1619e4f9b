package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Status is the reservation lifecycle state. The lifecycle is linear
// (Reserved -> CheckedIn -> CheckedOut) with Cancelled acting as a soft
// delete reachable from the two non-terminal states.
type Status string

const (
	StatusReserved   Status = "Reserved"
	StatusCheckedIn  Status = "CheckedIn"
	StatusCheckedOut Status = "CheckedOut"
	StatusCancelled  Status = "Cancelled"
)

var legalTransitions = map[Status][]Status{
	StatusReserved:  {StatusCheckedIn, StatusCancelled},
	StatusCheckedIn: {StatusCheckedOut, StatusCancelled},
	// CheckedOut and Cancelled are terminal
}

// ValidStatus reports whether s is one of the four lifecycle states.
func ValidStatus(s Status) bool {
	switch s {
	case StatusReserved, StatusCheckedIn, StatusCheckedOut, StatusCancelled:
		return true
	}
	return false
}

// CanTransition reports whether from -> to is a legal lifecycle step.
func CanTransition(from, to Status) bool {
	for _, next := range legalTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Reservation is a booked stay over [Start, End). End is exclusive: a guest
// leaving on the 8th does not block the night of the 8th.
type Reservation struct {
	ID         int64
	Reference  string
	GuestID    int64
	UnitID     int64
	PlatformID int64
	Start      time.Time
	End        time.Time
	PartySize  int
	Status     Status

	// joined display data, filled by read queries
	GuestName string
	UnitName  string
	Platform  string
}

// Overlaps reports whether the stay intersects [start, end).
func (r Reservation) Overlaps(start, end time.Time) bool {
	return r.Start.Before(end) && start.Before(r.End)
}

// Nights returns the whole-day length of [start, end).
func Nights(start, end time.Time) int {
	return int(end.Sub(start).Hours() / 24)
}

// LineItem is a priced component of a reservation. UnitPrice is frozen at
// booking time; editing rates later never changes an existing invoice.
type LineItem struct {
	ID            int64
	ReservationID int64
	CategoryID    int64
	Category      string
	Quantity      int
	UnitPrice     decimal.Decimal
}

// Amount is quantity times the frozen unit price.
func (li LineItem) Amount() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(int64(li.Quantity)))
}

// Guest is the booking party, identified stably by email.
type Guest struct {
	ID         int64
	Name       string
	Email      string
	Phone      string
	Street     string
	HouseNo    string
	PostalCode string
	City       string
	Country    string
}

// AuditEvent is what the engine hands to the audit sink. Fire-and-forget:
// a sink failure must never fail the operation being audited.
type AuditEvent struct {
	Action   string
	Entity   string
	EntityID int64 // 0 when the event is not tied to one entity
	At       time.Time
}
