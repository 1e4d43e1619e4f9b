package app

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"gite_booking/internal/domain"
)

const unitsCacheKey = "inventory:units"

// AvailabilityService answers "what can be booked in [start, end)?" under
// the parent/child exclusivity rule. The unit tree changes rarely, so it is
// cached; reservations are always read fresh.
type AvailabilityService struct {
	repo     domain.BookingRepository
	cache    domain.Cache
	audit    domain.AuditSink
	cacheTTL time.Duration
	sf       singleflight.Group
}

func NewAvailabilityService(r domain.BookingRepository, c domain.Cache, audit domain.AuditSink, ttl time.Duration) *AvailabilityService {
	return &AvailabilityService{repo: r, cache: c, audit: audit, cacheTTL: ttl}
}

// Inventory loads the unit tree, via cache when possible. Concurrent misses
// collapse into a single repository read.
func (s *AvailabilityService) Inventory(ctx context.Context) (*domain.Inventory, error) {
	if s.cache != nil {
		var units []domain.Unit
		if ok, _ := s.cache.Get(ctx, unitsCacheKey, &units); ok {
			return domain.NewInventory(units)
		}
	}

	v, err, _ := s.sf.Do(unitsCacheKey, func() (any, error) {
		units, err := s.repo.Units(ctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			_ = s.cache.Set(ctx, unitsCacheKey, units, int(s.cacheTTL.Seconds()))
		}
		return units, nil
	})
	if err != nil {
		return nil, err
	}
	return domain.NewInventory(v.([]domain.Unit))
}

// Check returns every unit with its availability for [start, end) and party
// size. excludeReservation skips one reservation in the overlap query, used
// when re-validating a modification against itself. The occupancy filter is
// applied after the exclusivity rule: a too-small unit still takes part in
// blocking but reports unavailable for this request.
func (s *AvailabilityService) Check(ctx context.Context, start, end time.Time, partySize int, excludeReservation int64) ([]domain.UnitAvailability, error) {
	if !end.After(start) {
		return nil, fmt.Errorf("availability [%s, %s): %w",
			start.Format("2006-01-02"), end.Format("2006-01-02"), domain.ErrInvalidRange)
	}

	inv, err := s.Inventory(ctx)
	if err != nil {
		return nil, fmt.Errorf("load inventory: %w", err)
	}
	overlapping, err := s.repo.Overlapping(ctx, start, end, domain.OverlapQuery{
		ExcludeReservationID: excludeReservation,
	})
	if err != nil {
		return nil, fmt.Errorf("load overlapping reservations: %w", err)
	}

	blocked := inv.Blocked(overlapping)
	out := make([]domain.UnitAvailability, 0, len(inv.Units()))
	for _, u := range inv.Units() {
		_, isBlocked := blocked[u.ID]
		avail := !isBlocked
		if partySize > 0 && u.MaxOccupancy < partySize {
			avail = false
		}
		out = append(out, domain.UnitAvailability{Unit: u, Available: avail})
	}

	s.record(ctx, "AVAILABILITY_CHECK")
	return out, nil
}

// IsUnitAvailable answers the check for one unit.
func (s *AvailabilityService) IsUnitAvailable(ctx context.Context, unitID int64, start, end time.Time, partySize int, excludeReservation int64) (bool, error) {
	all, err := s.Check(ctx, start, end, partySize, excludeReservation)
	if err != nil {
		return false, err
	}
	for _, ua := range all {
		if ua.Unit.ID == unitID {
			return ua.Available, nil
		}
	}
	return false, fmt.Errorf("unit %d: %w", unitID, domain.ErrNotFound)
}

func (s *AvailabilityService) record(ctx context.Context, action string) {
	if s.audit == nil {
		return
	}
	e := domain.AuditEvent{Action: action, Entity: "UNIT", At: time.Now().UTC()}
	if err := s.audit.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("action", action).Msg("audit record failed")
	}
}
