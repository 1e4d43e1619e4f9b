package app_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"gite_booking/internal/app"
	"gite_booking/internal/domain"
)

func availabilityFor(t *testing.T, repo *fakeRepo, cache domain.Cache) *app.AvailabilityService {
	t.Helper()
	return app.NewAvailabilityService(repo, cache, &fakeAudit{}, time.Minute)
}

func TestCheckAllFreeWhenNothingBooked(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	svc := availabilityFor(t, repo, nil)

	out, err := svc.Check(context.Background(), date(2025, 6, 1), date(2025, 6, 8), 0, 0)
	require.NoError(t, err)
	require.Len(t, out, 3)
	for _, ua := range out {
		require.True(t, ua.Available, "unit %d", ua.Unit.ID)
	}
}

func TestCheckParentBookingBlocksChildren(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	repo.reservations[1] = domain.Reservation{
		ID: 1, UnitID: 1, Status: domain.StatusReserved,
		Start: date(2025, 6, 1), End: date(2025, 6, 8),
	}
	svc := availabilityFor(t, repo, nil)

	out, err := svc.Check(context.Background(), date(2025, 6, 5), date(2025, 6, 10), 0, 0)
	require.NoError(t, err)
	for _, ua := range out {
		require.False(t, ua.Available, "unit %d should be blocked", ua.Unit.ID)
	}
}

func TestCheckChildBookingLeavesSibling(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	repo.reservations[1] = domain.Reservation{
		ID: 1, UnitID: 2, Status: domain.StatusReserved,
		Start: date(2025, 6, 1), End: date(2025, 6, 8),
	}
	svc := availabilityFor(t, repo, nil)

	avail := map[int64]bool{}
	out, err := svc.Check(context.Background(), date(2025, 6, 1), date(2025, 6, 8), 0, 0)
	require.NoError(t, err)
	for _, ua := range out {
		avail[ua.Unit.ID] = ua.Available
	}
	require.False(t, avail[1], "parent must be blocked")
	require.False(t, avail[2], "booked room must be blocked")
	require.True(t, avail[3], "sibling room stays open")
}

func TestCheckOccupancyAfterExclusivity(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	svc := availabilityFor(t, repo, nil)

	// Party of 5 exceeds the 4-person rooms but fits the whole property.
	out, err := svc.Check(context.Background(), date(2025, 6, 1), date(2025, 6, 8), 5, 0)
	require.NoError(t, err)
	for _, ua := range out {
		if ua.Unit.ID == 1 {
			require.True(t, ua.Available)
		} else {
			require.False(t, ua.Available, "unit %d too small for the party", ua.Unit.ID)
		}
	}
}

func TestCheckExcludesOwnReservation(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	repo.reservations[7] = domain.Reservation{
		ID: 7, UnitID: 2, Status: domain.StatusReserved,
		Start: date(2025, 6, 1), End: date(2025, 6, 8),
	}
	svc := availabilityFor(t, repo, nil)

	ok, err := svc.IsUnitAvailable(context.Background(), 2, date(2025, 6, 1), date(2025, 6, 10), 2, 7)
	require.NoError(t, err)
	require.True(t, ok, "a reservation must not block its own modification")
}

func TestCheckInvalidRange(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	svc := availabilityFor(t, repo, nil)

	_, err := svc.Check(context.Background(), date(2025, 6, 8), date(2025, 6, 1), 0, 0)
	require.ErrorIs(t, err, domain.ErrInvalidRange)
}

func TestIsUnitAvailableUnknownUnit(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	svc := availabilityFor(t, repo, nil)

	_, err := svc.IsUnitAvailable(context.Background(), 99, date(2025, 6, 1), date(2025, 6, 2), 1, 0)
	require.ErrorIs(t, err, domain.ErrNotFound)
}

func TestInventoryServedFromCache(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	cache := &fakeCache{store: map[string][]domain.Unit{}}
	svc := availabilityFor(t, repo, cache)

	// Warm the cache, then make the repository unusable.
	_, err := svc.Inventory(context.Background())
	require.NoError(t, err)
	repo.unitsErr = errors.New("db down")

	inv, err := svc.Inventory(context.Background())
	require.NoError(t, err)
	require.Len(t, inv.Units(), 3)
}

func TestInventoryMissHitsRepository(t *testing.T) {
	repo := newFakeRepo(testUnits(), testRates())
	repo.unitsErr = errors.New("db down")
	svc := availabilityFor(t, repo, &fakeCache{})

	_, err := svc.Inventory(context.Background())
	require.Error(t, err)
}
