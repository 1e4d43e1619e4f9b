package app_test

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"gite_booking/internal/domain"
)

// ---- fakes ----

// fakeRepo is an in-memory BookingRepository honouring the port's contract:
// atomic reservation+items writes, per-key serialization, and an
// insert-time overlap check standing in for the storage conflict signal.
type fakeRepo struct {
	mu           sync.Mutex
	units        []domain.Unit
	guests       map[int64]domain.Guest
	reservations map[int64]domain.Reservation
	items        map[int64][]domain.LineItem
	rates        []domain.Rate
	nextID       int64
	locks        sync.Map // lock key -> *sync.Mutex

	unitsErr     error  // inject a load failure
	beforeCreate func() // runs just before the insert's conflict check
}

func newFakeRepo(units []domain.Unit, rates []domain.Rate) *fakeRepo {
	return &fakeRepo{
		units:        units,
		guests:       map[int64]domain.Guest{},
		reservations: map[int64]domain.Reservation{},
		items:        map[int64][]domain.LineItem{},
		rates:        rates,
	}
}

func (f *fakeRepo) Units(ctx context.Context) ([]domain.Unit, error) {
	if f.unitsErr != nil {
		return nil, f.unitsErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.Unit(nil), f.units...), nil
}

func (f *fakeRepo) UnitByID(ctx context.Context, id int64) (domain.Unit, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, u := range f.units {
		if u.ID == id {
			return u, nil
		}
	}
	return domain.Unit{}, domain.ErrNotFound
}

func (f *fakeRepo) Overlapping(ctx context.Context, start, end time.Time, q domain.OverlapQuery) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.reservations {
		if r.Status == domain.StatusCancelled {
			continue
		}
		if q.UnitID != 0 && r.UnitID != q.UnitID {
			continue
		}
		if q.ExcludeReservationID != 0 && r.ID == q.ExcludeReservationID {
			continue
		}
		if r.Overlaps(start, end) {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ReservationByID(ctx context.Context, id int64) (domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return domain.Reservation{}, domain.ErrNotFound
	}
	return r, nil
}

func (f *fakeRepo) ListReservations(ctx context.Context, status domain.Status) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.reservations {
		if status == "" || r.Status == status {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) ReservationsForGuest(ctx context.Context, guestID int64) ([]domain.Reservation, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Reservation
	for _, r := range f.reservations {
		if r.GuestID == guestID {
			out = append(out, r)
		}
	}
	return out, nil
}

func (f *fakeRepo) CreateReservation(ctx context.Context, r domain.Reservation, items []domain.LineItem) (int64, error) {
	if f.beforeCreate != nil {
		f.beforeCreate()
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	// the stand-in for the storage layer's exclusion constraint
	for _, other := range f.reservations {
		if other.UnitID == r.UnitID && other.Status != domain.StatusCancelled && other.Overlaps(r.Start, r.End) {
			return 0, fmt.Errorf("conflicting stay on unit %d: %w", r.UnitID, domain.ErrUnavailable)
		}
	}
	f.nextID++
	r.ID = f.nextID
	f.reservations[r.ID] = r
	f.items[r.ID] = fixItemIDs(r.ID, items)
	return r.ID, nil
}

func (f *fakeRepo) UpdateReservation(ctx context.Context, r domain.Reservation, items []domain.LineItem) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[r.ID]; !ok {
		return domain.ErrNotFound
	}
	f.reservations[r.ID] = r
	f.items[r.ID] = fixItemIDs(r.ID, items)
	return nil
}

func (f *fakeRepo) UpdateReservationStatus(ctx context.Context, id int64, st domain.Status) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.reservations[id]
	if !ok {
		return domain.ErrNotFound
	}
	r.Status = st
	f.reservations[id] = r
	return nil
}

func (f *fakeRepo) DeleteReservation(ctx context.Context, id int64) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.reservations[id]; !ok {
		return domain.ErrNotFound
	}
	delete(f.reservations, id)
	delete(f.items, id)
	return nil
}

func (f *fakeRepo) LineItems(ctx context.Context, reservationID int64) ([]domain.LineItem, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]domain.LineItem(nil), f.items[reservationID]...), nil
}

func (f *fakeRepo) GuestByEmail(ctx context.Context, email string) (domain.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, g := range f.guests {
		if g.Email == email {
			return g, nil
		}
	}
	return domain.Guest{}, domain.ErrNotFound
}

func (f *fakeRepo) GuestByID(ctx context.Context, id int64) (domain.Guest, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	g, ok := f.guests[id]
	if !ok {
		return domain.Guest{}, domain.ErrNotFound
	}
	return g, nil
}

func (f *fakeRepo) CreateGuest(ctx context.Context, g domain.Guest) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.nextID++
	g.ID = f.nextID
	f.guests[g.ID] = g
	return g.ID, nil
}

func (f *fakeRepo) ResolveRate(ctx context.Context, typeID, platformID int64, on time.Time) (domain.Rate, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if r, ok := domain.SelectRate(f.rates, typeID, platformID, on); ok {
		return r, nil
	}
	return domain.Rate{}, domain.ErrNotFound
}

func (f *fakeRepo) Platforms(ctx context.Context) ([]domain.Platform, error) {
	return []domain.Platform{{ID: 4, Name: "Direct"}}, nil
}

func (f *fakeRepo) WithBookingLock(ctx context.Context, key string, fn func(context.Context) error) error {
	v, _ := f.locks.LoadOrStore(key, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	defer mu.Unlock()
	return fn(ctx)
}

func fixItemIDs(reservationID int64, items []domain.LineItem) []domain.LineItem {
	out := append([]domain.LineItem(nil), items...)
	for i := range out {
		out[i].ID = int64(i + 1)
		out[i].ReservationID = reservationID
	}
	return out
}

type fakeCache struct {
	store map[string][]domain.Unit
}

func (c *fakeCache) Get(ctx context.Context, key string, dst any) (bool, error) {
	v, ok := c.store[key]
	if !ok {
		return false, nil
	}
	if d, ok2 := dst.(*[]domain.Unit); ok2 {
		*d = append([]domain.Unit(nil), v...)
		return true, nil
	}
	return false, nil
}

func (c *fakeCache) Set(ctx context.Context, key string, v any, ttlSec int) error {
	if c.store == nil {
		c.store = map[string][]domain.Unit{}
	}
	if units, ok := v.([]domain.Unit); ok {
		c.store[key] = append([]domain.Unit(nil), units...)
	}
	return nil
}

func (c *fakeCache) Del(ctx context.Context, key string) error {
	delete(c.store, key)
	return nil
}

type fakeAudit struct {
	mu     sync.Mutex
	events []domain.AuditEvent
}

func (a *fakeAudit) Record(ctx context.Context, e domain.AuditEvent) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.events = append(a.events, e)
	return nil
}

func (a *fakeAudit) actions() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	out := make([]string, len(a.events))
	for i, e := range a.events {
		out[i] = e.Action
	}
	return out
}

// ---- shared fixture ----

func pid(v int64) *int64 { return &v }

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func testUnits() []domain.Unit {
	return []domain.Unit{
		{ID: 1, Name: "Gîte entier", TypeID: 1, Kind: domain.KindWhole, MaxOccupancy: 12},
		{ID: 2, Name: "Chambre 1", TypeID: 2, Kind: domain.KindSlot, MaxOccupancy: 4, ParentID: pid(1)},
		{ID: 3, Name: "Chambre 2", TypeID: 2, Kind: domain.KindSlot, MaxOccupancy: 4, ParentID: pid(1)},
	}
}

// testRates: 100/night for the whole property (no tax), 50/person/night for
// slots with 1.50 tourist tax not included — the canonical fixture.
func testRates() []domain.Rate {
	return []domain.Rate{
		{
			ID: 1, TypeID: 1, CategoryID: 1, Category: "Nightly",
			Price:       decimal.NewFromInt(100),
			TaxIncluded: true,
			ValidFrom:   date(2025, 1, 1),
		},
		{
			ID: 2, TypeID: 2, CategoryID: 2, Category: "Per person",
			Price:     decimal.NewFromInt(50),
			TaxRate:   decimal.RequireFromString("1.5"),
			ValidFrom: date(2025, 1, 1),
		},
	}
}
