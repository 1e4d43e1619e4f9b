package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gite_booking/internal/domain"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func rate(id int64, platform *int64, from time.Time, to *time.Time, price int64) domain.Rate {
	return domain.Rate{
		ID:         id,
		TypeID:     1,
		CategoryID: 1,
		PlatformID: platform,
		Price:      decimal.NewFromInt(price),
		ValidFrom:  from,
		ValidTo:    to,
	}
}

func TestSelectRate_PlatformSpecificWins(t *testing.T) {
	until := day(2025, 12, 31)
	rates := []domain.Rate{
		rate(1, nil, day(2025, 1, 1), &until, 100),
		rate(2, pid(4), day(2025, 1, 1), &until, 120),
	}

	got, ok := domain.SelectRate(rates, 1, 4, day(2025, 6, 1))
	if !ok || got.ID != 2 {
		t.Fatalf("got rate %+v ok=%v, want platform-specific rate 2", got, ok)
	}

	// a platform without its own rate falls back to the generic one
	got, ok = domain.SelectRate(rates, 1, 7, day(2025, 6, 1))
	if !ok || got.ID != 1 {
		t.Fatalf("got rate %+v ok=%v, want generic rate 1", got, ok)
	}
}

func TestSelectRate_ValidityWindow(t *testing.T) {
	until := day(2025, 6, 30)
	rates := []domain.Rate{rate(1, nil, day(2025, 6, 1), &until, 100)}

	for _, tc := range []struct {
		on   time.Time
		want bool
	}{
		{day(2025, 6, 1), true},
		{day(2025, 6, 30), true}, // validTo is inclusive
		{day(2025, 5, 31), false},
		{day(2025, 7, 1), false},
	} {
		if _, ok := domain.SelectRate(rates, 1, 4, tc.on); ok != tc.want {
			t.Errorf("on %s: ok=%v, want %v", tc.on.Format("2006-01-02"), ok, tc.want)
		}
	}

	// open-ended window
	openEnded := []domain.Rate{rate(1, nil, day(2025, 1, 1), nil, 100)}
	if _, ok := domain.SelectRate(openEnded, 1, 4, day(2031, 1, 1)); !ok {
		t.Error("open-ended rate should apply far in the future")
	}
}

func TestSelectRate_TieBreakIsStable(t *testing.T) {
	// overlapping generic windows: newest window wins, then highest id
	rates := []domain.Rate{
		rate(1, nil, day(2025, 1, 1), nil, 100),
		rate(2, nil, day(2025, 5, 1), nil, 110),
		rate(3, nil, day(2025, 5, 1), nil, 110),
	}
	got, ok := domain.SelectRate(rates, 1, 4, day(2025, 6, 1))
	if !ok || got.ID != 3 {
		t.Fatalf("got rate %d, want 3", got.ID)
	}
}

func TestSelectRate_WrongTypeOrPlatform(t *testing.T) {
	rates := []domain.Rate{
		rate(1, pid(9), day(2025, 1, 1), nil, 100),
		{ID: 2, TypeID: 2, Price: decimal.NewFromInt(50), ValidFrom: day(2025, 1, 1)},
	}
	if _, ok := domain.SelectRate(rates, 1, 4, day(2025, 6, 1)); ok {
		t.Error("rate for another platform must not match")
	}
}
