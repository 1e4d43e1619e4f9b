package domain_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"gite_booking/internal/domain"
)

func TestCanTransition(t *testing.T) {
	allowed := map[[2]domain.Status]bool{
		{domain.StatusReserved, domain.StatusCheckedIn}:   true,
		{domain.StatusReserved, domain.StatusCancelled}:   true,
		{domain.StatusCheckedIn, domain.StatusCheckedOut}: true,
		{domain.StatusCheckedIn, domain.StatusCancelled}:  true,
	}
	states := []domain.Status{
		domain.StatusReserved, domain.StatusCheckedIn,
		domain.StatusCheckedOut, domain.StatusCancelled,
	}
	for _, from := range states {
		for _, to := range states {
			want := allowed[[2]domain.Status{from, to}]
			if got := domain.CanTransition(from, to); got != want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", from, to, got, want)
			}
		}
	}
}

func TestNights(t *testing.T) {
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	if n := domain.Nights(start, start.AddDate(0, 0, 7)); n != 7 {
		t.Errorf("Nights = %d, want 7", n)
	}
	if n := domain.Nights(start, start); n != 0 {
		t.Errorf("Nights of empty range = %d, want 0", n)
	}
}

func TestLineItemAmount(t *testing.T) {
	li := domain.LineItem{Quantity: 6, UnitPrice: decimal.RequireFromString("1.50")}
	if got := li.Amount(); !got.Equal(decimal.RequireFromString("9")) {
		t.Errorf("Amount = %s, want 9", got)
	}
}
