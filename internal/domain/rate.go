package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Platform is a sales channel. The commission percentage is reporting-only
// and never enters guest-facing price computation.
type Platform struct {
	ID         int64
	Name       string
	Commission decimal.Decimal
}

// RateCategory labels what a line item was charged for (lodging, tourist tax).
type RateCategory struct {
	ID   int64
	Name string
}

// Rate is a price for an accommodation type, optionally platform-specific,
// valid over [ValidFrom, ValidTo]. A nil ValidTo means open-ended, a nil
// PlatformID means the rate applies to every platform.
type Rate struct {
	ID          int64
	TypeID      int64
	CategoryID  int64
	PlatformID  *int64
	Price       decimal.Decimal
	TaxIncluded bool
	TaxRate     decimal.Decimal
	ValidFrom   time.Time
	ValidTo     *time.Time
	Category    string
}

// AppliesOn reports whether the rate's validity window contains day.
func (r Rate) AppliesOn(day time.Time) bool {
	if day.Before(r.ValidFrom) {
		return false
	}
	return r.ValidTo == nil || !r.ValidTo.Before(day)
}

// SelectRate picks the single applicable rate for (typeID, platformID, day):
// the validity window must contain day and the rate must be either generic
// or for exactly this platform, with a platform-specific match beating a
// generic one. Residual ties (overlapping windows, a data-quality condition
// the engine tolerates) resolve stably to the newest window, then highest
// id — the same order the SQL lookup produces.
func SelectRate(rates []Rate, typeID, platformID int64, day time.Time) (Rate, bool) {
	var best Rate
	found := false
	for _, r := range rates {
		if r.TypeID != typeID || !r.AppliesOn(day) {
			continue
		}
		if r.PlatformID != nil && *r.PlatformID != platformID {
			continue
		}
		if !found || betterRate(r, best) {
			best = r
			found = true
		}
	}
	return best, found
}

func betterRate(a, b Rate) bool {
	if (a.PlatformID != nil) != (b.PlatformID != nil) {
		return a.PlatformID != nil
	}
	if !a.ValidFrom.Equal(b.ValidFrom) {
		return a.ValidFrom.After(b.ValidFrom)
	}
	return a.ID > b.ID
}
