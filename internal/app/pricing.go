package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"gite_booking/internal/domain"
)

// touristTaxCategoryID matches the seeded rate_categories row for tourist
// tax; the lodging line carries whatever category the resolved rate has.
const touristTaxCategoryID = 3

// Quote is a fully priced stay. The line items carry the unit prices frozen
// for the invoice; Total is their sum.
type Quote struct {
	Nights int
	Rate   domain.Rate
	Lines  []domain.LineItem
	Total  decimal.Decimal
}

// PricingService resolves the applicable rate and prices a stay. It never
// writes; the caller freezes the quote's lines into the reservation.
type PricingService struct {
	repo domain.BookingRepository
}

func NewPricingService(r domain.BookingRepository) *PricingService {
	return &PricingService{repo: r}
}

// Quote prices unit for [start, end) and the given party size. The rate is
// resolved for the stay's first night.
func (s *PricingService) Quote(ctx context.Context, unit domain.Unit, platformID int64, start, end time.Time, partySize int) (Quote, error) {
	nights := domain.Nights(start, end)
	if nights <= 0 {
		return Quote{}, fmt.Errorf("stay of %d nights: %w", nights, domain.ErrInvalidRange)
	}
	if partySize <= 0 {
		partySize = 1
	}

	rate, err := s.repo.ResolveRate(ctx, unit.TypeID, platformID, start)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return Quote{}, fmt.Errorf("no applicable rate for type %d, platform %d on %s: %w",
				unit.TypeID, platformID, start.Format("2006-01-02"), domain.ErrNotFound)
		}
		return Quote{}, fmt.Errorf("resolve rate: %w", err)
	}
	return buildQuote(unit, rate, nights, partySize), nil
}

// buildQuote computes the price from already-resolved inputs:
// whole-property stays cost price*nights, slot stays price*party*nights,
// plus person*nights*taxRate when tourist tax is not included in the rate.
func buildQuote(unit domain.Unit, rate domain.Rate, nights, partySize int) Quote {
	lodgingQty := nights
	if unit.Kind == domain.KindSlot {
		lodgingQty = nights * partySize
	}
	lines := []domain.LineItem{{
		CategoryID: rate.CategoryID,
		Category:   rate.Category,
		Quantity:   lodgingQty,
		UnitPrice:  rate.Price,
	}}

	if !rate.TaxIncluded && rate.TaxRate.IsPositive() {
		lines = append(lines, domain.LineItem{
			CategoryID: touristTaxCategoryID,
			Category:   "Tourist tax",
			Quantity:   nights * partySize,
			UnitPrice:  rate.TaxRate,
		})
	}

	total := decimal.Zero
	for _, li := range lines {
		total = total.Add(li.Amount())
	}
	return Quote{Nights: nights, Rate: rate, Lines: lines, Total: total}
}
