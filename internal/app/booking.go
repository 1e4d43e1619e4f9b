package app

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"gite_booking/internal/domain"
)

// BookingService orchestrates the booking lifecycle. Every write runs the
// check-then-act sequence inside the repository's per-group lock, and the
// storage layer's own conflict signal remains the final word: an insert
// conflict surfaces as ErrUnavailable, never as a stored double-booking.
type BookingService struct {
	repo         domain.BookingRepository
	availability *AvailabilityService
	pricing      *PricingService
	audit        domain.AuditSink
}

func NewBookingService(r domain.BookingRepository, av *AvailabilityService, pr *PricingService, audit domain.AuditSink) *BookingService {
	return &BookingService{repo: r, availability: av, pricing: pr, audit: audit}
}

// GuestDetails is the booking party's contact data, used to create the
// guest on their first booking. Email is the stable identity.
type GuestDetails struct {
	Name       string
	Email      string
	Phone      string
	Street     string
	HouseNo    string
	PostalCode string
	City       string
	Country    string
}

type CreateBookingRequest struct {
	UnitID     int64
	PlatformID int64
	Start      time.Time
	End        time.Time
	PartySize  int
	Guest      GuestDetails
}

// ModifyBookingRequest carries the fields being changed; nil fields keep
// the reservation's current values.
type ModifyBookingRequest struct {
	Start     *time.Time
	End       *time.Time
	UnitID    *int64
	PartySize *int
}

// Confirmation is the caller-facing result of a successful create or modify.
type Confirmation struct {
	ReservationID int64
	Reference     string
	UnitName      string
	Start         time.Time
	End           time.Time
	Nights        int
	Total         decimal.Decimal
}

// Create books a stay: availability under the exclusivity rule, guest
// find-or-create by email, pricing, then one atomic write of the
// reservation and its frozen line items.
func (s *BookingService) Create(ctx context.Context, req CreateBookingRequest) (Confirmation, error) {
	if !req.End.After(req.Start) {
		return Confirmation{}, fmt.Errorf("create booking: %w", domain.ErrInvalidRange)
	}
	if req.PartySize <= 0 {
		req.PartySize = 1
	}

	unit, err := s.repo.UnitByID(ctx, req.UnitID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("unit %d: %w", req.UnitID, err)
	}
	inv, err := s.availability.Inventory(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("load inventory: %w", err)
	}

	var conf Confirmation
	err = s.repo.WithBookingLock(ctx, inv.GroupKey(unit.ID), func(ctx context.Context) error {
		ok, err := s.availability.IsUnitAvailable(ctx, unit.ID, req.Start, req.End, req.PartySize, 0)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unit %q for [%s, %s): %w", unit.Name,
				req.Start.Format("2006-01-02"), req.End.Format("2006-01-02"), domain.ErrUnavailable)
		}

		quote, err := s.pricing.Quote(ctx, unit, req.PlatformID, req.Start, req.End, req.PartySize)
		if err != nil {
			return err
		}
		guestID, err := s.resolveGuest(ctx, req.Guest)
		if err != nil {
			return err
		}

		res := domain.Reservation{
			Reference:  newReference(),
			GuestID:    guestID,
			UnitID:     unit.ID,
			PlatformID: req.PlatformID,
			Start:      req.Start,
			End:        req.End,
			PartySize:  req.PartySize,
			Status:     domain.StatusReserved,
		}
		id, err := s.repo.CreateReservation(ctx, res, quote.Lines)
		if err != nil {
			return fmt.Errorf("persist reservation: %w", err)
		}

		conf = Confirmation{
			ReservationID: id,
			Reference:     res.Reference,
			UnitName:      unit.Name,
			Start:         req.Start,
			End:           req.End,
			Nights:        quote.Nights,
			Total:         quote.Total,
		}
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}

	s.record(ctx, "RESERVATION_CREATED", conf.ReservationID)
	return conf, nil
}

// Modify re-runs the full create validation against the effective new
// values, excluding the reservation's own nights from the overlap check.
// On success the mutable fields are overwritten and the line items replaced
// with a fresh quote in the same transaction; on failure the reservation is
// left untouched.
func (s *BookingService) Modify(ctx context.Context, reservationID int64, req ModifyBookingRequest) (Confirmation, error) {
	existing, err := s.repo.ReservationByID(ctx, reservationID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	if existing.Status == domain.StatusCancelled {
		return Confirmation{}, fmt.Errorf("reservation %d is cancelled: %w", reservationID, domain.ErrInvalidTransition)
	}

	start, end := existing.Start, existing.End
	unitID, partySize := existing.UnitID, existing.PartySize
	if req.Start != nil {
		start = *req.Start
	}
	if req.End != nil {
		end = *req.End
	}
	if req.UnitID != nil {
		unitID = *req.UnitID
	}
	if req.PartySize != nil {
		partySize = *req.PartySize
	}
	if !end.After(start) {
		return Confirmation{}, fmt.Errorf("modify booking: %w", domain.ErrInvalidRange)
	}
	if partySize <= 0 {
		partySize = 1
	}

	unit, err := s.repo.UnitByID(ctx, unitID)
	if err != nil {
		return Confirmation{}, fmt.Errorf("unit %d: %w", unitID, err)
	}
	inv, err := s.availability.Inventory(ctx)
	if err != nil {
		return Confirmation{}, fmt.Errorf("load inventory: %w", err)
	}

	var conf Confirmation
	err = s.repo.WithBookingLock(ctx, inv.GroupKey(unit.ID), func(ctx context.Context) error {
		ok, err := s.availability.IsUnitAvailable(ctx, unit.ID, start, end, partySize, reservationID)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("unit %q for [%s, %s): %w", unit.Name,
				start.Format("2006-01-02"), end.Format("2006-01-02"), domain.ErrUnavailable)
		}

		quote, err := s.pricing.Quote(ctx, unit, existing.PlatformID, start, end, partySize)
		if err != nil {
			return err
		}

		updated := existing
		updated.UnitID = unit.ID
		updated.Start = start
		updated.End = end
		updated.PartySize = partySize
		if err := s.repo.UpdateReservation(ctx, updated, quote.Lines); err != nil {
			return fmt.Errorf("persist modification: %w", err)
		}

		conf = Confirmation{
			ReservationID: reservationID,
			Reference:     existing.Reference,
			UnitName:      unit.Name,
			Start:         start,
			End:           end,
			Nights:        quote.Nights,
			Total:         quote.Total,
		}
		return nil
	})
	if err != nil {
		return Confirmation{}, err
	}

	s.record(ctx, "RESERVATION_MODIFIED", reservationID)
	return conf, nil
}

// Cancel soft-deletes a Reserved or CheckedIn stay. From this point the
// reservation is excluded from overlap queries and the nights are free
// again.
func (s *BookingService) Cancel(ctx context.Context, reservationID int64) error {
	res, err := s.repo.ReservationByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	if !domain.CanTransition(res.Status, domain.StatusCancelled) {
		return fmt.Errorf("cancel from %s: %w", res.Status, domain.ErrInvalidTransition)
	}
	if err := s.repo.UpdateReservationStatus(ctx, reservationID, domain.StatusCancelled); err != nil {
		return fmt.Errorf("persist cancellation: %w", err)
	}
	s.record(ctx, "RESERVATION_CANCELLED", reservationID)
	return nil
}

// ChangeStatus applies one step of the lifecycle state machine.
func (s *BookingService) ChangeStatus(ctx context.Context, reservationID int64, to domain.Status) error {
	if !domain.ValidStatus(to) {
		return fmt.Errorf("unknown status %q: %w", to, domain.ErrInvalidTransition)
	}
	res, err := s.repo.ReservationByID(ctx, reservationID)
	if err != nil {
		return fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	if !domain.CanTransition(res.Status, to) {
		return fmt.Errorf("%s -> %s: %w", res.Status, to, domain.ErrInvalidTransition)
	}
	if err := s.repo.UpdateReservationStatus(ctx, reservationID, to); err != nil {
		return fmt.Errorf("persist status change: %w", err)
	}
	s.record(ctx, "RESERVATION_STATUS_"+strings.ToUpper(string(to)), reservationID)
	return nil
}

// Delete hard-deletes a reservation and its line items, bypassing the state
// machine. Irreversible; who may call this is the caller's concern.
func (s *BookingService) Delete(ctx context.Context, reservationID int64) error {
	if _, err := s.repo.ReservationByID(ctx, reservationID); err != nil {
		return fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	if err := s.repo.DeleteReservation(ctx, reservationID); err != nil {
		return fmt.Errorf("delete reservation: %w", err)
	}
	s.record(ctx, "RESERVATION_DELETED", reservationID)
	return nil
}

// Read-side passthroughs for the API surface.

func (s *BookingService) Reservation(ctx context.Context, id int64) (domain.Reservation, error) {
	return s.repo.ReservationByID(ctx, id)
}

func (s *BookingService) List(ctx context.Context, status domain.Status) ([]domain.Reservation, error) {
	if status != "" && !domain.ValidStatus(status) {
		return nil, fmt.Errorf("unknown status %q: %w", status, domain.ErrNotFound)
	}
	return s.repo.ListReservations(ctx, status)
}

func (s *BookingService) GuestBookings(ctx context.Context, guestID int64) ([]domain.Reservation, error) {
	if _, err := s.repo.GuestByID(ctx, guestID); err != nil {
		return nil, fmt.Errorf("guest %d: %w", guestID, err)
	}
	return s.repo.ReservationsForGuest(ctx, guestID)
}

func (s *BookingService) Platforms(ctx context.Context) ([]domain.Platform, error) {
	return s.repo.Platforms(ctx)
}

func (s *BookingService) LineItems(ctx context.Context, reservationID int64) ([]domain.LineItem, error) {
	if _, err := s.repo.ReservationByID(ctx, reservationID); err != nil {
		return nil, fmt.Errorf("reservation %d: %w", reservationID, err)
	}
	return s.repo.LineItems(ctx, reservationID)
}

// resolveGuest reuses the guest on file for the email, creating one on
// first contact.
func (s *BookingService) resolveGuest(ctx context.Context, g GuestDetails) (int64, error) {
	existing, err := s.repo.GuestByEmail(ctx, g.Email)
	if err == nil {
		return existing.ID, nil
	}
	if !errors.Is(err, domain.ErrNotFound) {
		return 0, fmt.Errorf("look up guest: %w", err)
	}
	id, err := s.repo.CreateGuest(ctx, domain.Guest{
		Name:       g.Name,
		Email:      g.Email,
		Phone:      g.Phone,
		Street:     g.Street,
		HouseNo:    g.HouseNo,
		PostalCode: g.PostalCode,
		City:       g.City,
		Country:    g.Country,
	})
	if err != nil {
		return 0, fmt.Errorf("create guest: %w", err)
	}
	return id, nil
}

func newReference() string {
	return "RSV-" + strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:10])
}

func (s *BookingService) record(ctx context.Context, action string, id int64) {
	if s.audit == nil {
		return
	}
	e := domain.AuditEvent{Action: action, Entity: "RESERVATION", EntityID: id, At: time.Now().UTC()}
	if err := s.audit.Record(ctx, e); err != nil {
		log.Warn().Err(err).Str("action", action).Int64("id", id).Msg("audit record failed")
	}
}
