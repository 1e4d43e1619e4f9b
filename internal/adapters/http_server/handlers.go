package httpserver

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"gite_booking/internal/adapters/observability"
	"gite_booking/internal/app"
	"gite_booking/internal/domain"
)

type Handlers struct {
	Availability *app.AvailabilityService
	Bookings     *app.BookingService
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

const dateLayout = "2006-01-02"

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Route("/v1", func(r chi.Router) {
		if s.apiKey != "" {
			r.Use(APIKeyAuth(s.apiKey))
		}
		r.Get("/units", h.listUnits)
		r.Get("/platforms", h.listPlatforms)
		r.Get("/availability", h.checkAvailability)
		r.Route("/bookings", func(r chi.Router) {
			r.Post("/", h.createBooking)
			r.Get("/", h.listBookings)
			r.Get("/{id}", h.getBooking)
			r.Put("/{id}", h.modifyBooking)
			r.Delete("/{id}", h.deleteBooking)
			r.Patch("/{id}/cancel", h.cancelBooking)
			r.Patch("/{id}/status", h.changeStatus)
			r.Get("/{id}/items", h.listItems)
		})
		r.Get("/guests/{id}/bookings", h.guestBookings)
	})
}

// ---- response plumbing ----

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("write JSON response failed")
	}
}

// mapError translates the domain taxonomy onto HTTP statuses and records
// the operation outcome.
func mapError(w http.ResponseWriter, op string, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidRange):
		observability.ObserveBookingOp(op, "invalid")
		writeProblem(w, http.StatusUnprocessableEntity, "Invalid Range", err.Error())
	case errors.Is(err, domain.ErrNotFound):
		observability.ObserveBookingOp(op, "not_found")
		writeProblem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, domain.ErrUnavailable):
		observability.ObserveBookingOp(op, "unavailable")
		writeProblem(w, http.StatusConflict, "Unavailable", err.Error())
	case errors.Is(err, domain.ErrInvalidTransition):
		observability.ObserveBookingOp(op, "invalid_transition")
		writeProblem(w, http.StatusConflict, "Invalid Transition", err.Error())
	default:
		observability.ObserveBookingOp(op, "error")
		log.Error().Err(err).Str("op", op).Msg("request failed")
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "")
	}
}

func parseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

func urlID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

// ---- DTOs ----

type unitDTO struct {
	ID           int64  `json:"id"`
	Name         string `json:"name"`
	Kind         string `json:"kind"`
	MaxOccupancy int    `json:"max_occupancy"`
	ParentID     *int64 `json:"parent_id,omitempty"`
}

func toUnitDTO(u domain.Unit) unitDTO {
	return unitDTO{ID: u.ID, Name: u.Name, Kind: string(u.Kind), MaxOccupancy: u.MaxOccupancy, ParentID: u.ParentID}
}

type availabilityDTO struct {
	unitDTO
	Available bool `json:"available"`
}

type guestDTO struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone,omitempty"`
	Street     string `json:"street,omitempty"`
	HouseNo    string `json:"house_no,omitempty"`
	PostalCode string `json:"postal_code,omitempty"`
	City       string `json:"city,omitempty"`
	Country    string `json:"country,omitempty"`
}

type createBookingDTO struct {
	UnitID     int64    `json:"unit_id"`
	PlatformID int64    `json:"platform_id"`
	Start      string   `json:"start"`
	End        string   `json:"end"`
	PartySize  int      `json:"party_size"`
	Guest      guestDTO `json:"guest"`
}

type modifyBookingDTO struct {
	Start     *string `json:"start,omitempty"`
	End       *string `json:"end,omitempty"`
	UnitID    *int64  `json:"unit_id,omitempty"`
	PartySize *int    `json:"party_size,omitempty"`
}

type confirmationDTO struct {
	ReservationID int64  `json:"reservation_id"`
	Reference     string `json:"reference"`
	UnitName      string `json:"unit_name"`
	Start         string `json:"start"`
	End           string `json:"end"`
	Nights        int    `json:"nights"`
	Total         string `json:"total"`
}

func toConfirmationDTO(c app.Confirmation) confirmationDTO {
	return confirmationDTO{
		ReservationID: c.ReservationID,
		Reference:     c.Reference,
		UnitName:      c.UnitName,
		Start:         c.Start.Format(dateLayout),
		End:           c.End.Format(dateLayout),
		Nights:        c.Nights,
		Total:         c.Total.StringFixed(2),
	}
}

type reservationDTO struct {
	ID        int64  `json:"id"`
	Reference string `json:"reference"`
	GuestID   int64  `json:"guest_id"`
	GuestName string `json:"guest_name,omitempty"`
	UnitID    int64  `json:"unit_id"`
	UnitName  string `json:"unit_name,omitempty"`
	Platform  string `json:"platform,omitempty"`
	Start     string `json:"start"`
	End       string `json:"end"`
	PartySize int    `json:"party_size"`
	Status    string `json:"status"`
}

func toReservationDTO(res domain.Reservation) reservationDTO {
	return reservationDTO{
		ID:        res.ID,
		Reference: res.Reference,
		GuestID:   res.GuestID,
		GuestName: res.GuestName,
		UnitID:    res.UnitID,
		UnitName:  res.UnitName,
		Platform:  res.Platform,
		Start:     res.Start.Format(dateLayout),
		End:       res.End.Format(dateLayout),
		PartySize: res.PartySize,
		Status:    string(res.Status),
	}
}

type itemDTO struct {
	ID        int64  `json:"id"`
	Category  string `json:"category"`
	Quantity  int    `json:"quantity"`
	UnitPrice string `json:"unit_price"`
	Amount    string `json:"amount"`
}

type statusDTO struct {
	Status string `json:"status"`
}

// ---- handlers ----

func (h *Handlers) listUnits(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Availability.Inventory(r.Context())
	if err != nil {
		mapError(w, "list_units", err)
		return
	}
	out := make([]unitDTO, 0, len(inv.Units()))
	for _, u := range inv.Units() {
		out = append(out, toUnitDTO(u))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) listPlatforms(w http.ResponseWriter, r *http.Request) {
	platforms, err := h.Bookings.Platforms(r.Context())
	if err != nil {
		mapError(w, "list_platforms", err)
		return
	}
	type platformDTO struct {
		ID         int64  `json:"id"`
		Name       string `json:"name"`
		Commission string `json:"commission"`
	}
	out := make([]platformDTO, 0, len(platforms))
	for _, p := range platforms {
		out = append(out, platformDTO{ID: p.ID, Name: p.Name, Commission: p.Commission.StringFixed(2)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) checkAvailability(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("start"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "start must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(q.Get("end"))
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "end must be YYYY-MM-DD")
		return
	}
	party := 0
	if ps := q.Get("party_size"); ps != "" {
		party, err = strconv.Atoi(ps)
		if err != nil || party < 0 {
			writeProblem(w, http.StatusBadRequest, "Invalid Party Size", "party_size must be a non-negative integer")
			return
		}
	}

	units, err := h.Availability.Check(r.Context(), start, end, party, 0)
	if err != nil {
		mapError(w, "availability", err)
		return
	}
	observability.AvailabilityChecks.Inc()

	out := make([]availabilityDTO, 0, len(units))
	for _, ua := range units {
		out = append(out, availabilityDTO{unitDTO: toUnitDTO(ua.Unit), Available: ua.Available})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) createBooking(w http.ResponseWriter, r *http.Request) {
	var dto createBookingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}
	if dto.Guest.Email == "" || dto.Guest.Name == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Guest", "guest name and email are required")
		return
	}
	start, err := parseDate(dto.Start)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "start must be YYYY-MM-DD")
		return
	}
	end, err := parseDate(dto.End)
	if err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Date", "end must be YYYY-MM-DD")
		return
	}

	conf, err := h.Bookings.Create(r.Context(), app.CreateBookingRequest{
		UnitID:     dto.UnitID,
		PlatformID: dto.PlatformID,
		Start:      start,
		End:        end,
		PartySize:  dto.PartySize,
		Guest: app.GuestDetails{
			Name:       dto.Guest.Name,
			Email:      dto.Guest.Email,
			Phone:      dto.Guest.Phone,
			Street:     dto.Guest.Street,
			HouseNo:    dto.Guest.HouseNo,
			PostalCode: dto.Guest.PostalCode,
			City:       dto.Guest.City,
			Country:    dto.Guest.Country,
		},
	})
	if err != nil {
		mapError(w, "create", err)
		return
	}
	observability.ObserveBookingOp("create", "ok")
	writeJSON(w, http.StatusCreated, toConfirmationDTO(conf))
}

func (h *Handlers) listBookings(w http.ResponseWriter, r *http.Request) {
	status := domain.Status(r.URL.Query().Get("status"))
	reservations, err := h.Bookings.List(r.Context(), status)
	if err != nil {
		mapError(w, "list", err)
		return
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, toReservationDTO(res))
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) getBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	res, err := h.Bookings.Reservation(r.Context(), id)
	if err != nil {
		mapError(w, "get", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

func (h *Handlers) modifyBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var dto modifyBookingDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "malformed JSON")
		return
	}

	var req app.ModifyBookingRequest
	if dto.Start != nil {
		t, err := parseDate(*dto.Start)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Date", "start must be YYYY-MM-DD")
			return
		}
		req.Start = &t
	}
	if dto.End != nil {
		t, err := parseDate(*dto.End)
		if err != nil {
			writeProblem(w, http.StatusBadRequest, "Invalid Date", "end must be YYYY-MM-DD")
			return
		}
		req.End = &t
	}
	req.UnitID = dto.UnitID
	req.PartySize = dto.PartySize

	conf, err := h.Bookings.Modify(r.Context(), id, req)
	if err != nil {
		mapError(w, "modify", err)
		return
	}
	observability.ObserveBookingOp("modify", "ok")
	writeJSON(w, http.StatusOK, toConfirmationDTO(conf))
}

func (h *Handlers) deleteBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.Bookings.Delete(r.Context(), id); err != nil {
		mapError(w, "delete", err)
		return
	}
	observability.ObserveBookingOp("delete", "ok")
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handlers) cancelBooking(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	if err := h.Bookings.Cancel(r.Context(), id); err != nil {
		mapError(w, "cancel", err)
		return
	}
	observability.ObserveBookingOp("cancel", "ok")
	res, err := h.Bookings.Reservation(r.Context(), id)
	if err != nil {
		mapError(w, "cancel", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

func (h *Handlers) changeStatus(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	var dto statusDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil || dto.Status == "" {
		writeProblem(w, http.StatusBadRequest, "Invalid Body", "status is required")
		return
	}
	if err := h.Bookings.ChangeStatus(r.Context(), id, domain.Status(dto.Status)); err != nil {
		mapError(w, "status", err)
		return
	}
	observability.ObserveBookingOp("status", "ok")
	res, err := h.Bookings.Reservation(r.Context(), id)
	if err != nil {
		mapError(w, "status", err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationDTO(res))
}

func (h *Handlers) listItems(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	items, err := h.Bookings.LineItems(r.Context(), id)
	if err != nil {
		mapError(w, "items", err)
		return
	}
	out := make([]itemDTO, 0, len(items))
	for _, it := range items {
		out = append(out, itemDTO{
			ID:        it.ID,
			Category:  it.Category,
			Quantity:  it.Quantity,
			UnitPrice: it.UnitPrice.StringFixed(2),
			Amount:    it.Amount().StringFixed(2),
		})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handlers) guestBookings(w http.ResponseWriter, r *http.Request) {
	id, ok := urlID(r)
	if !ok {
		writeProblem(w, http.StatusBadRequest, "Invalid ID", "id must be a positive number")
		return
	}
	reservations, err := h.Bookings.GuestBookings(r.Context(), id)
	if err != nil {
		mapError(w, "guest_bookings", err)
		return
	}
	out := make([]reservationDTO, 0, len(reservations))
	for _, res := range reservations {
		out = append(out, toReservationDTO(res))
	}
	writeJSON(w, http.StatusOK, out)
}
