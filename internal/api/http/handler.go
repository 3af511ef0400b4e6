package http

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/service"
)

// Pinger reports whether the backing store is reachable.
type Pinger interface {
	PingContext(ctx context.Context) error
}

type Handler struct {
	admission    service.AdmissionService
	reservations service.ReservationService
	availability service.AvailabilityService
	rooms        service.RoomService
	pinger       Pinger
}

func NewHandler(
	admission service.AdmissionService,
	reservations service.ReservationService,
	availability service.AvailabilityService,
	rooms service.RoomService,
	pinger Pinger,
) *Handler {
	return &Handler{
		admission:    admission,
		reservations: reservations,
		availability: availability,
		rooms:        rooms,
		pinger:       pinger,
	}
}

// RegisterRoutes mounts the booking API on router behind the request-id,
// access-log and auth middleware.
func RegisterRoutes(router *mux.Router, h *Handler, auth *AuthMiddleware) {
	router.Use(RequestIDMiddleware, AccessLogMiddleware)
	router.HandleFunc("/healthz", h.Health).Methods(http.MethodGet)

	api := router.PathPrefix("/api/v1").Subrouter()
	api.Use(auth.Handler)

	api.HandleFunc("/rooms", h.ListRooms).Methods(http.MethodGet)
	api.HandleFunc("/rooms/{id}/availability", h.CheckAvailability).Methods(http.MethodGet)

	api.HandleFunc("/reservations", h.CreateReservation).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/history", RequireStaff(h.History)).Methods(http.MethodGet)
	api.HandleFunc("/reservations/{id:[0-9]+}/confirm", RequireStaff(h.Confirm)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/check-in", RequireStaff(h.CheckIn)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/check-out", RequireStaff(h.CheckOut)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/cancel", RequireStaff(h.Cancel)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/payments", RequireStaff(h.RecordPayment)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/payment-correction", RequireStaff(h.CorrectPayment)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{id:[0-9]+}/extend", RequireStaff(h.Extend)).Methods(http.MethodPost)
	api.HandleFunc("/reservations/{ref}", h.GetReservation).Methods(http.MethodGet)
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	if h.pinger != nil {
		if err := h.pinger.PingContext(r.Context()); err != nil {
			logger.WarnContext(r.Context(), "Health check failed", "error", err)
			writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) CreateReservation(w http.ResponseWriter, r *http.Request) {
	var payload AdmissionPayload
	if err := decodeStrict(r, &payload, false); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}
	if err := payload.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, codeValidation, err.Error())
		return
	}

	req := service.AdmissionRequest{
		RoomIDs:       payload.ResourceIDs,
		GuestName:     payload.OccupantName,
		GuestPhone:    payload.OccupantPhone,
		GuestIDProof:  payload.OccupantIDProof,
		GuestAddress:  payload.OccupantAddress,
		CheckIn:       payload.CheckIn,
		CheckOut:      payload.CheckOut,
		Discount:      decimal.Zero,
		TaxEnabled:    true,
		AdvanceAmount: decimal.Zero,
		Source:        domain.ReservationSourceSelfService,
	}
	if payload.Discount != nil {
		req.Discount = *payload.Discount
	}
	if payload.TaxEnabled != nil {
		req.TaxEnabled = *payload.TaxEnabled
	}
	if payload.AdvanceAmount != nil {
		req.AdvanceAmount = *payload.AdvanceAmount
	}
	if a := ActorFromContext(r.Context()); a.IsStaff() {
		req.Source = domain.ReservationSourceStaff
		req.ActorID = &a.StaffID
	}

	result, err := h.admission.Admit(r.Context(), req)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}

	resp := AdmissionResponse{
		GroupReference: result.GroupReference,
		TotalAmount:    result.TotalAmount,
		CheckIn:        formatTime(result.CheckIn),
		CheckOut:       formatTime(result.CheckOut),
		Status:         string(domain.ReservationStatusConfirmed),
		OccupantName:   result.Guest.Name,
		OccupantPhone:  result.Guest.Phone,
	}
	labels := make([]string, 0, len(result.Rooms))
	for _, room := range result.Rooms {
		resp.Rooms = append(resp.Rooms, RoomSummary{ResourceID: room.ID, ResourceLabel: room.Label, ResourceType: string(room.Type)})
		labels = append(labels, room.Label)
	}
	for _, res := range result.Reservations {
		resp.Reservations = append(resp.Reservations, res.ReservationNumber)
		resp.ReferenceCodes = append(resp.ReferenceCodes, res.ReferenceCode)
	}
	resp.Message = fmt.Sprintf("Booking %s confirmed for room(s) %s", result.GroupReference, strings.Join(labels, ", "))

	writeJSON(w, http.StatusCreated, resp)
}

func (h *Handler) ListRooms(w http.ResponseWriter, r *http.Request) {
	rooms, err := h.rooms.ListRooms(r.Context())
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	out := make([]RoomSummary, 0, len(rooms))
	for _, room := range rooms {
		out = append(out, RoomSummary{ResourceID: room.ID, ResourceLabel: room.Label, ResourceType: string(room.Type)})
	}
	writeJSON(w, http.StatusOK, out)
}

func (h *Handler) CheckAvailability(w http.ResponseWriter, r *http.Request) {
	roomID := mux.Vars(r)["id"]
	q := r.URL.Query()
	checkIn, checkOut := q.Get("checkIn"), q.Get("checkOut")
	if checkIn == "" || checkOut == "" {
		writeError(w, http.StatusBadRequest, codeValidation, "checkIn and checkOut query parameters are required")
		return
	}

	result, err := h.availability.Check(r.Context(), roomID, checkIn, checkOut)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, AvailabilityResponse{
		ResourceID:    result.Room.ID,
		ResourceLabel: result.Room.Label,
		Available:     result.Available,
		Reason:        string(result.Reason),
	})
}

func (h *Handler) GetReservation(w http.ResponseWriter, r *http.Request) {
	res, err := h.reservations.GetByReference(r.Context(), mux.Vars(r)["ref"])
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

func (h *Handler) History(w http.ResponseWriter, r *http.Request) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}
	entries, err := h.reservations.History(r.Context(), id)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	if entries == nil {
		entries = []domain.AuditEntry{}
	}
	writeJSON(w, http.StatusOK, entries)
}

func (h *Handler) Confirm(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.Confirm(ctx, id, actor)
	})
}

func (h *Handler) CheckIn(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, nil, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.CheckIn(ctx, id, actor)
	})
}

func (h *Handler) CheckOut(w http.ResponseWriter, r *http.Request) {
	var payload CheckOutPayload
	h.transition(w, r, &payload, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.CheckOut(ctx, id, payload.ActualCheckOut, actor)
	})
}

func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request) {
	var payload CancelPayload
	h.transition(w, r, &payload, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.Cancel(ctx, id, payload.Reason, actor)
	})
}

func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	var payload PaymentPayload
	h.transition(w, r, &payload, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.RecordPayment(ctx, id, payload.Amount, actor)
	})
}

func (h *Handler) CorrectPayment(w http.ResponseWriter, r *http.Request) {
	var payload PaymentCorrectionPayload
	h.transition(w, r, &payload, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.CorrectPayment(ctx, id, payload.PaidAmount, payload.Note, actor)
	})
}

func (h *Handler) Extend(w http.ResponseWriter, r *http.Request) {
	var payload ExtendPayload
	h.transition(w, r, &payload, func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error) {
		return h.reservations.Extend(ctx, id, payload.CheckOut, actor)
	})
}

// transition decodes an optional body into payload and runs a staff
// lifecycle action against the reservation in the path.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, payload any, run func(ctx context.Context, id int64, actor *string) (*domain.Reservation, error)) {
	id, ok := reservationID(w, r)
	if !ok {
		return
	}
	if payload != nil {
		if err := decodeStrict(r, payload, true); err != nil {
			writeError(w, http.StatusBadRequest, codeValidation, err.Error())
			return
		}
	}

	staffID := ActorFromContext(r.Context()).StaffID
	res, err := run(r.Context(), id, &staffID)
	if err != nil {
		writeServiceError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toReservationResponse(res))
}

func reservationID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil || id <= 0 {
		writeError(w, http.StatusBadRequest, codeValidation, "invalid reservation id")
		return 0, false
	}
	return id, true
}
