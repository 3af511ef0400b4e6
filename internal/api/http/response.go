package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/service"
)

const (
	codeValidation        = "VALIDATION_ERROR"
	codeRoomUnavailable   = "ROOM_UNAVAILABLE"
	codeDateConflict      = "DATE_CONFLICT"
	codeInternal          = "INTERNAL_ERROR"
	codeNotFound          = "NOT_FOUND"
	codeInvalidTransition = "INVALID_TRANSITION"
	codeUnauthorized      = "UNAUTHORIZED"

	responseTimeLayout = "2006-01-02T15:04:05.000"
	retryAfterSeconds  = "1"
)

type ErrorResponse struct {
	ErrorCode string `json:"errorCode"`
	Message   string `json:"message"`
}

type RoomSummary struct {
	ResourceID    string `json:"resourceId"`
	ResourceLabel string `json:"resourceLabel"`
	ResourceType  string `json:"resourceType"`
}

type AdmissionResponse struct {
	GroupReference string          `json:"groupReference"`
	Rooms          []RoomSummary   `json:"rooms"`
	Reservations   []string        `json:"reservationNumbers"`
	ReferenceCodes []string        `json:"referenceCodes"`
	TotalAmount    decimal.Decimal `json:"totalAmount"`
	CheckIn        string          `json:"checkIn"`
	CheckOut       string          `json:"checkOut"`
	Status         string          `json:"status"`
	OccupantName   string          `json:"occupantName"`
	OccupantPhone  string          `json:"occupantPhone"`
	Message        string          `json:"message"`
}

type AvailabilityResponse struct {
	ResourceID    string `json:"resourceId"`
	ResourceLabel string `json:"resourceLabel"`
	Available     bool   `json:"available"`
	Reason        string `json:"reason,omitempty"`
}

type ReservationResponse struct {
	ID                int64           `json:"id"`
	ReservationNumber string          `json:"reservationNumber"`
	ReferenceCode     string          `json:"referenceCode"`
	ResourceID        string          `json:"resourceId"`
	CheckIn           string          `json:"checkIn"`
	CheckOut          string          `json:"checkOut"`
	Subtotal          decimal.Decimal `json:"subtotal"`
	Tax               decimal.Decimal `json:"tax"`
	Discount          decimal.Decimal `json:"discount"`
	TotalAmount       decimal.Decimal `json:"totalAmount"`
	PaidAmount        decimal.Decimal `json:"paidAmount"`
	BalanceAmount     decimal.Decimal `json:"balanceAmount"`
	Status            string          `json:"status"`
	GroupReference    string          `json:"groupReference,omitempty"`
	Source            string          `json:"source"`
}

func formatTime(t time.Time) string {
	return t.Format(responseTimeLayout)
}

func toReservationResponse(r *domain.Reservation) ReservationResponse {
	out := ReservationResponse{
		ID:                r.ID,
		ReservationNumber: r.ReservationNumber,
		ReferenceCode:     r.ReferenceCode,
		ResourceID:        r.RoomID,
		CheckIn:           formatTime(r.CheckIn),
		CheckOut:          formatTime(r.CheckOut),
		Subtotal:          r.Subtotal,
		Tax:               r.Tax,
		Discount:          r.Discount,
		TotalAmount:       r.TotalAmount,
		PaidAmount:        r.PaidAmount,
		BalanceAmount:     r.BalanceAmount,
		Status:            string(r.Status),
		Source:            string(r.Source),
	}
	if r.GroupReference != nil {
		out.GroupReference = *r.GroupReference
	}
	return out
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, ErrorResponse{ErrorCode: code, Message: message})
}

// writeServiceError maps a service failure onto the wire taxonomy.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error) {
	var be *service.BookingError
	if !errors.As(err, &be) {
		logger.ErrorContext(r.Context(), "Unclassified service error", "error", err)
		writeError(w, http.StatusInternalServerError, codeInternal, "an unexpected error occurred, please try again later")
		return
	}

	switch be.Kind {
	case service.ErrKindValidation, service.ErrKindDate, service.ErrKindResourceNotFound:
		writeError(w, http.StatusBadRequest, codeValidation, be.Message)
	case service.ErrKindResourceUnavailable:
		writeError(w, http.StatusBadRequest, codeRoomUnavailable, be.Message)
	case service.ErrKindDateConflict:
		writeError(w, http.StatusBadRequest, codeDateConflict, be.Message)
	case service.ErrKindNotFound:
		writeError(w, http.StatusNotFound, codeNotFound, be.Message)
	case service.ErrKindInvalidTransition:
		writeError(w, http.StatusConflict, codeInvalidTransition, be.Message)
	case service.ErrKindTransactionTimeout:
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, codeInternal, be.Message)
	default:
		writeError(w, http.StatusInternalServerError, codeInternal, be.Message)
	}
}
