package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type ReservationStatus string

const (
	ReservationStatusPending    ReservationStatus = "PENDING"
	ReservationStatusConfirmed  ReservationStatus = "CONFIRMED"
	ReservationStatusCheckedIn  ReservationStatus = "CHECKED_IN"
	ReservationStatusCheckedOut ReservationStatus = "CHECKED_OUT"
	ReservationStatusCancelled  ReservationStatus = "CANCELLED"
)

// ActiveReservationStatuses are the statuses that hold a room.
var ActiveReservationStatuses = []ReservationStatus{
	ReservationStatusConfirmed,
	ReservationStatusCheckedIn,
}

func (s ReservationStatus) Active() bool {
	return s == ReservationStatusConfirmed || s == ReservationStatusCheckedIn
}

func (s ReservationStatus) Terminal() bool {
	return s == ReservationStatusCheckedOut || s == ReservationStatusCancelled
}

type ReservationSource string

const (
	ReservationSourceStaff       ReservationSource = "STAFF"
	ReservationSourceSelfService ReservationSource = "SELF_SERVICE"
)

type Reservation struct {
	ID                int64             `json:"id"`
	ReservationNumber string            `json:"reservation_number"`
	ReferenceCode     string            `json:"reference_code"`
	RoomID            string            `json:"room_id"`
	GuestID           string            `json:"guest_id"`
	CheckIn           time.Time         `json:"check_in"`
	CheckOut          time.Time         `json:"check_out"`
	// Monetary snapshot, computed at admission and on repricing transitions.
	Subtotal          decimal.Decimal   `json:"subtotal"`
	Tax               decimal.Decimal   `json:"tax"`
	Discount          decimal.Decimal   `json:"discount"`
	TotalAmount       decimal.Decimal   `json:"total_amount"`
	PaidAmount        decimal.Decimal   `json:"paid_amount"`
	BalanceAmount     decimal.Decimal   `json:"balance_amount"`
	TaxEnabled        bool              `json:"tax_enabled"`
	Status            ReservationStatus `json:"status"`
	GroupReference    *string           `json:"group_reference,omitempty"`
	Source            ReservationSource `json:"source"`
	CreatedOn         time.Time         `json:"created_on"`
	UpdatedOn         time.Time         `json:"updated_on"`
}

// RecomputeBalance keeps BalanceAmount = max(0, TotalAmount - PaidAmount).
func (r *Reservation) RecomputeBalance() {
	balance := r.TotalAmount.Sub(r.PaidAmount)
	if balance.IsNegative() {
		balance = decimal.Zero
	}
	r.BalanceAmount = balance
}
