package service

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
)

// TxBudget bounds how long a booking transaction waits on row locks and how
// long it may run in total.
type TxBudget struct {
	LockWait time.Duration
	Timeout  time.Duration
}

func DefaultTxBudget() TxBudget {
	return TxBudget{LockWait: 5 * time.Second, Timeout: 10 * time.Second}
}

type AvailabilityService interface {
	Check(ctx context.Context, roomID, checkIn, checkOut string) (*ConflictResult, error)
}

type AdmissionService interface {
	Admit(ctx context.Context, req AdmissionRequest) (*AdmissionResult, error)
}

type ReservationService interface {
	GetByReference(ctx context.Context, code string) (*domain.Reservation, error)
	History(ctx context.Context, reservationID int64) ([]domain.AuditEntry, error)
	Confirm(ctx context.Context, reservationID int64, actorID *string) (*domain.Reservation, error)
	CheckIn(ctx context.Context, reservationID int64, actorID *string) (*domain.Reservation, error)
	CheckOut(ctx context.Context, reservationID int64, actualCheckOut string, actorID *string) (*domain.Reservation, error)
	Cancel(ctx context.Context, reservationID int64, reason string, actorID *string) (*domain.Reservation, error)
	RecordPayment(ctx context.Context, reservationID int64, amount decimal.Decimal, actorID *string) (*domain.Reservation, error)
	CorrectPayment(ctx context.Context, reservationID int64, paid decimal.Decimal, note string, actorID *string) (*domain.Reservation, error)
	Extend(ctx context.Context, reservationID int64, newCheckOut string, actorID *string) (*domain.Reservation, error)
	// ReleaseStalePending cancels PENDING reservations checking in before cutoff.
	ReleaseStalePending(ctx context.Context, cutoff time.Time) (int, error)
}

type RoomService interface {
	ListRooms(ctx context.Context) ([]domain.Room, error)
	SyncOccupancy(ctx context.Context) (int64, error)
}

// withBudget bounds ctx by the budget's timeout when one is set.
func withBudget(ctx context.Context, budget TxBudget) (context.Context, context.CancelFunc) {
	if budget.Timeout <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, budget.Timeout)
}
