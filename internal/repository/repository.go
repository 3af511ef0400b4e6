package repository

import (
	"context"
	"time"

	"staybook-backend/internal/domain"
)

type RoomRepository interface {
	GetByID(ctx context.Context, id string) (*domain.Room, error)
	// GetByIDForUpdate locks the room row until the unit of work ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Room, error)
	List(ctx context.Context) ([]domain.Room, error)
	// SyncOccupancy sets OCCUPIED/AVAILABLE from checked-in reservations,
	// leaving OUT_OF_SERVICE rooms alone. Returns the rows changed.
	SyncOccupancy(ctx context.Context) (int64, error)
}

type ReservationRepository interface {
	Create(ctx context.Context, res *domain.Reservation) error
	GetByID(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByIDForUpdate(ctx context.Context, id int64) (*domain.Reservation, error)
	GetByReferenceCode(ctx context.Context, code string) (*domain.Reservation, error)
	Update(ctx context.Context, res *domain.Reservation) error
	// ListOverlapping returns reservations of a room whose half-open interval
	// intersects [checkIn, checkOut), ordered by check-in.
	ListOverlapping(ctx context.Context, roomID string, checkIn, checkOut time.Time, statuses []domain.ReservationStatus, excludeID *int64) ([]domain.Reservation, error)
	ListPendingBefore(ctx context.Context, before time.Time) ([]domain.Reservation, error)
	ListNumbersWithPrefix(ctx context.Context, prefix string) ([]string, error)
	NumberExists(ctx context.Context, number string) (bool, error)
	// CodeInUse checks both reference codes and group references.
	CodeInUse(ctx context.Context, code string) (bool, error)
}

type SequenceRepository interface {
	// Next returns the next value of a named sequence, or
	// ErrSequenceUnavailable when it has not been provisioned.
	Next(ctx context.Context, name string) (int64, error)
}

type GuestRepository interface {
	Create(ctx context.Context, guest *domain.Guest) error
	GetByID(ctx context.Context, id string) (*domain.Guest, error)
}

type SlotRepository interface {
	Create(ctx context.Context, slot *domain.Slot) error
	AttachReservation(ctx context.Context, slotID string, reservationID int64) error
}

// AuditRepository is append-only.
type AuditRepository interface {
	Append(ctx context.Context, entry *domain.AuditEntry) error
	ListByReservation(ctx context.Context, reservationID int64) ([]domain.AuditEntry, error)
}

// UnitOfWork hands out repositories bound to one transaction. Anything
// written through it is visible to later reads through it and is committed
// or rolled back together.
type UnitOfWork interface {
	Rooms() RoomRepository
	Reservations() ReservationRepository
	Sequences() SequenceRepository
	Guests() GuestRepository
	Slots() SlotRepository
	Audit() AuditRepository

	// Savepoint / RollbackTo / Release isolate a best-effort write so that
	// its failure does not poison the enclosing transaction.
	Savepoint(ctx context.Context, name string) error
	RollbackTo(ctx context.Context, name string) error
	Release(ctx context.Context, name string) error
}

// TxOptions bound how long a unit of work may wait and run.
type TxOptions struct {
	ReadOnly         bool
	LockWait         time.Duration
	StatementTimeout time.Duration
}

// TxManager runs fn inside a transaction. fn returning an error rolls back;
// returning nil commits.
type TxManager interface {
	WithinTx(ctx context.Context, opts TxOptions, fn func(ctx context.Context, uow UnitOfWork) error) error
}
