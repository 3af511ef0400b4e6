package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
	"staybook-backend/internal/utils"
)

type UnavailableReason string

const (
	ReasonOutOfService UnavailableReason = "OUT_OF_SERVICE"
	ReasonDateConflict UnavailableReason = "DATE_CONFLICT"
)

// ConflictResult is the outcome of an availability check. Conflict is the
// earliest blocking reservation when Reason is ReasonDateConflict.
type ConflictResult struct {
	Available bool
	Reason    UnavailableReason
	Room      *domain.Room
	Conflict  *domain.Reservation
}

// rejection converts an unavailable result into the matching BookingError.
func (c *ConflictResult) rejection() error {
	if c.Available {
		return nil
	}
	if c.Reason == ReasonOutOfService {
		return resourceUnavailable(c.Room)
	}
	return dateConflict(c.Room)
}

// AvailabilityResolver decides whether a room can take a new stay.
// Two stays conflict when their intervals overlap, except that an existing
// stay ending on the new check-in's calendar day does not block it.
type AvailabilityResolver struct {
	tx     repository.TxManager
	policy utils.Policy
	budget TxBudget
}

func NewAvailabilityResolver(tx repository.TxManager, policy utils.Policy, budget TxBudget) *AvailabilityResolver {
	return &AvailabilityResolver{tx: tx, policy: policy, budget: budget}
}

// CheckConflict resolves availability inside the caller's unit of work. It
// does not write, so repeating it with the same inputs gives the same
// answer until another transaction commits.
func (r *AvailabilityResolver) CheckConflict(ctx context.Context, uow repository.UnitOfWork, roomID string, checkIn, checkOut time.Time, excludeID *int64) (*ConflictResult, error) {
	room, err := uow.Rooms().GetByID(ctx, roomID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, resourceNotFound(roomID)
	}
	if err != nil {
		return nil, fmt.Errorf("load room %s: %w", roomID, err)
	}
	return r.resolve(ctx, uow, room, checkIn, checkOut, excludeID)
}

func (r *AvailabilityResolver) resolve(ctx context.Context, uow repository.UnitOfWork, room *domain.Room, checkIn, checkOut time.Time, excludeID *int64) (*ConflictResult, error) {
	if room.OutOfService() {
		return &ConflictResult{Reason: ReasonOutOfService, Room: room}, nil
	}

	candidates, err := uow.Reservations().ListOverlapping(ctx, room.ID, checkIn, checkOut, domain.ActiveReservationStatuses, excludeID)
	if err != nil {
		return nil, fmt.Errorf("list overlapping reservations for room %s: %w", room.ID, err)
	}

	requestedDay := utils.CalendarDay(checkIn)
	for i := range candidates {
		existing := candidates[i]
		if !utils.CalendarDay(existing.CheckOut).After(requestedDay) {
			// Guest leaves the day the new one arrives.
			continue
		}
		logger.DebugContext(ctx, "Date conflict found",
			"room_id", room.ID,
			"conflicting_reservation", existing.ReservationNumber)
		return &ConflictResult{Reason: ReasonDateConflict, Room: room, Conflict: &existing}, nil
	}
	return &ConflictResult{Available: true, Room: room}, nil
}

// Check answers an availability query for raw boundary inputs in its own
// read-only unit of work.
func (r *AvailabilityResolver) Check(ctx context.Context, roomID, rawCheckIn, rawCheckOut string) (*ConflictResult, error) {
	const method = "AvailabilityResolver.Check"
	logger.EnterMethod(ctx, method, "room_id", roomID)

	checkIn, _, err := r.policy.NormalizeBoundary(rawCheckIn, false)
	if err != nil {
		logger.ExitMethodWithError(ctx, method, err)
		return nil, dateError(err)
	}
	checkOut, _, err := r.policy.NormalizeBoundary(rawCheckOut, true)
	if err != nil {
		logger.ExitMethodWithError(ctx, method, err)
		return nil, dateError(err)
	}
	if !checkOut.After(checkIn) {
		return nil, dateError(&utils.DateError{Code: utils.DateErrorInvertedRange, Message: "check-out must be after check-in"})
	}

	var result *ConflictResult
	err = r.tx.WithinTx(ctx, repository.TxOptions{ReadOnly: true, StatementTimeout: r.budget.Timeout}, func(ctx context.Context, uow repository.UnitOfWork) error {
		res, err := r.CheckConflict(ctx, uow, roomID, checkIn, checkOut, nil)
		result = res
		return err
	})
	if err != nil {
		be := classifyTxError(err)
		logger.ExitMethodWithError(ctx, method, be)
		return nil, be
	}

	logger.ExitMethod(ctx, method, "available", result.Available)
	return result, nil
}
