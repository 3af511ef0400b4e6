package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
	"staybook-backend/internal/utils"
)

type reservationService struct {
	tx       repository.TxManager
	resolver *AvailabilityResolver
	audit    *AuditRecorder
	policy   utils.Policy
	budget   TxBudget
	now      func() time.Time
}

func NewReservationService(
	tx repository.TxManager,
	resolver *AvailabilityResolver,
	audit *AuditRecorder,
	policy utils.Policy,
	budget TxBudget,
) ReservationService {
	return &reservationService{
		tx:       tx,
		resolver: resolver,
		audit:    audit,
		policy:   policy,
		budget:   budget,
		now:      time.Now,
	}
}

func (s *reservationService) GetByReference(ctx context.Context, code string) (*domain.Reservation, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	var res *domain.Reservation
	err := s.tx.WithinTx(ctx, repository.TxOptions{ReadOnly: true}, func(ctx context.Context, uow repository.UnitOfWork) error {
		r, err := uow.Reservations().GetByReferenceCode(ctx, code)
		if errors.Is(err, repository.ErrNotFound) {
			return reservationNotFound(code)
		}
		res = r
		return err
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return res, nil
}

func (s *reservationService) History(ctx context.Context, reservationID int64) ([]domain.AuditEntry, error) {
	var entries []domain.AuditEntry
	err := s.tx.WithinTx(ctx, repository.TxOptions{ReadOnly: true}, func(ctx context.Context, uow repository.UnitOfWork) error {
		if _, err := uow.Reservations().GetByID(ctx, reservationID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return reservationNotFound(strconv.FormatInt(reservationID, 10))
			}
			return err
		}
		var err error
		entries, err = uow.Audit().ListByReservation(ctx, reservationID)
		return err
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return entries, nil
}

// mutation changes res in place and names the audit action describing it.
type mutation func(ctx context.Context, uow repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error)

// mutate locks a reservation, applies fn, stores the result and records
// the field-level diff.
func (s *reservationService) mutate(ctx context.Context, method string, reservationID int64, actorID *string, fn mutation) (*domain.Reservation, error) {
	logger.EnterMethod(ctx, method, "reservation_id", reservationID)

	ctx, cancel := withBudget(ctx, s.budget)
	defer cancel()

	var updated *domain.Reservation
	opts := repository.TxOptions{LockWait: s.budget.LockWait, StatementTimeout: s.budget.Timeout}
	err := s.tx.WithinTx(ctx, opts, func(ctx context.Context, uow repository.UnitOfWork) error {
		res, err := uow.Reservations().GetByIDForUpdate(ctx, reservationID)
		if errors.Is(err, repository.ErrNotFound) {
			return reservationNotFound(strconv.FormatInt(reservationID, 10))
		}
		if err != nil {
			return fmt.Errorf("lock reservation %d: %w", reservationID, err)
		}

		before := *res
		action, note, err := fn(ctx, uow, res)
		if err != nil {
			return err
		}
		res.RecomputeBalance()
		res.UpdatedOn = s.now()

		if err := uow.Reservations().Update(ctx, res); err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return &BookingError{
					Kind:       ErrKindDateConflict,
					ResourceID: res.RoomID,
					Message:    "the room is already booked for the selected dates",
				}
			}
			return fmt.Errorf("update reservation %d: %w", reservationID, err)
		}
		s.audit.Record(ctx, uow, res.ID, action, DiffReservation(&before, res), actorID, note)
		updated = res
		return nil
	})
	if err != nil {
		be := classifyTxError(err)
		if be.Kind == ErrKindInternal {
			logger.ErrorContext(ctx, "Reservation update failed", "reservation_id", reservationID, "error", err)
		}
		logger.ExitMethodWithError(ctx, method, be)
		return nil, be
	}

	logger.InfoContext(ctx, "Reservation updated",
		"reservation_number", updated.ReservationNumber,
		"status", updated.Status)
	logger.ExitMethod(ctx, method, "reservation_id", reservationID)
	return updated, nil
}

// Confirm promotes a PENDING reservation after re-checking the room.
func (s *reservationService) Confirm(ctx context.Context, reservationID int64, actorID *string) (*domain.Reservation, error) {
	return s.mutate(ctx, "ReservationService.Confirm", reservationID, actorID, func(ctx context.Context, uow repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if res.Status != domain.ReservationStatusPending {
			return "", "", invalidTransition(res, "confirm")
		}
		if _, err := uow.Rooms().GetByIDForUpdate(ctx, res.RoomID); err != nil {
			return "", "", fmt.Errorf("lock room %s: %w", res.RoomID, err)
		}
		check, err := s.resolver.CheckConflict(ctx, uow, res.RoomID, res.CheckIn, res.CheckOut, &res.ID)
		if err != nil {
			return "", "", err
		}
		if !check.Available {
			return "", "", check.rejection()
		}
		res.Status = domain.ReservationStatusConfirmed
		return domain.AuditActionStatusChanged, "confirmed", nil
	})
}

func (s *reservationService) CheckIn(ctx context.Context, reservationID int64, actorID *string) (*domain.Reservation, error) {
	return s.mutate(ctx, "ReservationService.CheckIn", reservationID, actorID, func(_ context.Context, _ repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if res.Status != domain.ReservationStatusConfirmed {
			return "", "", invalidTransition(res, "check in")
		}
		res.Status = domain.ReservationStatusCheckedIn
		return domain.AuditActionStatusChanged, "guest checked in", nil
	})
}

// CheckOut closes a stay; an empty actualCheckOut means now. Leaving on or
// after the booked check-out day keeps the booked price. Leaving on an
// earlier day reprices up to the same billable end admission uses, keeping
// the booked discount, and never charges more than the booked total.
func (s *reservationService) CheckOut(ctx context.Context, reservationID int64, actualCheckOut string, actorID *string) (*domain.Reservation, error) {
	return s.mutate(ctx, "ReservationService.CheckOut", reservationID, actorID, func(ctx context.Context, uow repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if res.Status != domain.ReservationStatusCheckedIn {
			return "", "", invalidTransition(res, "check out")
		}

		actual, dateOnly := s.now(), false
		if strings.TrimSpace(actualCheckOut) != "" {
			t, only, err := s.policy.NormalizeBoundary(actualCheckOut, true)
			if err != nil {
				return "", "", dateError(err)
			}
			actual, dateOnly = t, only
		}
		if !actual.After(res.CheckIn) {
			return "", "", validationError("check-out time must be after check-in")
		}

		res.Status = domain.ReservationStatusCheckedOut
		if !utils.CalendarDay(actual).Before(utils.CalendarDay(res.CheckOut)) {
			return domain.AuditActionStatusChanged, "guest checked out", nil
		}

		room, err := uow.Rooms().GetByID(ctx, res.RoomID)
		if err != nil {
			return "", "", fmt.Errorf("load room %s: %w", res.RoomID, err)
		}
		res.CheckOut = actual

		settlement := s.policy.ComputeEarlySettlement(res.CheckIn, utils.BillableEnd(actual, dateOnly), room.BasePrice, res.Discount, res.TaxEnabled)
		if !settlement.Total.LessThan(res.TotalAmount) {
			return domain.AuditActionStatusChanged, "early check-out, booked price kept", nil
		}
		res.Subtotal = settlement.Subtotal
		res.Tax = settlement.Tax
		res.Discount = settlement.DiscountAmount
		res.TotalAmount = settlement.Total

		note := fmt.Sprintf("early check-out, %d day(s) billed", settlement.Days)
		if settlement.MinimumCharge {
			note = "early check-out, minimum charge applied"
		}
		return domain.AuditActionStatusChanged, note, nil
	})
}

func (s *reservationService) Cancel(ctx context.Context, reservationID int64, reason string, actorID *string) (*domain.Reservation, error) {
	return s.mutate(ctx, "ReservationService.Cancel", reservationID, actorID, func(_ context.Context, _ repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if res.Status != domain.ReservationStatusPending && res.Status != domain.ReservationStatusConfirmed {
			return "", "", invalidTransition(res, "cancel")
		}
		res.Status = domain.ReservationStatusCancelled
		return domain.AuditActionCancelled, strings.TrimSpace(reason), nil
	})
}

func (s *reservationService) RecordPayment(ctx context.Context, reservationID int64, amount decimal.Decimal, actorID *string) (*domain.Reservation, error) {
	if !amount.IsPositive() {
		return nil, validationError("payment amount must be positive")
	}
	return s.mutate(ctx, "ReservationService.RecordPayment", reservationID, actorID, func(_ context.Context, _ repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if res.Status == domain.ReservationStatusCancelled {
			return "", "", invalidTransition(res, "take payment for")
		}
		res.PaidAmount = res.PaidAmount.Add(amount)
		return domain.AuditActionPaymentReceived, "payment received", nil
	})
}

// CorrectPayment overwrites the paid amount, for fixing data entry mistakes.
func (s *reservationService) CorrectPayment(ctx context.Context, reservationID int64, paid decimal.Decimal, note string, actorID *string) (*domain.Reservation, error) {
	if paid.IsNegative() {
		return nil, validationError("paid amount cannot be negative")
	}
	return s.mutate(ctx, "ReservationService.CorrectPayment", reservationID, actorID, func(_ context.Context, _ repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if res.Status == domain.ReservationStatusCancelled {
			return "", "", invalidTransition(res, "correct payment for")
		}
		res.PaidAmount = paid
		return domain.AuditActionPaymentCorrected, strings.TrimSpace(note), nil
	})
}

// Extend moves the check-out later and reprices the whole stay, keeping the
// original discount.
func (s *reservationService) Extend(ctx context.Context, reservationID int64, newCheckOut string, actorID *string) (*domain.Reservation, error) {
	return s.mutate(ctx, "ReservationService.Extend", reservationID, actorID, func(ctx context.Context, uow repository.UnitOfWork, res *domain.Reservation) (domain.AuditAction, string, error) {
		if !res.Status.Active() {
			return "", "", invalidTransition(res, "extend")
		}
		checkOut, dateOnly, err := s.policy.NormalizeBoundary(newCheckOut, true)
		if err != nil {
			return "", "", dateError(err)
		}
		if !checkOut.After(res.CheckOut) {
			return "", "", validationError("new check-out must be after the current check-out")
		}

		if _, err := uow.Rooms().GetByIDForUpdate(ctx, res.RoomID); err != nil {
			return "", "", fmt.Errorf("lock room %s: %w", res.RoomID, err)
		}
		check, err := s.resolver.CheckConflict(ctx, uow, res.RoomID, res.CheckIn, checkOut, &res.ID)
		if err != nil {
			return "", "", err
		}
		if !check.Available {
			return "", "", check.rejection()
		}

		price := s.policy.ComputePrice(check.Room.BasePrice, res.CheckIn, utils.BillableEnd(checkOut, dateOnly), res.Discount, res.TaxEnabled)
		res.CheckOut = checkOut
		res.Subtotal = price.Subtotal
		res.Tax = price.Tax
		res.Discount = price.DiscountAmount
		res.TotalAmount = price.Total
		return domain.AuditActionExtended, fmt.Sprintf("extended to %d day(s)", price.Days), nil
	})
}

// ReleaseStalePending cancels PENDING reservations checking in before cutoff in
// one transaction.
func (s *reservationService) ReleaseStalePending(ctx context.Context, cutoff time.Time) (int, error) {
	const method = "ReservationService.ReleaseStalePending"
	logger.EnterMethod(ctx, method, "cutoff", cutoff)

	released := 0
	err := s.tx.WithinTx(ctx, repository.TxOptions{LockWait: s.budget.LockWait}, func(ctx context.Context, uow repository.UnitOfWork) error {
		stale, err := uow.Reservations().ListPendingBefore(ctx, cutoff)
		if err != nil {
			return fmt.Errorf("list pending reservations: %w", err)
		}
		for i := range stale {
			res := &stale[i]
			before := *res
			res.Status = domain.ReservationStatusCancelled
			res.UpdatedOn = s.now()
			if err := uow.Reservations().Update(ctx, res); err != nil {
				return fmt.Errorf("cancel reservation %d: %w", res.ID, err)
			}
			s.audit.Record(ctx, uow, res.ID, domain.AuditActionCancelled, DiffReservation(&before, res), nil, "pending reservation expired")
			released++
		}
		return nil
	})
	if err != nil {
		logger.ExitMethodWithError(ctx, method, err)
		return 0, classifyTxError(err)
	}
	logger.ExitMethod(ctx, method, "released", released)
	return released, nil
}
