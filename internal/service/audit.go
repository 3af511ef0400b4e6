package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
)

const (
	auditSavepoint  = "audit_entry"
	auditTimeLayout = "2006-01-02T15:04:05.000"
)

// AuditRecorder appends change history for reservations. Recording is best
// effort: a failed append is logged and rolled back to a savepoint, and the
// caller's transaction carries on.
type AuditRecorder struct {
	now func() time.Time
}

func NewAuditRecorder() *AuditRecorder {
	return &AuditRecorder{now: time.Now}
}

// Record writes one entry and reports whether it was stored.
func (a *AuditRecorder) Record(ctx context.Context, uow repository.UnitOfWork, reservationID int64, action domain.AuditAction, changes []domain.FieldChange, actorID *string, note string) bool {
	entry := &domain.AuditEntry{
		ID:            uuid.NewString(),
		ReservationID: reservationID,
		Action:        action,
		Changes:       changes,
		ActorID:       actorID,
		Note:          note,
		CreatedOn:     a.now(),
	}

	if err := uow.Savepoint(ctx, auditSavepoint); err != nil {
		logger.ErrorContext(ctx, "Failed to open audit savepoint", "reservation_id", reservationID, "action", action, "error", err)
		return false
	}
	if err := uow.Audit().Append(ctx, entry); err != nil {
		logger.ErrorContext(ctx, "Failed to write audit entry", "reservation_id", reservationID, "action", action, "error", err)
		if rbErr := uow.RollbackTo(ctx, auditSavepoint); rbErr != nil {
			logger.ErrorContext(ctx, "Failed to roll back audit savepoint", "reservation_id", reservationID, "error", rbErr)
		}
		return false
	}
	if err := uow.Release(ctx, auditSavepoint); err != nil {
		logger.WarnContext(ctx, "Failed to release audit savepoint", "reservation_id", reservationID, "error", err)
	}
	return true
}

type auditField struct {
	name  string
	value func(*domain.Reservation) string
}

var auditedFields = []auditField{
	{"reservation_number", func(r *domain.Reservation) string { return r.ReservationNumber }},
	{"reference_code", func(r *domain.Reservation) string { return r.ReferenceCode }},
	{"room_id", func(r *domain.Reservation) string { return r.RoomID }},
	{"guest_id", func(r *domain.Reservation) string { return r.GuestID }},
	{"check_in", func(r *domain.Reservation) string { return r.CheckIn.Format(auditTimeLayout) }},
	{"check_out", func(r *domain.Reservation) string { return r.CheckOut.Format(auditTimeLayout) }},
	{"subtotal", func(r *domain.Reservation) string { return money(r.Subtotal) }},
	{"tax", func(r *domain.Reservation) string { return money(r.Tax) }},
	{"discount", func(r *domain.Reservation) string { return money(r.Discount) }},
	{"total_amount", func(r *domain.Reservation) string { return money(r.TotalAmount) }},
	{"paid_amount", func(r *domain.Reservation) string { return money(r.PaidAmount) }},
	{"balance_amount", func(r *domain.Reservation) string { return money(r.BalanceAmount) }},
	{"tax_enabled", func(r *domain.Reservation) string { return strconv.FormatBool(r.TaxEnabled) }},
	{"status", func(r *domain.Reservation) string { return string(r.Status) }},
	{"group_reference", func(r *domain.Reservation) string {
		if r.GroupReference == nil {
			return ""
		}
		return *r.GroupReference
	}},
	{"source", func(r *domain.Reservation) string { return string(r.Source) }},
}

// InitialFields lists every populated field of a new reservation.
func InitialFields(res *domain.Reservation) []domain.FieldChange {
	changes := make([]domain.FieldChange, 0, len(auditedFields))
	for _, f := range auditedFields {
		if v := f.value(res); v != "" {
			changes = append(changes, domain.FieldChange{Field: f.name, To: v})
		}
	}
	return changes
}

// DiffReservation lists the fields that differ between before and after.
func DiffReservation(before, after *domain.Reservation) []domain.FieldChange {
	var changes []domain.FieldChange
	for _, f := range auditedFields {
		from, to := f.value(before), f.value(after)
		if from != to {
			changes = append(changes, domain.FieldChange{Field: f.name, From: from, To: to})
		}
	}
	return changes
}

func money(d decimal.Decimal) string {
	return d.StringFixed(2)
}
