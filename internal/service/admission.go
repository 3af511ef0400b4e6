package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
	"staybook-backend/internal/utils"
)

// AdmissionRequest is a validated booking request. CheckIn and CheckOut are
// raw boundary strings; date-only values are pinned to the start and end of
// the day.
type AdmissionRequest struct {
	RoomIDs       []string
	GuestName     string
	GuestPhone    string
	GuestIDProof  string
	GuestAddress  string
	CheckIn       string
	CheckOut      string
	Discount      decimal.Decimal
	TaxEnabled    bool
	AdvanceAmount decimal.Decimal
	Source        domain.ReservationSource
	ActorID       *string
}

type AdmissionResult struct {
	GroupReference string
	Guest          domain.Guest
	Reservations   []domain.Reservation
	Rooms          []domain.Room
	TotalAmount    decimal.Decimal
	CheckIn        time.Time
	CheckOut       time.Time
}

type admissionState string

const (
	stateReceived   admissionState = "RECEIVED"
	stateValidating admissionState = "VALIDATING"
	stateResolving  admissionState = "RESOLVING"
	stateAllocating admissionState = "ALLOCATING"
	stateCommitted  admissionState = "COMMITTED"
	stateRejected   admissionState = "REJECTED"
)

type admissionService struct {
	tx       repository.TxManager
	resolver *AvailabilityResolver
	ids      *IdentifierGenerator
	audit    *AuditRecorder
	policy   utils.Policy
	budget   TxBudget
	now      func() time.Time
}

func NewAdmissionService(
	tx repository.TxManager,
	resolver *AvailabilityResolver,
	ids *IdentifierGenerator,
	audit *AuditRecorder,
	policy utils.Policy,
	budget TxBudget,
) AdmissionService {
	return &admissionService{
		tx:       tx,
		resolver: resolver,
		ids:      ids,
		audit:    audit,
		policy:   policy,
		budget:   budget,
		now:      time.Now,
	}
}

// stay is a validated interval. billableOut is where pricing stops.
type stay struct {
	checkIn     time.Time
	checkOut    time.Time
	billableOut time.Time
}

// Admit books every requested room for the same guest and interval, or none
// of them. Rooms are locked and resolved in request order before anything
// is written.
func (s *admissionService) Admit(ctx context.Context, req AdmissionRequest) (*AdmissionResult, error) {
	const method = "AdmissionService.Admit"
	logger.EnterMethod(ctx, method, "rooms", len(req.RoomIDs), "source", req.Source)
	s.transition(ctx, stateReceived)

	s.transition(ctx, stateValidating)
	roomIDs := dedupeRoomIDs(req.RoomIDs)
	if err := validateAdmission(req, roomIDs); err != nil {
		return nil, s.reject(ctx, method, err)
	}
	st, err := s.validateStay(req.CheckIn, req.CheckOut)
	if err != nil {
		return nil, s.reject(ctx, method, err)
	}

	ctx, cancel := withBudget(ctx, s.budget)
	defer cancel()

	opts := repository.TxOptions{LockWait: s.budget.LockWait, StatementTimeout: s.budget.Timeout}
	var result *AdmissionResult
	err = s.tx.WithinTx(ctx, opts, func(ctx context.Context, uow repository.UnitOfWork) error {
		r, err := s.admit(ctx, uow, req, roomIDs, st)
		result = r
		return err
	})
	if err != nil {
		return nil, s.reject(ctx, method, classifyTxError(err))
	}

	s.transition(ctx, stateCommitted, "group_reference", result.GroupReference)
	logger.InfoContext(ctx, "Admission committed",
		"group_reference", result.GroupReference,
		"reservations", len(result.Reservations),
		"total_amount", result.TotalAmount.String())
	logger.ExitMethod(ctx, method, "group_reference", result.GroupReference)
	return result, nil
}

func (s *admissionService) validateStay(rawIn, rawOut string) (stay, error) {
	checkIn, _, err := s.policy.NormalizeBoundary(rawIn, false)
	if err != nil {
		return stay{}, dateError(err)
	}
	checkOut, outDateOnly, err := s.policy.NormalizeBoundary(rawOut, true)
	if err != nil {
		return stay{}, dateError(err)
	}
	if err := s.policy.ValidateInterval(checkIn, checkOut, s.now()); err != nil {
		return stay{}, dateError(err)
	}
	return stay{checkIn: checkIn, checkOut: checkOut, billableOut: utils.BillableEnd(checkOut, outDateOnly)}, nil
}

func (s *admissionService) admit(ctx context.Context, uow repository.UnitOfWork, req AdmissionRequest, roomIDs []string, st stay) (*AdmissionResult, error) {
	now := s.now()

	guest := &domain.Guest{
		ID:        uuid.NewString(),
		Name:      strings.TrimSpace(req.GuestName),
		Phone:     strings.TrimSpace(req.GuestPhone),
		IDProof:   strings.TrimSpace(req.GuestIDProof),
		Address:   strings.TrimSpace(req.GuestAddress),
		CreatedOn: now,
	}
	if err := uow.Guests().Create(ctx, guest); err != nil {
		return nil, fmt.Errorf("create guest: %w", err)
	}

	groupRef, err := s.ids.NewReferenceCode(ctx, uow)
	if err != nil {
		return nil, err
	}

	s.transition(ctx, stateResolving, "group_reference", groupRef)
	rooms := make([]*domain.Room, 0, len(roomIDs))
	for _, id := range roomIDs {
		room, err := uow.Rooms().GetByIDForUpdate(ctx, id)
		if errors.Is(err, repository.ErrNotFound) {
			return nil, resourceNotFound(id)
		}
		if err != nil {
			return nil, fmt.Errorf("lock room %s: %w", id, err)
		}
		check, err := s.resolver.resolve(ctx, uow, room, st.checkIn, st.checkOut, nil)
		if err != nil {
			return nil, err
		}
		if !check.Available {
			return nil, check.rejection()
		}
		rooms = append(rooms, room)
	}

	s.transition(ctx, stateAllocating, "group_reference", groupRef)
	days := decimal.NewFromInt(utils.BillableDays(st.checkIn, st.billableOut))
	bases := make([]decimal.Decimal, len(rooms))
	for i, room := range rooms {
		bases[i] = room.BasePrice.Mul(days)
	}
	discounts := utils.SplitDiscount(req.Discount, bases)

	source := req.Source
	if source == "" {
		source = domain.ReservationSourceStaff
	}

	result := &AdmissionResult{
		GroupReference: groupRef,
		Guest:          *guest,
		TotalAmount:    decimal.Zero,
		CheckIn:        st.checkIn,
		CheckOut:       st.checkOut,
	}
	advance := req.AdvanceAmount
	taken := []string{groupRef}

	for i, room := range rooms {
		slot := &domain.Slot{ID: uuid.NewString(), RoomID: room.ID, Day: utils.TruncateToDay(st.checkIn), CreatedOn: now}
		if err := uow.Slots().Create(ctx, slot); err != nil {
			return nil, fmt.Errorf("create slot for room %s: %w", room.ID, err)
		}

		price := s.policy.ComputePrice(room.BasePrice, st.checkIn, st.billableOut, discounts[i], req.TaxEnabled)

		number, err := s.ids.NextReservationNumber(ctx, uow)
		if err != nil {
			return nil, err
		}
		code, err := s.ids.NewReferenceCode(ctx, uow, taken...)
		if err != nil {
			return nil, err
		}
		taken = append(taken, code)

		share := groupShare(groupRef, i)
		res := &domain.Reservation{
			ReservationNumber: number,
			ReferenceCode:     code,
			RoomID:            room.ID,
			GuestID:           guest.ID,
			CheckIn:           st.checkIn,
			CheckOut:          st.checkOut,
			Subtotal:          price.Subtotal,
			Tax:               price.Tax,
			Discount:          price.DiscountAmount,
			TotalAmount:       price.Total,
			PaidAmount:        allocateAdvance(&advance, price.Total, i == len(rooms)-1),
			TaxEnabled:        req.TaxEnabled,
			Status:            domain.ReservationStatusConfirmed,
			GroupReference:    &share,
			Source:            source,
			CreatedOn:         now,
			UpdatedOn:         now,
		}
		res.RecomputeBalance()

		if err := uow.Reservations().Create(ctx, res); err != nil {
			if errors.Is(err, repository.ErrOverlap) {
				return nil, dateConflict(room)
			}
			return nil, fmt.Errorf("create reservation for room %s: %w", room.ID, err)
		}
		if err := uow.Slots().AttachReservation(ctx, slot.ID, res.ID); err != nil {
			return nil, fmt.Errorf("attach slot for room %s: %w", room.ID, err)
		}

		s.audit.Record(ctx, uow, res.ID, domain.AuditActionCreated, InitialFields(res), req.ActorID, "reservation created")
		if res.PaidAmount.IsPositive() {
			s.audit.Record(ctx, uow, res.ID, domain.AuditActionPaymentReceived, []domain.FieldChange{
				{Field: "paid_amount", From: money(decimal.Zero), To: money(res.PaidAmount)},
				{Field: "balance_amount", From: money(res.TotalAmount), To: money(res.BalanceAmount)},
			}, req.ActorID, "advance payment")
		}

		logger.DebugContext(ctx, "Reservation allocated",
			"reservation_number", res.ReservationNumber,
			"room_id", room.ID,
			"total_amount", res.TotalAmount.String())

		result.Reservations = append(result.Reservations, *res)
		result.Rooms = append(result.Rooms, *room)
		result.TotalAmount = result.TotalAmount.Add(res.TotalAmount)
	}
	return result, nil
}

func (s *admissionService) transition(ctx context.Context, to admissionState, args ...any) {
	logger.DebugContext(ctx, "Admission state", append([]any{"state", to}, args...)...)
}

func (s *admissionService) reject(ctx context.Context, method string, err error) error {
	var be *BookingError
	if !errors.As(err, &be) {
		be = internalError(err)
	}
	s.transition(ctx, stateRejected, "kind", be.Kind, "room_id", be.ResourceID)
	if be.Kind == ErrKindInternal {
		logger.ErrorContext(ctx, "Admission failed", "error", err)
	} else {
		logger.InfoContext(ctx, "Admission rejected", "kind", be.Kind, "reason", be.Message)
	}
	logger.ExitMethodWithError(ctx, method, be)
	return be
}

func validateAdmission(req AdmissionRequest, roomIDs []string) error {
	if len(roomIDs) == 0 {
		return validationError("at least one room is required")
	}
	if strings.TrimSpace(req.GuestName) == "" {
		return validationError("guest name is required")
	}
	if strings.TrimSpace(req.GuestPhone) == "" {
		return validationError("guest phone is required")
	}
	if req.Discount.IsNegative() {
		return validationError("discount cannot be negative")
	}
	if req.AdvanceAmount.IsNegative() {
		return validationError("advance amount cannot be negative")
	}
	return nil
}

// dedupeRoomIDs drops blanks and repeats, keeping first-seen order.
func dedupeRoomIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// groupShare is the group reference stored on the i-th reservation of a
// batch: the bare code for the first, code-<position> for the rest.
func groupShare(groupRef string, i int) string {
	if i == 0 {
		return groupRef
	}
	return fmt.Sprintf("%s-%d", groupRef, i+1)
}

// allocateAdvance takes up to total from the remaining advance. The last
// room takes whatever is left, so an overpayment lands there.
func allocateAdvance(remaining *decimal.Decimal, total decimal.Decimal, last bool) decimal.Decimal {
	take := *remaining
	if !last && take.GreaterThan(total) {
		take = total
	}
	*remaining = remaining.Sub(take)
	return take
}
