package service

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository/memory"
	"staybook-backend/internal/utils"
)

var fixedNow = time.Date(2025, 6, 1, 8, 0, 0, 0, time.UTC)

type fixture struct {
	store        *memory.Store
	resolver     *AvailabilityResolver
	ids          *IdentifierGenerator
	audit        *AuditRecorder
	admission    *admissionService
	reservations *reservationService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.NewStore()
	policy := utils.DefaultPolicy()
	budget := DefaultTxBudget()

	resolver := NewAvailabilityResolver(store, policy, budget)
	ids := NewIdentifierGenerator("RES", 6, 8)
	audit := NewAuditRecorder()
	audit.now = func() time.Time { return fixedNow }

	adm := NewAdmissionService(store, resolver, ids, audit, policy, budget).(*admissionService)
	adm.now = func() time.Time { return fixedNow }
	res := NewReservationService(store, resolver, audit, policy, budget).(*reservationService)
	res.now = func() time.Time { return fixedNow }

	return &fixture{
		store:        store,
		resolver:     resolver,
		ids:          ids,
		audit:        audit,
		admission:    adm,
		reservations: res,
	}
}

func (f *fixture) addRoom(id, label, price string) domain.Room {
	room := domain.Room{
		ID:        id,
		Label:     label,
		Type:      domain.RoomTypeRoom,
		Status:    domain.RoomStatusAvailable,
		BasePrice: dec(price),
		Capacity:  2,
	}
	f.store.AddRoom(room)
	return room
}

// book commits an existing stay directly, bypassing admission.
func (f *fixture) book(roomID string, checkIn, checkOut time.Time, status domain.ReservationStatus) domain.Reservation {
	return f.store.AddReservation(domain.Reservation{
		ReservationNumber: "OLD-" + roomID + checkIn.Format("0102"),
		ReferenceCode:     "OLD" + roomID + checkIn.Format("0102"),
		RoomID:            roomID,
		CheckIn:           checkIn,
		CheckOut:          checkOut,
		TotalAmount:       decimal.Zero,
		Status:            status,
		Source:            domain.ReservationSourceStaff,
	})
}

func admitRequest(roomIDs ...string) AdmissionRequest {
	return AdmissionRequest{
		RoomIDs:    roomIDs,
		GuestName:  "Asha Rao",
		GuestPhone: "9876543210",
		CheckIn:    "2025-06-01",
		CheckOut:   "2025-06-03",
		TaxEnabled: true,
		Source:     domain.ReservationSourceStaff,
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func day(s string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", s)
	if err != nil {
		panic(err)
	}
	return t
}

func endOf(s string) time.Time {
	return utils.EndOfDay(day(s + " 00:00"))
}

func assertAmount(t *testing.T, want string, got decimal.Decimal, field string) {
	t.Helper()
	if !dec(want).Equal(got) {
		t.Errorf("%s = %s, want %s", field, got.String(), want)
	}
}

func bookingKind(t *testing.T, err error) *BookingError {
	t.Helper()
	be, ok := err.(*BookingError)
	if !ok {
		t.Fatalf("expected *BookingError, got %T: %v", err, err)
	}
	return be
}
