package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository/memory"
)

func TestAdmit_TwoRoomBatchWithDiscount(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.addRoom("r2", "102", "1500")

	req := admitRequest("r1", "r2")
	req.Discount = dec("100")

	result, err := f.admission.Admit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Reservations, 2)

	r1, r2 := result.Reservations[0], result.Reservations[1]
	assertAmount(t, "40", r1.Discount, "r1 discount")
	assertAmount(t, "1960", r1.Subtotal, "r1 subtotal")
	assertAmount(t, "353", r1.Tax, "r1 tax")
	assertAmount(t, "2313", r1.TotalAmount, "r1 total")
	assertAmount(t, "60", r2.Discount, "r2 discount")
	assertAmount(t, "2940", r2.Subtotal, "r2 subtotal")
	assertAmount(t, "529", r2.Tax, "r2 tax")
	assertAmount(t, "3469", r2.TotalAmount, "r2 total")
	assertAmount(t, "5782", result.TotalAmount, "aggregate")

	assert.Equal(t, "RES000001", r1.ReservationNumber)
	assert.Equal(t, "RES000002", r2.ReservationNumber)
	assert.Equal(t, result.GroupReference, *r1.GroupReference)
	assert.Equal(t, result.GroupReference+"-2", *r2.GroupReference)
	assert.NotEqual(t, r1.ReferenceCode, r2.ReferenceCode)
	assert.Equal(t, r1.GuestID, r2.GuestID)
	assert.Equal(t, "Asha Rao", result.Guest.Name)
	assert.Equal(t, domain.ReservationStatusConfirmed, r1.Status)
	assert.Equal(t, []string{"101", "102"}, []string{result.Rooms[0].Label, result.Rooms[1].Label})
	assert.Equal(t, day("2025-06-01 00:00"), result.CheckIn)
	assert.Equal(t, endOf("2025-06-03"), result.CheckOut)

	assert.Len(t, f.store.Reservations(), 2)
	assert.Len(t, f.store.Guests(), 1)
	slots := f.store.Slots()
	require.Len(t, slots, 2)
	for _, sl := range slots {
		require.NotNil(t, sl.ReservationID)
		assert.Equal(t, day("2025-06-01 00:00"), sl.Day)
	}

	entries := f.store.AuditEntries()
	require.Len(t, entries, 2)
	for _, e := range entries {
		assert.Equal(t, domain.AuditActionCreated, e.Action)
		assert.Nil(t, e.ActorID)
	}
}

func TestAdmit_TotalsAndBalanceHoldAfterCommit(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.addRoom("r2", "102", "1500")

	req := admitRequest("r1", "r2")
	req.Discount = dec("100")
	req.AdvanceAmount = dec("3000")

	_, err := f.admission.Admit(context.Background(), req)
	require.NoError(t, err)

	stored := f.store.Reservations()
	require.Len(t, stored, 2)
	for _, r := range stored {
		assert.True(t, r.TotalAmount.Equal(r.Subtotal.Add(r.Tax)), "total == subtotal + tax")
		balance := r.TotalAmount.Sub(r.PaidAmount)
		if balance.IsNegative() {
			balance = dec("0")
		}
		assert.True(t, r.BalanceAmount.Equal(balance), "balance == max(0, total - paid)")
	}
	assertAmount(t, "2313", stored[0].PaidAmount, "r1 paid")
	assertAmount(t, "0", stored[0].BalanceAmount, "r1 balance")
	assertAmount(t, "687", stored[1].PaidAmount, "r2 paid")
	assertAmount(t, "2782", stored[1].BalanceAmount, "r2 balance")

	var payments int
	for _, e := range f.store.AuditEntries() {
		if e.Action == domain.AuditActionPaymentReceived {
			payments++
		}
	}
	assert.Equal(t, 2, payments)
}

func TestAdmit_BatchIsAllOrNothing(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.addRoom("r2", "102", "1000")
	f.addRoom("r3", "103", "1000")
	f.book("r2", day("2025-06-01 00:00"), endOf("2025-06-04"), domain.ReservationStatusConfirmed)

	_, err := f.admission.Admit(context.Background(), admitRequest("r1", "r2", "r3"))
	require.Error(t, err)

	be := bookingKind(t, err)
	assert.Equal(t, ErrKindDateConflict, be.Kind)
	assert.Equal(t, "r2", be.ResourceID)
	assert.Equal(t, "102", be.ResourceLabel)
	assert.Contains(t, be.Message, "Room 102")

	assert.Len(t, f.store.Reservations(), 1)
	assert.Empty(t, f.store.Guests())
	assert.Empty(t, f.store.Slots())
	assert.Empty(t, f.store.AuditEntries())
}

func TestAdmit_CheckoutDayIsFree(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.book("r1", day("2025-06-01 14:00"), day("2025-06-03 11:00"), domain.ReservationStatusCheckedIn)

	req := admitRequest("r1")
	req.CheckIn = "2025-06-03T14:00"
	req.CheckOut = "2025-06-05T11:00"
	_, err := f.admission.Admit(context.Background(), req)
	require.NoError(t, err)

	req = admitRequest("r1")
	req.CheckIn = "2025-06-02T14:00"
	req.CheckOut = "2025-06-04T11:00"
	_, err = f.admission.Admit(context.Background(), req)
	require.Error(t, err)
	assert.Equal(t, ErrKindDateConflict, KindOf(err))
}

func TestAdmit_InactiveReservationsDoNotBlock(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.book("r1", day("2025-06-01 00:00"), endOf("2025-06-04"), domain.ReservationStatusCancelled)
	f.book("r1", day("2025-06-01 00:00"), endOf("2025-06-02"), domain.ReservationStatusPending)

	_, err := f.admission.Admit(context.Background(), admitRequest("r1"))
	assert.NoError(t, err)
}

func TestAdmit_Rejections(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(*AdmissionRequest)
		wantKind ErrorKind
		wantRoom string
	}{
		{"unknown room", func(r *AdmissionRequest) { r.RoomIDs = []string{"r1", "nope"} }, ErrKindResourceNotFound, "nope"},
		{"out of service", func(r *AdmissionRequest) { r.RoomIDs = []string{"oos"} }, ErrKindResourceUnavailable, "oos"},
		{"no rooms", func(r *AdmissionRequest) { r.RoomIDs = []string{" ", ""} }, ErrKindValidation, ""},
		{"missing guest name", func(r *AdmissionRequest) { r.GuestName = " " }, ErrKindValidation, ""},
		{"negative discount", func(r *AdmissionRequest) { r.Discount = dec("-1") }, ErrKindValidation, ""},
		{"negative advance", func(r *AdmissionRequest) { r.AdvanceAmount = dec("-5") }, ErrKindValidation, ""},
		{"malformed date", func(r *AdmissionRequest) { r.CheckIn = "2025-13-45" }, ErrKindDate, ""},
		{"check-in in the past", func(r *AdmissionRequest) { r.CheckIn = "2025-05-31" }, ErrKindDate, ""},
		{"inverted range", func(r *AdmissionRequest) { r.CheckIn, r.CheckOut = "2025-06-04", "2025-06-02" }, ErrKindDate, ""},
		{"below minimum stay", func(r *AdmissionRequest) { r.CheckIn, r.CheckOut = "2025-06-01T10:00", "2025-06-01T18:00" }, ErrKindDate, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addRoom("r1", "101", "1000")
			f.store.AddRoom(domain.Room{ID: "oos", Label: "Hall A", Status: domain.RoomStatusOutOfService, BasePrice: dec("5000")})

			req := admitRequest("r1")
			tt.mutate(&req)
			_, err := f.admission.Admit(context.Background(), req)
			require.Error(t, err)

			be := bookingKind(t, err)
			assert.Equal(t, tt.wantKind, be.Kind)
			assert.Equal(t, tt.wantRoom, be.ResourceID)
			assert.False(t, be.Retryable())
			assert.Empty(t, f.store.Reservations())
			assert.Empty(t, f.store.Guests())
		})
	}
}

func TestAdmit_OutOfServiceNamesRoom(t *testing.T) {
	f := newFixture(t)
	f.store.AddRoom(domain.Room{ID: "h1", Label: "Hall A", Type: domain.RoomTypeHall, Status: domain.RoomStatusOutOfService, BasePrice: dec("5000")})

	_, err := f.admission.Admit(context.Background(), admitRequest("h1"))
	be := bookingKind(t, err)
	assert.Equal(t, ErrKindResourceUnavailable, be.Kind)
	assert.Equal(t, "Hall A", be.ResourceLabel)
	assert.Contains(t, be.Message, "Room Hall A")
}

func TestAdmit_DuplicateRoomIDsBookedOnce(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.addRoom("r2", "102", "1000")

	result, err := f.admission.Admit(context.Background(), admitRequest("r2", "r1", "r2", " r1 "))
	require.NoError(t, err)
	require.Len(t, result.Reservations, 2)
	assert.Equal(t, "r2", result.Reservations[0].RoomID)
	assert.Equal(t, "r1", result.Reservations[1].RoomID)
}

func TestAdmit_AuditFailureDoesNotFailAdmission(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.store.InjectFault(memory.FaultAuditAppend, errors.New("audit table unavailable"))

	req := admitRequest("r1")
	req.AdvanceAmount = dec("500")
	result, err := f.admission.Admit(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, result.Reservations, 1)

	assert.Len(t, f.store.Reservations(), 1)
	assert.Empty(t, f.store.AuditEntries())
}

func TestAdmit_StorageFailureRollsBackEverything(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.addRoom("r2", "102", "1000")
	f.store.InjectFault(memory.FaultSlotCreate, errors.New("connection reset"))

	_, err := f.admission.Admit(context.Background(), admitRequest("r1", "r2"))
	be := bookingKind(t, err)
	assert.Equal(t, ErrKindInternal, be.Kind)
	assert.Equal(t, internalMessage, be.Message)
	assert.NotContains(t, be.Error(), "connection reset")

	assert.Empty(t, f.store.Reservations())
	assert.Empty(t, f.store.Guests())
	assert.Empty(t, f.store.Slots())
}

func TestAdmit_CancelledContextIsRetryableTimeout(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := f.admission.Admit(ctx, admitRequest("r1"))
	be := bookingKind(t, err)
	assert.Equal(t, ErrKindTransactionTimeout, be.Kind)
	assert.True(t, be.Retryable())
	assert.Empty(t, f.store.Reservations())
}

func TestAdmit_ConcurrentRequestsForSameRoom(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")

	const workers = 20
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
		conflicts int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.admission.Admit(context.Background(), admitRequest("r1"))
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				succeeded++
			} else if KindOf(err) == ErrKindDateConflict {
				conflicts++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, succeeded)
	assert.Equal(t, workers-1, conflicts)
	assert.Len(t, f.store.Reservations(), 1)
}

func TestAdmit_UsesSequenceWhenProvisioned(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")
	f.store.EnableSequence(reservationNumberSeq, 41)

	result, err := f.admission.Admit(context.Background(), admitRequest("r1"))
	require.NoError(t, err)
	assert.Equal(t, "RES000042", result.Reservations[0].ReservationNumber)
}

func TestAdmit_DefaultsSourceToStaff(t *testing.T) {
	f := newFixture(t)
	f.addRoom("r1", "101", "1000")

	req := admitRequest("r1")
	req.Source = ""
	result, err := f.admission.Admit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationSourceStaff, result.Reservations[0].Source)
}

func TestAllocateAdvance(t *testing.T) {
	remaining := dec("6000")
	assertAmount(t, "2313", allocateAdvance(&remaining, dec("2313"), false), "first share")
	assertAmount(t, "3687", allocateAdvance(&remaining, dec("3469"), true), "last share")
	assertAmount(t, "0", remaining, "remaining")
}

func TestGroupShare(t *testing.T) {
	assert.Equal(t, "ABCD2345", groupShare("ABCD2345", 0))
	assert.Equal(t, "ABCD2345-2", groupShare("ABCD2345", 1))
	assert.Equal(t, "ABCD2345-3", groupShare("ABCD2345", 2))
}
