package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
)

func stay(room string, in, out time.Time, status domain.ReservationStatus, n string) *domain.Reservation {
	return &domain.Reservation{ReservationNumber: "RES" + n, ReferenceCode: "CODE" + n, RoomID: room, CheckIn: in, CheckOut: out, Status: status}
}

func TestWithinTx_RollsBackOnError(t *testing.T) {
	store := NewStore()
	store.AddRoom(domain.Room{ID: "r1", Label: "101", BasePrice: decimal.NewFromInt(1000)})
	ctx := context.Background()
	in := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)
	boom := errors.New("boom")

	err := store.WithinTx(ctx, repository.TxOptions{}, func(ctx context.Context, uow repository.UnitOfWork) error {
		require.NoError(t, uow.Reservations().Create(ctx, stay("r1", in, in.Add(48*time.Hour), domain.ReservationStatusConfirmed, "1")))
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Empty(t, store.Reservations())
}

func TestSavepoint_DiscardsOnlyLaterWrites(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	in := time.Date(2025, 6, 1, 14, 0, 0, 0, time.UTC)

	err := store.WithinTx(ctx, repository.TxOptions{}, func(ctx context.Context, uow repository.UnitOfWork) error {
		require.NoError(t, uow.Reservations().Create(ctx, stay("r1", in, in.Add(24*time.Hour), domain.ReservationStatusConfirmed, "1")))
		require.NoError(t, uow.Savepoint(ctx, "audit_entry"))
		require.NoError(t, uow.Audit().Append(ctx, &domain.AuditEntry{ID: "a1", ReservationID: 1}))
		require.NoError(t, uow.RollbackTo(ctx, "audit_entry"))
		return uow.Release(ctx, "audit_entry")
	})
	require.NoError(t, err)
	assert.Len(t, store.Reservations(), 1)
	assert.Empty(t, store.AuditEntries())
}

func TestReservationCreate_ExclusionIsDayGranular(t *testing.T) {
	store := NewStore()
	ctx := context.Background()
	jan1 := time.Date(2025, 1, 1, 14, 0, 0, 0, time.UTC)
	jan3 := time.Date(2025, 1, 3, 11, 0, 0, 0, time.UTC)

	err := store.WithinTx(ctx, repository.TxOptions{}, func(ctx context.Context, uow repository.UnitOfWork) error {
		repo := uow.Reservations()
		require.NoError(t, repo.Create(ctx, stay("r1", jan1, jan3, domain.ReservationStatusConfirmed, "1")))

		// starts on the previous stay's check-out day
		require.NoError(t, repo.Create(ctx, stay("r1", jan3.Add(3*time.Hour), jan3.Add(48*time.Hour), domain.ReservationStatusConfirmed, "2")))

		// shares Jan 2 with the first stay
		err := repo.Create(ctx, stay("r1", jan1.Add(24*time.Hour), jan3, domain.ReservationStatusConfirmed, "3"))
		assert.ErrorIs(t, err, repository.ErrOverlap)

		// pending holds never trip the constraint
		require.NoError(t, repo.Create(ctx, stay("r1", jan1, jan3, domain.ReservationStatusPending, "4")))

		err = repo.Create(ctx, stay("r2", jan1, jan3, domain.ReservationStatusConfirmed, "1"))
		assert.ErrorIs(t, err, repository.ErrDuplicate)
		return nil
	})
	require.NoError(t, err)
	assert.Len(t, store.Reservations(), 3)
}

func TestSequenceNext(t *testing.T) {
	store := NewStore()
	ctx := context.Background()

	err := store.WithinTx(ctx, repository.TxOptions{}, func(ctx context.Context, uow repository.UnitOfWork) error {
		_, err := uow.Sequences().Next(ctx, "reservation_number_seq")
		assert.ErrorIs(t, err, repository.ErrSequenceUnavailable)
		return nil
	})
	require.NoError(t, err)

	store.EnableSequence("reservation_number_seq", 41)
	err = store.WithinTx(ctx, repository.TxOptions{}, func(ctx context.Context, uow repository.UnitOfWork) error {
		n, err := uow.Sequences().Next(ctx, "reservation_number_seq")
		assert.Equal(t, int64(42), n)
		return err
	})
	require.NoError(t, err)
}

func TestWithinTx_CancelledContextTimesOut(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewStore().WithinTx(ctx, repository.TxOptions{}, func(context.Context, repository.UnitOfWork) error {
		return nil
	})
	assert.ErrorIs(t, err, repository.ErrTimeout)
}
