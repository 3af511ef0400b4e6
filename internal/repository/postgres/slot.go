package postgres

import (
	"context"
	"time"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
)

type slotRepository struct {
	q Querier
}

func NewSlotRepository(q Querier) repository.SlotRepository {
	return &slotRepository{q: q}
}

func (r *slotRepository) Create(ctx context.Context, s *domain.Slot) error {
	query := `INSERT INTO room_slots (id, room_id, day, reservation_id, created_on) VALUES ($1, $2, $3, $4, $5)`
	now := time.Now()
	if _, err := r.q.ExecContext(ctx, query, s.ID, s.RoomID, s.Day.Format("2006-01-02"), s.ReservationID, now); err != nil {
		return classify(err)
	}
	s.CreatedOn = now
	return nil
}

func (r *slotRepository) AttachReservation(ctx context.Context, slotID string, reservationID int64) error {
	result, err := r.q.ExecContext(ctx, `UPDATE room_slots SET reservation_id = $1 WHERE id = $2`, reservationID, slotID)
	if err != nil {
		return classify(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	return nil
}
