package postgres

import (
	"context"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
)

type roomRepository struct {
	q Querier
}

func NewRoomRepository(q Querier) repository.RoomRepository {
	return &roomRepository{q: q}
}

const roomColumns = `id, label, type, status, base_price, capacity, created_on, updated_on`

func (r *roomRepository) GetByID(ctx context.Context, id string) (*domain.Room, error) {
	return r.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1`, id)
}

func (r *roomRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Room, error) {
	return r.get(ctx, `SELECT `+roomColumns+` FROM rooms WHERE id = $1 FOR UPDATE`, id)
}

func (r *roomRepository) get(ctx context.Context, query, id string) (*domain.Room, error) {
	room := &domain.Room{}
	err := r.q.QueryRowContext(ctx, query, id).Scan(&room.ID, &room.Label, &room.Type, &room.Status, &room.BasePrice, &room.Capacity, &room.CreatedOn, &room.UpdatedOn)
	if err != nil {
		return nil, classify(err)
	}
	return room, nil
}

func (r *roomRepository) List(ctx context.Context) ([]domain.Room, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT `+roomColumns+` FROM rooms ORDER BY label`)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var rooms []domain.Room
	for rows.Next() {
		var room domain.Room
		if err := rows.Scan(&room.ID, &room.Label, &room.Type, &room.Status, &room.BasePrice, &room.Capacity, &room.CreatedOn, &room.UpdatedOn); err != nil {
			return nil, err
		}
		rooms = append(rooms, room)
	}
	return rooms, rows.Err()
}

func (r *roomRepository) SyncOccupancy(ctx context.Context) (int64, error) {
	query := `UPDATE rooms r
	          SET status = CASE WHEN EXISTS (
	                  SELECT 1 FROM reservations res
	                  WHERE res.room_id = r.id AND res.status = 'CHECKED_IN'
	              ) THEN 'OCCUPIED' ELSE 'AVAILABLE' END,
	              updated_on = NOW()
	          WHERE r.status <> 'OUT_OF_SERVICE'
	            AND r.status <> CASE WHEN EXISTS (
	                  SELECT 1 FROM reservations res
	                  WHERE res.room_id = r.id AND res.status = 'CHECKED_IN'
	              ) THEN 'OCCUPIED' ELSE 'AVAILABLE' END`
	logger.DatabaseCall("SyncOccupancy", "UPDATE rooms")
	result, err := r.q.ExecContext(ctx, query)
	if err != nil {
		logger.DatabaseResult("SyncOccupancy", 0, err)
		return 0, classify(err)
	}
	n, err := result.RowsAffected()
	logger.DatabaseResult("SyncOccupancy", n, err)
	return n, err
}
