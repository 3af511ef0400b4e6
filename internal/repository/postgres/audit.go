package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
)

type auditRepository struct {
	q Querier
}

func NewAuditRepository(q Querier) repository.AuditRepository {
	return &auditRepository{q: q}
}

func (r *auditRepository) Append(ctx context.Context, e *domain.AuditEntry) error {
	changes, err := json.Marshal(e.Changes)
	if err != nil {
		return fmt.Errorf("failed to encode audit changes: %w", err)
	}
	query := `INSERT INTO reservation_audit (id, reservation_id, action, changes, actor_id, note, created_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7)`
	_, err = r.q.ExecContext(ctx, query, e.ID, e.ReservationID, e.Action, string(changes), e.ActorID, e.Note, e.CreatedOn)
	return classify(err)
}

func (r *auditRepository) ListByReservation(ctx context.Context, reservationID int64) ([]domain.AuditEntry, error) {
	query := `SELECT id, reservation_id, action, changes, actor_id, COALESCE(note, ''), created_on
	          FROM reservation_audit WHERE reservation_id = $1 ORDER BY created_on, id`
	rows, err := r.q.QueryContext(ctx, query, reservationID)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		var changes []byte
		var actor sql.NullString
		if err := rows.Scan(&e.ID, &e.ReservationID, &e.Action, &changes, &actor, &e.Note, &e.CreatedOn); err != nil {
			return nil, err
		}
		if err := json.Unmarshal(changes, &e.Changes); err != nil {
			return nil, fmt.Errorf("failed to decode audit changes: %w", err)
		}
		if actor.Valid {
			a := actor.String
			e.ActorID = &a
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
