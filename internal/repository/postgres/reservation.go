package postgres

import (
	"context"
	"database/sql"
	"time"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"

	"github.com/lib/pq"
)

type reservationRepository struct {
	q Querier
}

func NewReservationRepository(q Querier) repository.ReservationRepository {
	return &reservationRepository{q: q}
}

const reservationColumns = `id, reservation_number, reference_code, room_id, guest_id, check_in, check_out,
	subtotal, tax, discount, total_amount, paid_amount, balance_amount, tax_enabled,
	status, group_reference, source, created_on, updated_on`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(s rowScanner) (*domain.Reservation, error) {
	res := &domain.Reservation{}
	var group sql.NullString
	err := s.Scan(
		&res.ID, &res.ReservationNumber, &res.ReferenceCode, &res.RoomID, &res.GuestID, &res.CheckIn, &res.CheckOut,
		&res.Subtotal, &res.Tax, &res.Discount, &res.TotalAmount, &res.PaidAmount, &res.BalanceAmount, &res.TaxEnabled,
		&res.Status, &group, &res.Source, &res.CreatedOn, &res.UpdatedOn,
	)
	if err != nil {
		return nil, err
	}
	if group.Valid {
		g := group.String
		res.GroupReference = &g
	}
	return res, nil
}

func (r *reservationRepository) Create(ctx context.Context, res *domain.Reservation) error {
	query := `INSERT INTO reservations (reservation_number, reference_code, room_id, guest_id, check_in, check_out,
	              subtotal, tax, discount, total_amount, paid_amount, balance_amount, tax_enabled,
	              status, group_reference, source, created_on, updated_on)
	          VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18) RETURNING id`
	now := time.Now()
	err := r.q.QueryRowContext(ctx, query,
		res.ReservationNumber, res.ReferenceCode, res.RoomID, res.GuestID, res.CheckIn, res.CheckOut,
		res.Subtotal, res.Tax, res.Discount, res.TotalAmount, res.PaidAmount, res.BalanceAmount, res.TaxEnabled,
		res.Status, res.GroupReference, res.Source, now, now,
	).Scan(&res.ID)
	if err != nil {
		return classify(err)
	}
	res.CreatedOn = now
	res.UpdatedOn = now
	return nil
}

func (r *reservationRepository) GetByID(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	return res, classify(err)
}

func (r *reservationRepository) GetByIDForUpdate(ctx context.Context, id int64) (*domain.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1 FOR UPDATE`, id))
	return res, classify(err)
}

func (r *reservationRepository) GetByReferenceCode(ctx context.Context, code string) (*domain.Reservation, error) {
	res, err := scanReservation(r.q.QueryRowContext(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE reference_code = $1`, code))
	return res, classify(err)
}

func (r *reservationRepository) Update(ctx context.Context, res *domain.Reservation) error {
	query := `UPDATE reservations SET check_out=$1, subtotal=$2, tax=$3, discount=$4, total_amount=$5,
	              paid_amount=$6, balance_amount=$7, status=$8, updated_on=$9
	          WHERE id=$10`
	now := time.Now()
	result, err := r.q.ExecContext(ctx, query, res.CheckOut, res.Subtotal, res.Tax, res.Discount, res.TotalAmount,
		res.PaidAmount, res.BalanceAmount, res.Status, now, res.ID)
	if err != nil {
		return classify(err)
	}
	if n, err := result.RowsAffected(); err == nil && n == 0 {
		return repository.ErrNotFound
	}
	res.UpdatedOn = now
	return nil
}

func (r *reservationRepository) ListOverlapping(ctx context.Context, roomID string, checkIn, checkOut time.Time, statuses []domain.ReservationStatus, excludeID *int64) ([]domain.Reservation, error) {
	names := make([]string, len(statuses))
	for i, s := range statuses {
		names[i] = string(s)
	}
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE room_id = $1 AND status = ANY($2) AND check_in < $3 AND check_out > $4
	            AND ($5::bigint IS NULL OR id <> $5)
	          ORDER BY check_in, id`
	return r.list(ctx, query, roomID, pq.Array(names), checkOut, checkIn, excludeID)
}

func (r *reservationRepository) ListPendingBefore(ctx context.Context, before time.Time) ([]domain.Reservation, error) {
	query := `SELECT ` + reservationColumns + ` FROM reservations
	          WHERE status = 'PENDING' AND check_in < $1 ORDER BY check_in, id`
	return r.list(ctx, query, before)
}

func (r *reservationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Reservation, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var out []domain.Reservation
	for rows.Next() {
		res, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *res)
	}
	return out, rows.Err()
}

func (r *reservationRepository) ListNumbersWithPrefix(ctx context.Context, prefix string) ([]string, error) {
	rows, err := r.q.QueryContext(ctx, `SELECT reservation_number FROM reservations WHERE reservation_number LIKE $1`, prefix+"%")
	if err != nil {
		return nil, classify(err)
	}
	defer rows.Close()

	var numbers []string
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		numbers = append(numbers, n)
	}
	return numbers, rows.Err()
}

func (r *reservationRepository) NumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := r.q.QueryRowContext(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE reservation_number = $1)`, number).Scan(&exists)
	return exists, classify(err)
}

func (r *reservationRepository) CodeInUse(ctx context.Context, code string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM reservations WHERE reference_code = $1 OR group_reference = $1)`
	err := r.q.QueryRowContext(ctx, query, code).Scan(&exists)
	return exists, classify(err)
}
