package postgres

import (
	"context"

	"staybook-backend/internal/repository"
)

type sequenceRepository struct {
	q Querier
}

func NewSequenceRepository(q Querier) repository.SequenceRepository {
	return &sequenceRepository{q: q}
}

// Next checks the sequence exists before calling nextval: a failing nextval
// would abort the surrounding transaction.
func (r *sequenceRepository) Next(ctx context.Context, name string) (int64, error) {
	var exists bool
	if err := r.q.QueryRowContext(ctx, `SELECT to_regclass($1) IS NOT NULL`, name).Scan(&exists); err != nil {
		return 0, classify(err)
	}
	if !exists {
		return 0, repository.ErrSequenceUnavailable
	}

	var n int64
	if err := r.q.QueryRowContext(ctx, `SELECT nextval($1)`, name).Scan(&n); err != nil {
		return 0, classify(err)
	}
	return n, nil
}
