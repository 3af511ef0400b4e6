package postgres

import (
	"context"
	"time"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
)

type guestRepository struct {
	q Querier
}

func NewGuestRepository(q Querier) repository.GuestRepository {
	return &guestRepository{q: q}
}

func (r *guestRepository) Create(ctx context.Context, g *domain.Guest) error {
	query := `INSERT INTO guests (id, name, phone, id_proof, address, created_on) VALUES ($1, $2, $3, $4, $5, $6)`
	now := time.Now()
	if _, err := r.q.ExecContext(ctx, query, g.ID, g.Name, g.Phone, g.IDProof, g.Address, now); err != nil {
		return classify(err)
	}
	g.CreatedOn = now
	return nil
}

func (r *guestRepository) GetByID(ctx context.Context, id string) (*domain.Guest, error) {
	g := &domain.Guest{}
	query := `SELECT id, name, phone, COALESCE(id_proof, ''), COALESCE(address, ''), created_on FROM guests WHERE id = $1`
	err := r.q.QueryRowContext(ctx, query, id).Scan(&g.ID, &g.Name, &g.Phone, &g.IDProof, &g.Address, &g.CreatedOn)
	if err != nil {
		return nil, classify(err)
	}
	return g, nil
}
