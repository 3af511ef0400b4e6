package service

import (
	"context"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"
)

type roomService struct {
	tx repository.TxManager
}

func NewRoomService(tx repository.TxManager) RoomService {
	return &roomService{tx: tx}
}

func (s *roomService) ListRooms(ctx context.Context) ([]domain.Room, error) {
	var rooms []domain.Room
	err := s.tx.WithinTx(ctx, repository.TxOptions{ReadOnly: true}, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		rooms, err = uow.Rooms().List(ctx)
		return err
	})
	if err != nil {
		return nil, classifyTxError(err)
	}
	return rooms, nil
}

// SyncOccupancy refreshes the informational room status from who is
// currently checked in.
func (s *roomService) SyncOccupancy(ctx context.Context) (int64, error) {
	var changed int64
	err := s.tx.WithinTx(ctx, repository.TxOptions{}, func(ctx context.Context, uow repository.UnitOfWork) error {
		var err error
		changed, err = uow.Rooms().SyncOccupancy(ctx)
		return err
	})
	if err != nil {
		logger.ErrorContext(ctx, "Room occupancy sync failed", "error", err)
		return 0, classifyTxError(err)
	}
	return changed, nil
}
