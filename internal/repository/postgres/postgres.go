package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"staybook-backend/internal/logger"
	"staybook-backend/internal/repository"

	_ "github.com/lib/pq"
)

// Querier is satisfied by both *sql.DB and *sql.Tx, so every repository can
// be bound either to the pool or to an open transaction.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// PoolConfig mirrors the database section of the application config.
type PoolConfig struct {
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// Open connects to PostgreSQL and verifies the connection.
func Open(dsn string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}

	if pool.MaxOpenConns > 0 {
		db.SetMaxOpenConns(pool.MaxOpenConns)
	}
	if pool.MaxIdleConns > 0 {
		db.SetMaxIdleConns(pool.MaxIdleConns)
	}
	if pool.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(pool.ConnMaxLifetime)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, err
	}
	return db, nil
}

// Store is the PostgreSQL TxManager. Repositories are only reachable through
// the unit of work it opens.
type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// WithinTx runs fn in a READ COMMITTED transaction. Lock wait and statement
// budgets are applied with SET LOCAL so they die with the transaction.
func (s *Store) WithinTx(ctx context.Context, opts repository.TxOptions, fn func(ctx context.Context, uow repository.UnitOfWork) error) (err error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted, ReadOnly: opts.ReadOnly})
	if err != nil {
		return classify(err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil && !errors.Is(rbErr, sql.ErrTxDone) {
				logger.Error("Failed to roll back transaction", "error", rbErr)
			}
			return
		}
		if cErr := tx.Commit(); cErr != nil {
			err = classify(cErr)
		}
	}()

	if opts.LockWait > 0 {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL lock_timeout = %d", opts.LockWait.Milliseconds())); err != nil {
			return classify(err)
		}
	}
	if opts.StatementTimeout > 0 {
		if _, err = tx.ExecContext(ctx, fmt.Sprintf("SET LOCAL statement_timeout = %d", opts.StatementTimeout.Milliseconds())); err != nil {
			return classify(err)
		}
	}

	return fn(ctx, newUnitOfWork(tx))
}

type unitOfWork struct {
	tx           *sql.Tx
	rooms        repository.RoomRepository
	reservations repository.ReservationRepository
	sequences    repository.SequenceRepository
	guests       repository.GuestRepository
	slots        repository.SlotRepository
	audit        repository.AuditRepository
}

func newUnitOfWork(tx *sql.Tx) *unitOfWork {
	return &unitOfWork{
		tx:           tx,
		rooms:        NewRoomRepository(tx),
		reservations: NewReservationRepository(tx),
		sequences:    NewSequenceRepository(tx),
		guests:       NewGuestRepository(tx),
		slots:        NewSlotRepository(tx),
		audit:        NewAuditRepository(tx),
	}
}

func (u *unitOfWork) Rooms() repository.RoomRepository               { return u.rooms }
func (u *unitOfWork) Reservations() repository.ReservationRepository { return u.reservations }
func (u *unitOfWork) Sequences() repository.SequenceRepository       { return u.sequences }
func (u *unitOfWork) Guests() repository.GuestRepository             { return u.guests }
func (u *unitOfWork) Slots() repository.SlotRepository               { return u.slots }
func (u *unitOfWork) Audit() repository.AuditRepository              { return u.audit }

func (u *unitOfWork) Savepoint(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "SAVEPOINT "+quoteIdent(name))
	return classify(err)
}

func (u *unitOfWork) RollbackTo(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "ROLLBACK TO SAVEPOINT "+quoteIdent(name))
	return classify(err)
}

func (u *unitOfWork) Release(ctx context.Context, name string) error {
	_, err := u.tx.ExecContext(ctx, "RELEASE SAVEPOINT "+quoteIdent(name))
	return classify(err)
}
