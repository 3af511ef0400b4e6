package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"staybook-backend/internal/repository"

	"github.com/lib/pq"
)

// PostgreSQL error codes the repositories care about.
const (
	codeUniqueViolation      = "23505"
	codeExclusionViolation   = "23P01"
	codeLockNotAvailable     = "55P03"
	codeQueryCanceled        = "57014"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// classify maps driver errors onto the repository sentinels, keeping the
// original error in the chain.
func classify(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %w", repository.ErrTimeout, err)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch string(pqErr.Code) {
		case codeUniqueViolation:
			return fmt.Errorf("%w: %s", repository.ErrDuplicate, pqErr.Constraint)
		case codeExclusionViolation:
			return fmt.Errorf("%w: %s", repository.ErrOverlap, pqErr.Constraint)
		case codeLockNotAvailable, codeQueryCanceled, codeSerializationFailure, codeDeadlockDetected:
			return fmt.Errorf("%w: %s", repository.ErrTimeout, pqErr.Message)
		}
	}
	return err
}

func quoteIdent(name string) string {
	return pq.QuoteIdentifier(name)
}
