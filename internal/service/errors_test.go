package service

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
)

func TestClassifyTxError(t *testing.T) {
	room := &domain.Room{ID: "r2", Label: "102"}

	tests := []struct {
		name      string
		err       error
		wantKind  ErrorKind
		retryable bool
	}{
		{"booking error passes through", fmt.Errorf("wrapped: %w", dateConflict(room)), ErrKindDateConflict, false},
		{"repository timeout", fmt.Errorf("lock room: %w", repository.ErrTimeout), ErrKindTransactionTimeout, true},
		{"deadline exceeded", context.DeadlineExceeded, ErrKindTransactionTimeout, true},
		{"anything else", errors.New("pq: relation does not exist"), ErrKindInternal, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			be := classifyTxError(tt.err)
			assert.Equal(t, tt.wantKind, be.Kind)
			assert.Equal(t, tt.retryable, be.Retryable())
		})
	}
}

func TestBookingError_HidesInternalCause(t *testing.T) {
	cause := errors.New("pq: password authentication failed")
	be := internalError(cause)
	assert.Equal(t, internalMessage, be.Error())
	assert.ErrorIs(t, be, cause)
	assert.Equal(t, ErrKindInternal, KindOf(errors.New("plain")))
}
