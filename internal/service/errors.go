package service

import (
	"context"
	"errors"
	"fmt"

	"staybook-backend/internal/domain"
	"staybook-backend/internal/repository"
	"staybook-backend/internal/utils"
)

type ErrorKind string

const (
	ErrKindValidation          ErrorKind = "VALIDATION"
	ErrKindDate                ErrorKind = "DATE"
	ErrKindResourceNotFound    ErrorKind = "RESOURCE_NOT_FOUND"
	ErrKindResourceUnavailable ErrorKind = "RESOURCE_UNAVAILABLE"
	ErrKindDateConflict        ErrorKind = "DATE_CONFLICT"
	ErrKindTransactionTimeout  ErrorKind = "TRANSACTION_TIMEOUT"
	ErrKindNotFound            ErrorKind = "NOT_FOUND"
	ErrKindInvalidTransition   ErrorKind = "INVALID_TRANSITION"
	ErrKindInternal            ErrorKind = "INTERNAL"
)

const internalMessage = "an unexpected error occurred, please try again later"

// BookingError is the typed rejection returned by the booking services.
// ResourceID and ResourceLabel identify the room that caused a batch to fail.
type BookingError struct {
	Kind          ErrorKind
	ResourceID    string
	ResourceLabel string
	Message       string
	Err           error
}

func (e *BookingError) Error() string {
	if e.Err != nil && e.Kind != ErrKindInternal {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *BookingError) Unwrap() error {
	return e.Err
}

// Retryable reports whether resubmitting the same request may succeed.
func (e *BookingError) Retryable() bool {
	return e.Kind == ErrKindTransactionTimeout
}

// KindOf returns the kind of a BookingError in err's chain, or
// ErrKindInternal for anything else.
func KindOf(err error) ErrorKind {
	var be *BookingError
	if errors.As(err, &be) {
		return be.Kind
	}
	return ErrKindInternal
}

func validationError(format string, args ...any) *BookingError {
	return &BookingError{Kind: ErrKindValidation, Message: fmt.Sprintf(format, args...)}
}

func dateError(err error) *BookingError {
	var de *utils.DateError
	if errors.As(err, &de) {
		return &BookingError{Kind: ErrKindDate, Message: de.Message}
	}
	return &BookingError{Kind: ErrKindDate, Message: err.Error()}
}

func resourceNotFound(roomID string) *BookingError {
	return &BookingError{
		Kind:       ErrKindResourceNotFound,
		ResourceID: roomID,
		Message:    fmt.Sprintf("room %s does not exist", roomID),
	}
}

func resourceUnavailable(room *domain.Room) *BookingError {
	return &BookingError{
		Kind:          ErrKindResourceUnavailable,
		ResourceID:    room.ID,
		ResourceLabel: room.Label,
		Message:       fmt.Sprintf("Room %s is out of service", room.Label),
	}
}

func dateConflict(room *domain.Room) *BookingError {
	return &BookingError{
		Kind:          ErrKindDateConflict,
		ResourceID:    room.ID,
		ResourceLabel: room.Label,
		Message:       fmt.Sprintf("Room %s is already booked for the selected dates", room.Label),
	}
}

func reservationNotFound(ref string) *BookingError {
	return &BookingError{Kind: ErrKindNotFound, Message: fmt.Sprintf("reservation %s not found", ref)}
}

func invalidTransition(res *domain.Reservation, action string) *BookingError {
	return &BookingError{
		Kind:    ErrKindInvalidTransition,
		Message: fmt.Sprintf("cannot %s reservation %s in status %s", action, res.ReservationNumber, res.Status),
	}
}

func internalError(err error) *BookingError {
	return &BookingError{Kind: ErrKindInternal, Message: internalMessage, Err: err}
}

// classifyTxError turns whatever escaped a unit of work into a BookingError.
func classifyTxError(err error) *BookingError {
	var be *BookingError
	if errors.As(err, &be) {
		return be
	}
	if errors.Is(err, repository.ErrTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return &BookingError{
			Kind:    ErrKindTransactionTimeout,
			Message: "the booking could not be completed in time, please retry",
			Err:     err,
		}
	}
	return internalError(err)
}
