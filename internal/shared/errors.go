package shared

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

var (
	// ErrNotFound indicates resource not found.
	ErrNotFound = errors.New("not found")
	// ErrValidation indicates malformed or out-of-range input.
	ErrValidation = errors.New("validation failed")
	// ErrConflict indicates a concurrent writer beat the current attempt;
	// the settlement should be retried from the read step.
	ErrConflict = errors.New("concurrent update conflict")
	// ErrStoreUnavailable indicates the backing store is unreachable or failing.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicateSubmission indicates an idempotency key was already processed.
	ErrDuplicateSubmission = errors.New("submission already processed")
)

const (
	pgUniqueViolation      = "23505"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
)

// MapStoreError folds postgres failure codes into the shared taxonomy.
// Unique violations and serialization failures both mean "someone else won";
// anything unrecognised passes through untouched.
func MapStoreError(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgUniqueViolation, pgSerializationFailure, pgDeadlockDetected:
			return errors.Join(ErrConflict, err)
		}
	}
	return err
}

// IsRetryable reports whether the settlement should be re-run from the read step.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict)
}

// UserSafeMessage maps internal errors to messages safe to surface at the till.
func UserSafeMessage(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrNotFound):
		return "Record not found"
	case errors.Is(err, ErrValidation):
		return "Invalid input"
	case errors.Is(err, ErrConflict):
		return "The record was changed by another terminal, please retry"
	case errors.Is(err, ErrDuplicateSubmission):
		return "This order was already submitted"
	case errors.Is(err, ErrStoreUnavailable):
		return "The store is temporarily unavailable"
	default:
		return "Something went wrong"
	}
}
