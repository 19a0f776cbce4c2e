// Package apperrors defines the error kinds shared by the lifecycle
// services. Callers discriminate with errors.Is / errors.As; the persistence
// layer maps low-level failures onto these kinds so nothing above it ever
// inspects a driver error.
package apperrors

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var ErrProductNotFound = errors.New("product not found")
var ErrStoreNotFound = errors.New("store not found")
var ErrOrderNotFound = errors.New("order not found")

// ErrAlreadyDeleted rejects soft-deleting an entity that is already
// soft-deleted. Distinct from not-found so callers can tell the two apart.
var ErrAlreadyDeleted = errors.New("entity is already deleted")

// ErrNotDeleted rejects restoring an entity that is not soft-deleted.
var ErrNotDeleted = errors.New("entity is not deleted")

// ErrOptimisticLock signals a row-version mismatch: the record was modified
// by another transaction between read and write. Retried by the coordinator.
var ErrOptimisticLock = errors.New("optimistic lock error: the record has been modified by another transaction")

var ErrValidation = errors.New("validation failed")

var ErrInsufficientStock = errors.New("insufficient stock")

var ErrAccessDenied = errors.New("access denied")
var ErrAdminRequired = errors.New("administrator privileges required")

var ErrTransactionBegin = errors.New("failed to begin transaction")
var ErrTransactionCommit = errors.New("failed to commit transaction")
var ErrTransactionRollback = errors.New("failed to rollback transaction")

// ErrDeletionBlocked is the kind wrapped by BlockingReferenceError.
var ErrDeletionBlocked = errors.New("hard deletion blocked by existing orders")

// BlockingReferenceError reports that hard deletion was refused because
// orders still reference the entity. Orders are permanent records; the
// rejection is unconditional.
type BlockingReferenceError struct {
	Entity     string
	ID         uuid.UUID
	OrderCount int64
}

func (e *BlockingReferenceError) Error() string {
	return fmt.Sprintf("%s %s cannot be hard-deleted: %d order(s) reference it", e.Entity, e.ID, e.OrderCount)
}

func (e *BlockingReferenceError) Unwrap() error { return ErrDeletionBlocked }

// Validationf wraps ErrValidation with a caller-correctable message.
func Validationf(format string, args ...any) error {
	return fmt.Errorf(format+": %w", append(args, ErrValidation)...)
}
