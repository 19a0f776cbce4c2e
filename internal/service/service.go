// Package service implements the management operations for stores, products
// and orders: optimistic-concurrency-protected updates and the soft/hard
// deletion lifecycle.
package service

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vendhub/marketplace/internal/apperrors"
)

// Hard deletion is irreversible; the justification must carry some substance.
const (
	minDeleteReasonLen = 10
	maxDeleteReasonLen = 500
)

// validateHardDeleteReason enforces the justification bounds for an
// irreversible deletion.
func validateHardDeleteReason(reason string) error {
	trimmed := strings.TrimSpace(reason)
	if len(trimmed) < minDeleteReasonLen {
		return apperrors.Validationf("hard delete reason must be at least %d characters", minDeleteReasonLen)
	}
	if len(trimmed) > maxDeleteReasonLen {
		return apperrors.Validationf("hard delete reason must be at most %d characters", maxDeleteReasonLen)
	}
	return nil
}

// cascadeReason tags a child deletion with the parent store purge that
// caused it, keeping the original justification visible in the audit trail.
func cascadeReason(storeID uuid.UUID, storeName, reason string) string {
	return fmt.Sprintf("cascade from store %s (%s): %s", storeID, storeName, strings.TrimSpace(reason))
}
