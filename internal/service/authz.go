package service

import (
	"context"

	"github.com/google/uuid"
)

// Authorizer answers privilege questions for the management services. The
// identity subsystem behind it is external; implementations live in
// internal/authz.
type Authorizer interface {
	// IsAdmin reports whether the user holds administrator privileges.
	IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error)

	// CanManageStore reports whether the user may manage the store and its
	// products: the owning seller or an administrator.
	CanManageStore(ctx context.Context, userID, storeID uuid.UUID) (bool, error)
}
