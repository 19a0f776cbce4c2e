// Package authz answers permission questions from the verified token
// claims in the request context plus store ownership in the database.
package authz

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/internal/repository"
	"github.com/vendhub/marketplace/pkg/web"
)

// ContextAuthorizer resolves the admin role from the context actor and
// store management rights from the stores table.
type ContextAuthorizer struct {
	stores repository.StoreRepository
}

func NewContextAuthorizer(stores repository.StoreRepository) *ContextAuthorizer {
	return &ContextAuthorizer{stores: stores}
}

// IsAdmin reports whether userID carries the admin role. The answer comes
// from the verified token in the context; a question about anyone other
// than the authenticated caller is answered false.
func (a *ContextAuthorizer) IsAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	actor, ok := web.ActorFromContext(ctx)
	if !ok || actor.UserID != userID {
		return false, nil
	}
	return actor.IsAdmin(), nil
}

// CanManageStore allows admins and the store's owning seller. The lookup
// includes soft-deleted stores so restore and purge flows stay authorized.
func (a *ContextAuthorizer) CanManageStore(ctx context.Context, userID, storeID uuid.UUID) (bool, error) {
	admin, err := a.IsAdmin(ctx, userID)
	if err != nil {
		return false, err
	}
	if admin {
		return true, nil
	}

	store, err := a.stores.FindByIDIncludeDeleted(ctx, storeID)
	if err != nil {
		if errors.Is(err, apperrors.ErrStoreNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to resolve store owner: %w", err)
	}
	return store.SellerID == userID, nil
}
