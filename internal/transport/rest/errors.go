// Package rest exposes the store, product and order services over HTTP.
package rest

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/vendhub/marketplace/internal/apperrors"
	"github.com/vendhub/marketplace/pkg/web"
)

// respondServiceError maps service errors onto HTTP statuses. Conflicts
// cover both lifecycle-state mismatches and the terminal optimistic-lock
// failure surfaced after the retry budget is exhausted.
func respondServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	var blocked *apperrors.BlockingReferenceError

	switch {
	case errors.Is(err, apperrors.ErrProductNotFound),
		errors.Is(err, apperrors.ErrStoreNotFound),
		errors.Is(err, apperrors.ErrOrderNotFound):
		web.RespondError(w, logger, http.StatusNotFound, err.Error())

	case errors.Is(err, apperrors.ErrValidation):
		web.RespondError(w, logger, http.StatusBadRequest, err.Error())

	case errors.Is(err, apperrors.ErrAccessDenied),
		errors.Is(err, apperrors.ErrAdminRequired):
		web.RespondError(w, logger, http.StatusForbidden, err.Error())

	case errors.As(err, &blocked):
		web.RespondError(w, logger, http.StatusConflict, blocked.Error())

	case errors.Is(err, apperrors.ErrAlreadyDeleted),
		errors.Is(err, apperrors.ErrNotDeleted),
		errors.Is(err, apperrors.ErrInsufficientStock),
		errors.Is(err, apperrors.ErrOptimisticLock):
		web.RespondError(w, logger, http.StatusConflict, err.Error())

	default:
		logger.Error("Unhandled service error", "error", err)
		web.RespondError(w, logger, http.StatusInternalServerError, "Internal server error")
	}
}
