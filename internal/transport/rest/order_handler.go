package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vendhub/marketplace/internal/service"
	"github.com/vendhub/marketplace/pkg/web"
)

// OrderHandler handles HTTP requests for orders.
type OrderHandler struct {
	service  service.OrderService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewOrderHandler creates a new instance of OrderHandler.
func NewOrderHandler(svc service.OrderService, logger *slog.Logger) *OrderHandler {
	return &OrderHandler{
		service:  svc,
		logger:   logger.With("component", "order_handler"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// Create handles POST /api/v1/orders
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var dto service.OrderCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	order, err := h.service.Create(r.Context(), actor.UserID, dto)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, order)
}

// GetByID handles GET /api/v1/orders/{id}
func (h *OrderHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.FindByID(r.Context(), actor.UserID, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, order)
}

// ListByUser handles GET /api/v1/orders?user_id=&offset=&limit=
func (h *OrderHandler) ListByUser(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	userID := actor.UserID
	if raw := r.URL.Query().Get("user_id"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid user_id")
			return
		}
		userID = parsed
	}
	offset, ok := web.ParseValidateGte(r, w, h.logger, "offset", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateGt(r, w, h.logger, "limit", 0)
	if !ok {
		return
	}

	orders, err := h.service.FindOrdersByUserID(r.Context(), actor.UserID, userID, offset, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, orders)
}

// Delete handles DELETE /api/v1/orders/{id} (soft delete).
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var body deleteRequest
	if r.Body != nil && r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
			return
		}
	}

	if err := h.service.SoftDelete(r.Context(), id, actor.UserID, body.Reason); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusNoContent, nil)
}

// Restore handles POST /api/v1/orders/{id}/restore
func (h *OrderHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	order, err := h.service.Restore(r.Context(), id, actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, order)
}

// Purge handles DELETE /api/v1/orders/{id}/purge (hard delete).
func (h *OrderHandler) Purge(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var body purgeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.service.HardDelete(r.Context(), id, actor.UserID, body.Reason); err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusNoContent, nil)
}
