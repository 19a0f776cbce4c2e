package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/vendhub/marketplace/internal/service"
	"github.com/vendhub/marketplace/pkg/web"
)

// deleteRequest is the body of a soft-delete call; the reason is optional.
type deleteRequest struct {
	Reason *string `json:"reason"`
}

// purgeRequest is the body of a hard-delete call. The reason bounds are
// enforced in the service layer, where cascades pass through them too.
type purgeRequest struct {
	Reason string `json:"reason"`
}

// ProductHandler handles HTTP requests for products.
type ProductHandler struct {
	service  service.ProductService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewProductHandler creates a new instance of ProductHandler.
func NewProductHandler(svc service.ProductService, logger *slog.Logger) *ProductHandler {
	return &ProductHandler{
		service:  svc,
		logger:   logger.With("component", "product_handler"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List handles GET /api/v1/products?offset=&limit=
func (h *ProductHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, ok := web.ParseValidateGte(r, w, h.logger, "offset", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateGt(r, w, h.logger, "limit", 0)
	if !ok {
		return
	}

	products, err := h.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, products)
}

// GetByID handles GET /api/v1/products/{id}
func (h *ProductHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}

	product, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

// GetByIDIncludeDeleted handles GET /api/v1/products/{id}/any
func (h *ProductHandler) GetByIDIncludeDeleted(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	product, err := h.service.FindByIDIncludeDeleted(r.Context(), actor.UserID, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

// Create handles POST /api/v1/products
func (h *ProductHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var dto service.ProductCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Create(r.Context(), actor.UserID, dto)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, product)
}

// Update handles PUT /api/v1/products/{id}
func (h *ProductHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var dto service.ProductUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	dto.ID = id
	if err := h.validate.Struct(dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	product, err := h.service.Update(r.Context(), actor.UserID, dto)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

// UpdateStock handles PATCH /api/v1/products/{id}/stock
func (h *ProductHandler) UpdateStock(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var body struct {
		Stock int32 `json:"stock"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	product, err := h.service.UpdateStock(r.Context(), actor.UserID, id, body.Stock)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

// Delete handles DELETE /api/v1/products/{id} (soft delete).
func (h *ProductHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Restore handles POST /api/v1/products/{id}/restore
func (h *ProductHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	product, err := h.service.Restore(r.Context(), id, actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, product)
}

// Purge handles DELETE /api/v1/products/{id}/purge (hard delete).
func (h *ProductHandler) Purge(w http.ResponseWriter, r *http.Request) {
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
