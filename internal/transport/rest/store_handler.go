package rest

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/vendhub/marketplace/internal/service"
	"github.com/vendhub/marketplace/pkg/web"
)

// StoreHandler handles HTTP requests for stores.
type StoreHandler struct {
	service  service.StoreService
	logger   *slog.Logger
	validate *validator.Validate
}

// NewStoreHandler creates a new instance of StoreHandler.
func NewStoreHandler(svc service.StoreService, logger *slog.Logger) *StoreHandler {
	return &StoreHandler{
		service:  svc,
		logger:   logger.With("component", "store_handler"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
	}
}

// List handles GET /api/v1/stores?offset=&limit=
func (h *StoreHandler) List(w http.ResponseWriter, r *http.Request) {
	offset, ok := web.ParseValidateGte(r, w, h.logger, "offset", 0)
	if !ok {
		return
	}
	limit, ok := web.ParseValidateGt(r, w, h.logger, "limit", 0)
	if !ok {
		return
	}

	stores, err := h.service.FindAll(r.Context(), offset, limit)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, stores)
}

// GetByID handles GET /api/v1/stores/{id}
func (h *StoreHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}

	store, err := h.service.FindByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, store)
}

// GetByIDIncludeDeleted handles GET /api/v1/stores/{id}/any
func (h *StoreHandler) GetByIDIncludeDeleted(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	store, err := h.service.FindByIDIncludeDeleted(r.Context(), actor.UserID, id)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, store)
}

// Create handles POST /api/v1/stores
func (h *StoreHandler) Create(w http.ResponseWriter, r *http.Request) {
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var dto service.StoreCreateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if err := h.validate.Struct(dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	store, err := h.service.Create(r.Context(), actor.UserID, dto)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusCreated, store)
}

// Update handles PUT /api/v1/stores/{id}
func (h *StoreHandler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var dto service.StoreUpdateDto
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	dto.ID = id
	if err := h.validate.Struct(dto); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, err.Error())
		return
	}

	store, err := h.service.Update(r.Context(), actor.UserID, dto)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, store)
}

// SetActivation handles PATCH /api/v1/stores/{id}/activation
func (h *StoreHandler) SetActivation(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		web.RespondError(w, h.logger, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	store, err := h.service.SetActive(r.Context(), actor.UserID, id, body.Active)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, store)
}

// Delete handles DELETE /api/v1/stores/{id} (soft delete).
func (h *StoreHandler) Delete(w http.ResponseWriter, r *http.Request) {
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

// Restore handles POST /api/v1/stores/{id}/restore
func (h *StoreHandler) Restore(w http.ResponseWriter, r *http.Request) {
	id, ok := web.ParseID(w, r, h.logger)
	if !ok {
		return
	}
	actor, ok := web.GetActor(w, r, h.logger)
	if !ok {
		return
	}

	store, err := h.service.Restore(r.Context(), id, actor.UserID)
	if err != nil {
		respondServiceError(w, h.logger, err)
		return
	}
	web.RespondJSON(w, h.logger, http.StatusOK, store)
}

// Purge handles DELETE /api/v1/stores/{id}/purge (hard delete with cascade).
func (h *StoreHandler) Purge(w http.ResponseWriter, r *http.Request) {
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
