package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/domain"
	"github.com/shaiso/Flowgrid/internal/engine"
)

// ListFlows возвращает список всех flows.
// GET /api/v1/flows
func (h *Handler) ListFlows(w http.ResponseWriter, r *http.Request) {
	flows, err := h.flowRepo.List(r.Context())
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]FlowResponse, len(flows))
	for i, f := range flows {
		result[i] = FlowFromDomain(f)
	}

	List(w, result, len(result))
}

// CreateFlow создаёт новый flow.
// POST /api/v1/flows
func (h *Handler) CreateFlow(w http.ResponseWriter, r *http.Request) {
	var req CreateFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	if req.Name == "" {
		BadRequest(w, "name is required")
		return
	}

	now := time.Now().UTC()
	flow := &domain.Flow{
		ID:          uuid.New(),
		Name:        req.Name,
		Description: req.Description,
		Definition:  req.Definition,
		Tags:        req.Tags,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	if err := h.flowRepo.Create(r.Context(), flow); err != nil {
		InternalError(w, h.logger, err)
		return
	}

	Created(w, FlowFromDomain(*flow))
}

// ValidateFlow проверяет граф без запуска.
// POST /api/v1/flows/validate
//
// Возвращает полный список проблем: ошибки блокируют запуск,
// предупреждения — нет. Редактор показывает их разом.
func (h *Handler) ValidateFlow(w http.ResponseWriter, r *http.Request) {
	var req ValidateFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	result := engine.Validate(&req.Definition)
	Success(w, result)
}

// GetFlow возвращает flow по ID.
// GET /api/v1/flows/{id}
func (h *Handler) GetFlow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid flow id")
		return
	}

	flow, err := h.flowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "flow not found") {
		return
	}

	Success(w, FlowFromDomain(*flow))
}

// UpdateFlow обновляет flow.
// PUT /api/v1/flows/{id}
func (h *Handler) UpdateFlow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid flow id")
		return
	}

	var req UpdateFlowRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		BadRequest(w, "invalid request body")
		return
	}

	flow, err := h.flowRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "flow not found") {
		return
	}

	if req.Name != nil {
		flow.Name = *req.Name
	}
	if req.Description != nil {
		flow.Description = *req.Description
	}
	if req.Definition != nil {
		flow.Definition = *req.Definition
	}
	if req.Tags != nil {
		flow.Tags = *req.Tags
	}
	flow.UpdatedAt = time.Now().UTC()

	if err := h.flowRepo.Update(r.Context(), flow); err != nil {
		if HandleRepoError(w, h.logger, err, "flow not found") {
			return
		}
	}

	Success(w, FlowFromDomain(*flow))
}

// DeleteFlow удаляет flow.
// DELETE /api/v1/flows/{id}
func (h *Handler) DeleteFlow(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid flow id")
		return
	}

	if err := h.flowRepo.Delete(r.Context(), id); err != nil {
		if HandleRepoError(w, h.logger, err, "flow not found") {
			return
		}
	}

	NoContent(w)
}
