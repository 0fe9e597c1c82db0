package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/domain"
	"github.com/shaiso/Flowgrid/internal/engine"
	"github.com/shaiso/Flowgrid/internal/repo"
)

// StartExecution запускает выполнение flow.
// POST /api/v1/flows/{id}/executions
//
// Граф валидируется целиком; список ошибок уходит клиенту одним
// ответом. Успешный ответ несёт execution в статусе RUNNING —
// дальше за ним наблюдают через WebSocket или GET.
func (h *Handler) StartExecution(w http.ResponseWriter, r *http.Request) {
	flowID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid flow id")
		return
	}

	flow, err := h.flowRepo.GetByID(r.Context(), flowID)
	if HandleRepoError(w, h.logger, err, "flow not found") {
		return
	}

	exec, err := h.engine.Start(r.Context(), flow.ID, &flow.Definition)
	if HandleEngineError(w, h.logger, err) {
		return
	}

	Created(w, ExecutionFromDomain(exec))
}

// GetExecution возвращает execution по ID.
// GET /api/v1/executions/{id}
//
// Выполняющийся execution отдаётся из памяти engine, завершённый —
// из истории.
func (h *Handler) GetExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	if exec, err := h.engine.Snapshot(id); err == nil {
		Success(w, ExecutionFromDomain(exec))
		return
	}

	exec, err := h.executionRepo.GetByID(r.Context(), id)
	if HandleRepoError(w, h.logger, err, "execution not found") {
		return
	}

	Success(w, ExecutionFromDomain(exec))
}

// ListExecutions возвращает страницу истории executions.
// GET /api/v1/executions?flow_id=...&status=...&limit=...&offset=...
func (h *Handler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	filter := repo.ExecutionFilter{Limit: 20}

	if flowIDStr := r.URL.Query().Get("flow_id"); flowIDStr != "" {
		flowID, err := uuid.Parse(flowIDStr)
		if err != nil {
			BadRequest(w, "invalid flow_id")
			return
		}
		filter.FlowID = &flowID
	}

	if status := r.URL.Query().Get("status"); status != "" {
		filter.Status = domain.ExecutionStatus(status)
	}

	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit <= 0 {
			BadRequest(w, "invalid limit")
			return
		}
		filter.Limit = limit
	}

	if offsetStr := r.URL.Query().Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			BadRequest(w, "invalid offset")
			return
		}
		filter.Offset = offset
	}

	executions, total, err := h.executionRepo.List(r.Context(), filter)
	if HandleRepoError(w, h.logger, err, "") {
		return
	}

	result := make([]ExecutionResponse, len(executions))
	for i := range executions {
		result[i] = ExecutionFromDomain(&executions[i])
	}

	List(w, result, total)
}

// CancelExecution отменяет выполняющийся execution.
// POST /api/v1/executions/{id}/cancel
func (h *Handler) CancelExecution(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		BadRequest(w, "invalid execution id")
		return
	}

	if err := h.engine.Cancel(id); err != nil {
		// Завершённый execution не активен в engine: отмена
		// невозможна, но ресурс существует в истории.
		if errors.Is(err, engine.ErrExecutionNotFound) {
			if _, repoErr := h.executionRepo.GetByID(r.Context(), id); repoErr == nil {
				InvalidState(w, "execution is already finished")
				return
			}
		}
		HandleEngineError(w, h.logger, err)
		return
	}

	exec, err := h.engine.Snapshot(id)
	if err != nil {
		// Успели завершиться между Cancel и Snapshot.
		NoContent(w)
		return
	}

	Success(w, ExecutionFromDomain(exec))
}

// ListAgents возвращает каталог доступных агентов.
// GET /api/v1/agents
func (h *Handler) ListAgents(w http.ResponseWriter, r *http.Request) {
	infos := h.registry.Infos()

	result := make([]AgentResponse, len(infos))
	for i, info := range infos {
		result[i] = AgentFromInfo(info)
	}

	List(w, result, len(result))
}
