package api

import (
	"time"

	"github.com/google/uuid"
	"github.com/shaiso/Flowgrid/internal/agent"
	"github.com/shaiso/Flowgrid/internal/domain"
)

// Flow DTOs

// CreateFlowRequest — запрос на создание flow.
type CreateFlowRequest struct {
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Definition  domain.FlowGraph `json:"definition"`
	Tags        []string         `json:"tags,omitempty"`
}

// UpdateFlowRequest — запрос на обновление flow.
type UpdateFlowRequest struct {
	Name        *string           `json:"name,omitempty"`
	Description *string           `json:"description,omitempty"`
	Definition  *domain.FlowGraph `json:"definition,omitempty"`
	Tags        *[]string         `json:"tags,omitempty"`
}

// FlowResponse — ответ с flow.
type FlowResponse struct {
	ID          uuid.UUID        `json:"id"`
	Name        string           `json:"name"`
	Description string           `json:"description,omitempty"`
	Definition  domain.FlowGraph `json:"definition"`
	Tags        []string         `json:"tags,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
}

// FlowFromDomain конвертирует domain.Flow в FlowResponse.
func FlowFromDomain(f domain.Flow) FlowResponse {
	return FlowResponse{
		ID:          f.ID,
		Name:        f.Name,
		Description: f.Description,
		Definition:  f.Definition,
		Tags:        f.Tags,
		CreatedAt:   f.CreatedAt,
		UpdatedAt:   f.UpdatedAt,
	}
}

// Execution DTOs

// ExecutionResponse — ответ с execution.
type ExecutionResponse struct {
	ID         uuid.UUID                  `json:"id"`
	FlowID     uuid.UUID                  `json:"flow_id"`
	Status     string                     `json:"status"`
	NodeRuns   map[string]NodeRunResponse `json:"node_runs"`
	Error      string                     `json:"error,omitempty"`
	Cancelled  bool                       `json:"cancelled,omitempty"`
	CreatedAt  time.Time                  `json:"created_at"`
	StartedAt  *time.Time                 `json:"started_at,omitempty"`
	EndedAt    *time.Time                 `json:"ended_at,omitempty"`
	DurationMs int64                      `json:"duration_ms,omitempty"`
}

// NodeRunResponse — состояние одного узла.
type NodeRunResponse struct {
	NodeID     string         `json:"node_id"`
	AgentType  string         `json:"agent_type"`
	Status     string         `json:"status"`
	Output     map[string]any `json:"output,omitempty"`
	Error      string         `json:"error,omitempty"`
	SkipReason string         `json:"skip_reason,omitempty"`
	StartedAt  *time.Time     `json:"started_at,omitempty"`
	EndedAt    *time.Time     `json:"ended_at,omitempty"`
}

// ExecutionFromDomain конвертирует domain.Execution в ExecutionResponse.
func ExecutionFromDomain(e *domain.Execution) ExecutionResponse {
	nodeRuns := make(map[string]NodeRunResponse, len(e.NodeRuns))
	for id, run := range e.NodeRuns {
		nodeRuns[id] = NodeRunResponse{
			NodeID:     run.NodeID,
			AgentType:  run.AgentType,
			Status:     string(run.Status),
			Output:     run.Output,
			Error:      run.Error,
			SkipReason: string(run.SkipReason),
			StartedAt:  run.StartedAt,
			EndedAt:    run.EndedAt,
		}
	}

	return ExecutionResponse{
		ID:         e.ID,
		FlowID:     e.FlowID,
		Status:     string(e.Status),
		NodeRuns:   nodeRuns,
		Error:      e.Error,
		Cancelled:  e.Cancelled,
		CreatedAt:  e.CreatedAt,
		StartedAt:  e.StartedAt,
		EndedAt:    e.EndedAt,
		DurationMs: e.DurationMs,
	}
}

// Event DTOs

// EventMessage — событие выполнения в wire-формате.
// Этот же формат уходит подписчикам WebSocket.
type EventMessage struct {
	Type        string         `json:"type"`
	ExecutionID uuid.UUID      `json:"execution_id"`
	Sequence    uint64         `json:"sequence"`
	NodeID      string         `json:"node_id,omitempty"`
	Status      string         `json:"status,omitempty"`
	Level       string         `json:"level,omitempty"`
	Message     string         `json:"message,omitempty"`
	Payload     map[string]any `json:"payload,omitempty"`
	Timestamp   time.Time      `json:"timestamp"`
}

// EventFromDomain конвертирует domain.Event в EventMessage.
func EventFromDomain(ev *domain.Event) EventMessage {
	return EventMessage{
		Type:        string(ev.Kind),
		ExecutionID: ev.ExecutionID,
		Sequence:    ev.Sequence,
		NodeID:      ev.NodeID,
		Status:      ev.Status,
		Level:       ev.Level,
		Message:     ev.Message,
		Payload:     ev.Payload,
		Timestamp:   ev.Timestamp,
	}
}

// Agent DTOs

// AgentResponse — описание доступного агента.
type AgentResponse struct {
	Type         string         `json:"type"`
	Description  string         `json:"description,omitempty"`
	ConfigSchema map[string]any `json:"config_schema,omitempty"`
}

// AgentFromInfo конвертирует agent.Info в AgentResponse.
func AgentFromInfo(info agent.Info) AgentResponse {
	return AgentResponse{
		Type:         info.Type,
		Description:  info.Description,
		ConfigSchema: info.ConfigSchema,
	}
}

// Schedule DTOs

// CreateScheduleRequest — запрос на создание schedule.
type CreateScheduleRequest struct {
	Name        string `json:"name"`
	CronExpr    string `json:"cron_expr,omitempty"`
	IntervalSec int    `json:"interval_sec,omitempty"`
	Timezone    string `json:"timezone,omitempty"`
	Enabled     bool   `json:"enabled"`
}

// UpdateScheduleRequest — запрос на обновление schedule.
type UpdateScheduleRequest struct {
	Name        *string `json:"name,omitempty"`
	CronExpr    *string `json:"cron_expr,omitempty"`
	IntervalSec *int    `json:"interval_sec,omitempty"`
	Timezone    *string `json:"timezone,omitempty"`
}

// SetEnabledRequest — запрос на включение/выключение.
type SetEnabledRequest struct {
	Enabled bool `json:"enabled"`
}

// ScheduleResponse — ответ с schedule.
type ScheduleResponse struct {
	ID              uuid.UUID  `json:"id"`
	FlowID          uuid.UUID  `json:"flow_id"`
	Name            string     `json:"name"`
	CronExpr        string     `json:"cron_expr,omitempty"`
	IntervalSec     int        `json:"interval_sec,omitempty"`
	Timezone        string     `json:"timezone"`
	Enabled         bool       `json:"enabled"`
	NextDueAt       *time.Time `json:"next_due_at,omitempty"`
	LastRunAt       *time.Time `json:"last_run_at,omitempty"`
	LastExecutionID *uuid.UUID `json:"last_execution_id,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// ScheduleFromDomain конвертирует domain.Schedule в ScheduleResponse.
func ScheduleFromDomain(s *domain.Schedule) ScheduleResponse {
	if s == nil {
		return ScheduleResponse{}
	}
	return ScheduleResponse{
		ID:              s.ID,
		FlowID:          s.FlowID,
		Name:            s.Name,
		CronExpr:        s.CronExpr,
		IntervalSec:     s.IntervalSec,
		Timezone:        s.Timezone,
		Enabled:         s.Enabled,
		NextDueAt:       s.NextDueAt,
		LastRunAt:       s.LastRunAt,
		LastExecutionID: s.LastExecutionID,
		CreatedAt:       s.CreatedAt,
		UpdatedAt:       s.UpdatedAt,
	}
}

// Validation DTOs

// ValidateFlowRequest — запрос на проверку графа без запуска.
type ValidateFlowRequest struct {
	Definition domain.FlowGraph `json:"definition"`
}
