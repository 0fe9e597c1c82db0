package api

import (
	"log/slog"

	"github.com/shaiso/Flowgrid/internal/agent"
	"github.com/shaiso/Flowgrid/internal/engine"
	"github.com/shaiso/Flowgrid/internal/hub"
	"github.com/shaiso/Flowgrid/internal/repo"
)

// Handler — главный обработчик API с зависимостями.
type Handler struct {
	flowRepo      *repo.FlowRepo
	executionRepo *repo.ExecutionRepo
	scheduleRepo  *repo.ScheduleRepo
	registry      *agent.Registry
	engine        *engine.Engine
	hub           *hub.Hub
	logger        *slog.Logger
}

// Config — конфигурация для создания Handler.
type Config struct {
	FlowRepo      *repo.FlowRepo
	ExecutionRepo *repo.ExecutionRepo
	ScheduleRepo  *repo.ScheduleRepo
	Registry      *agent.Registry
	Engine        *engine.Engine
	Hub           *hub.Hub
	Logger        *slog.Logger
}

// NewHandler создаёт новый Handler.
func NewHandler(cfg Config) *Handler {
	return &Handler{
		flowRepo:      cfg.FlowRepo,
		executionRepo: cfg.ExecutionRepo,
		scheduleRepo:  cfg.ScheduleRepo,
		registry:      cfg.Registry,
		engine:        cfg.Engine,
		hub:           cfg.Hub,
		logger:        cfg.Logger,
	}
}
