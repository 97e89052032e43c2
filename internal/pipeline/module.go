// Package pipeline provides the stage pipeline engine module: acquisition and
// disposal deal tracking with ordered stages, document gates and derived
// financials.
package pipeline

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "estateflow_backend/internal/http"
	"estateflow_backend/internal/pipeline/domain"
	"estateflow_backend/internal/pipeline/handler"
	"estateflow_backend/internal/pipeline/repository"
	"estateflow_backend/internal/pipeline/service"
	"estateflow_backend/platform/events"
	"estateflow_backend/platform/logger"
	"estateflow_backend/platform/validator"
)

// Module represents the pipeline domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new pipeline module with all dependencies wired. The
// promoter is implemented by the properties module and applies portfolio side
// effects when a pipeline completes.
func NewModule(pool *pgxpool.Pool, registry *domain.Registry, promoter service.Promoter, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, registry, promoter, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "pipelines"
}

// Service returns the service layer for external use.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	pipelines := ctx.Protected.Group("/pipelines")
	m.handler.RegisterRoutes(pipelines)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
