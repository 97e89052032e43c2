// Package properties provides the portfolio module: the properties produced
// by completed acquisition pipelines and consumed by disposals.
package properties

import (
	"github.com/jackc/pgx/v5/pgxpool"

	apphttp "estateflow_backend/internal/http"
	"estateflow_backend/internal/properties/handler"
	"estateflow_backend/internal/properties/repository"
	"estateflow_backend/internal/properties/service"
	"estateflow_backend/platform/events"
	"estateflow_backend/platform/logger"
	"estateflow_backend/platform/validator"
)

// Module represents the properties domain module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule creates a new properties module with all dependencies wired.
func NewModule(pool *pgxpool.Pool, eventBus *events.InMemoryBus, val *validator.Validator, log *logger.Logger) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "properties"
}

// Service returns the service layer; the pipeline module uses it as the
// promotion target for completed pipelines.
func (m *Module) Service() *service.Service {
	return m.service
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	properties := ctx.Protected.Group("/properties")
	m.handler.RegisterRoutes(properties)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
