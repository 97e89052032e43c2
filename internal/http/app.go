package http

import (
	"context"

	"estateflow_backend/internal/events"
	"estateflow_backend/platform/config"
	"estateflow_backend/platform/logger"
)

// RouterConfig is the slice of configuration the router needs.
type RouterConfig interface {
	config.HTTPConfig
	config.JWTConfig
}

// HealthChecker answers readiness probes, typically with a database ping.
type HealthChecker interface {
	Ping(ctx context.Context) error
}

// App carries the wired dependencies from the composition root into the
// router. Modules mount their own routes; App itself holds no behavior.
type App struct {
	Config   RouterConfig
	Logger   *logger.Logger
	Health   HealthChecker
	EventBus events.Bus
	Modules  []Module
}
