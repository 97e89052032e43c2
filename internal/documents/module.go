// Package documents provides presigned upload/download URLs for stage
// documents stored in S3-compatible object storage.
package documents

import (
	"estateflow_backend/internal/documents/handler"
	"estateflow_backend/internal/documents/storage"
	apphttp "estateflow_backend/internal/http"
	"estateflow_backend/platform/validator"
)

// Module represents the documents domain module.
type Module struct {
	handler *handler.Handler
}

// NewModule creates a new documents module.
func NewModule(storageSvc storage.StorageService, bucket string, val *validator.Validator) *Module {
	return &Module{
		handler: handler.New(storageSvc, bucket, val),
	}
}

// Name returns the module name for logging.
func (m *Module) Name() string {
	return "documents"
}

// RegisterRoutes registers the module's routes.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	documents := ctx.Protected.Group("/documents")
	m.handler.RegisterRoutes(documents)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
