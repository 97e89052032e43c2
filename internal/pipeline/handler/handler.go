package handler

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estateflow_backend/internal/pipeline/service"
	"estateflow_backend/internal/pipeline/transport"
	"estateflow_backend/platform/httpkit"
	"estateflow_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler handles HTTP requests for pipeline records.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the pipeline routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/stages/:direction", h.StageRegistry)
	rg.GET("/:id", h.GetByID)
	rg.PATCH("/:id/stages/:stageId", h.Transition)
	rg.POST("/:id/stages/:stageId/documents", h.AttachDocument)
	rg.PUT("/:id/financials", h.UpdateFinancials)
	rg.POST("/:id/cancel", h.Cancel)
	rg.POST("/:id/reinstate", h.Reinstate)
	rg.POST("/:id/archive", h.Archive)
}

func (h *Handler) Create(c *gin.Context) {
	orgID, actorID, ok := mustGetScope(c)
	if !ok {
		return
	}

	var req transport.CreatePipelineRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Create(c.Request.Context(), orgID, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.Created(c, result)
}

func (h *Handler) List(c *gin.Context) {
	orgID, _, ok := mustGetScope(c)
	if !ok {
		return
	}

	var req transport.ListPipelinesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.List(c.Request.Context(), orgID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) GetByID(c *gin.Context) {
	orgID, _, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Get(c.Request.Context(), orgID, id)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Transition(c *gin.Context) {
	orgID, actorID, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	stageID := strings.TrimSpace(c.Param("stageId"))

	var req transport.TransitionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.Transition(c.Request.Context(), orgID, id, stageID, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) AttachDocument(c *gin.Context) {
	orgID, actorID, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	stageID := strings.TrimSpace(c.Param("stageId"))

	var req transport.AttachDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.AttachDocument(c.Request.Context(), orgID, id, stageID, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) UpdateFinancials(c *gin.Context) {
	orgID, actorID, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	var req transport.FinancialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	result, err := h.svc.UpdateFinancials(c.Request.Context(), orgID, id, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Cancel(c *gin.Context) {
	orgID, actorID, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	// Reason is optional; an empty body is a valid cancel.
	var req transport.CancelPipelineRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
			return
		}
		if err := h.val.Struct(req); err != nil {
			httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
			return
		}
	}

	result, err := h.svc.Cancel(c.Request.Context(), orgID, id, actorID, req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Reinstate(c *gin.Context) {
	orgID, actorID, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	result, err := h.svc.Reinstate(c.Request.Context(), orgID, id, actorID)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) Archive(c *gin.Context) {
	orgID, _, ok := mustGetScope(c)
	if !ok {
		return
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}

	if err := h.svc.Archive(c.Request.Context(), orgID, id); httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, gin.H{"status": "archived"})
}

func (h *Handler) StageRegistry(c *gin.Context) {
	direction := strings.ToUpper(strings.TrimSpace(c.Param("direction")))

	result, err := h.svc.StageRegistry(direction)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, result)
}

func mustGetScope(c *gin.Context) (orgID, userID uuid.UUID, ok bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, uuid.UUID{}, false
	}
	if identity.OrganizationID() == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, uuid.UUID{}, false
	}
	return identity.OrganizationID(), identity.UserID(), true
}
