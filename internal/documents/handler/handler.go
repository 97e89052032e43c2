package handler

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"estateflow_backend/internal/documents/storage"
	"estateflow_backend/internal/documents/transport"
	"estateflow_backend/platform/httpkit"
	"estateflow_backend/platform/validator"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler issues presigned URLs for stage document uploads and downloads.
// The byte transfer happens directly between the client and object storage;
// the pipeline record only tracks document types.
type Handler struct {
	storageSvc storage.StorageService
	bucket     string
	val        *validator.Validator
}

func New(storageSvc storage.StorageService, bucket string, val *validator.Validator) *Handler {
	return &Handler{storageSvc: storageSvc, bucket: bucket, val: val}
}

// RegisterRoutes registers the document routes.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/presign-upload", h.PresignUpload)
	rg.POST("/presign-download", h.PresignDownload)
}

func (h *Handler) PresignUpload(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	var req transport.PresignUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	folder := fmt.Sprintf("%s/%s/%s/%s", orgID, req.PipelineID, req.StageID, req.DocumentType)
	result, err := h.storageSvc.GenerateUploadURL(c.Request.Context(), h.bucket, folder, req.FileName, req.ContentType, req.SizeBytes)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	httpkit.OK(c, result)
}

func (h *Handler) PresignDownload(c *gin.Context) {
	orgID, ok := mustGetOrgID(c)
	if !ok {
		return
	}

	var req transport.PresignDownloadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}

	// File keys are prefixed with the owning organization; refuse reads
	// across that boundary.
	if !hasOrgPrefix(req.FileKey, orgID) {
		httpkit.Error(c, http.StatusForbidden, "file key does not belong to this organization", nil)
		return
	}

	result, err := h.storageSvc.GenerateDownloadURL(c.Request.Context(), h.bucket, req.FileKey)
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, err.Error(), nil)
		return
	}

	httpkit.OK(c, result)
}

func hasOrgPrefix(fileKey string, orgID uuid.UUID) bool {
	prefix := orgID.String() + "/"
	return len(fileKey) > len(prefix) && fileKey[:len(prefix)] == prefix
}

func mustGetOrgID(c *gin.Context) (uuid.UUID, bool) {
	identity := httpkit.MustGetIdentity(c)
	if identity == nil {
		return uuid.UUID{}, false
	}
	if identity.OrganizationID() == uuid.Nil {
		httpkit.Error(c, http.StatusBadRequest, "organization ID is required", nil)
		return uuid.UUID{}, false
	}
	return identity.OrganizationID(), true
}
