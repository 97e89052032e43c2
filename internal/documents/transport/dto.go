package transport

import "github.com/google/uuid"

// PresignUploadRequest asks for a presigned PUT URL for one stage document.
type PresignUploadRequest struct {
	PipelineID   uuid.UUID `json:"pipelineId" validate:"required"`
	StageID      string    `json:"stageId" validate:"required,min=1,max=100"`
	DocumentType string    `json:"documentType" validate:"required,min=1,max=100"`
	FileName     string    `json:"fileName" validate:"required,min=1,max=500"`
	ContentType  string    `json:"contentType" validate:"required,min=1,max=200"`
	SizeBytes    int64     `json:"sizeBytes" validate:"required,min=1"`
}

// PresignDownloadRequest asks for a presigned GET URL for a stored file key.
type PresignDownloadRequest struct {
	FileKey string `json:"fileKey" validate:"required,min=1,max=1000"`
}
