package repository

import (
	"context"

	"github.com/google/uuid"

	"estateflow_backend/internal/pipeline/domain"
)

// RecordReader provides read-only access to pipeline records.
type RecordReader interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (*domain.PipelineRecord, error)
	List(ctx context.Context, params ListParams) ([]*domain.PipelineRecord, int, error)
	GetActiveByAsset(ctx context.Context, organizationID uuid.UUID, direction domain.Direction, assetReference string) (*domain.PipelineRecord, error)
}

// RecordWriter persists pipeline records. Save enforces optimistic
// concurrency: the write only lands when the stored revision still equals
// record.Revision, and the stored revision is bumped on success.
type RecordWriter interface {
	Create(ctx context.Context, record *domain.PipelineRecord) error
	Save(ctx context.Context, record *domain.PipelineRecord) (*domain.PipelineRecord, error)
	Archive(ctx context.Context, organizationID, id uuid.UUID) error
}

// RecordStore combines read and write access.
type RecordStore interface {
	RecordReader
	RecordWriter
}
