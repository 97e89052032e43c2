package transport

import (
	"time"

	"github.com/google/uuid"

	"estateflow_backend/internal/properties/repository"
)

// UpdatePropertyRequest edits the descriptive fields of a portfolio property.
type UpdatePropertyRequest struct {
	Name    *string `json:"name" validate:"omitempty,max=200"`
	Address *string `json:"address" validate:"omitempty,max=500"`
}

// ListPropertiesRequest defines the query parameters for listing properties.
type ListPropertiesRequest struct {
	Status   string `form:"status" validate:"omitempty,oneof=active transferred"`
	Page     int    `form:"page" validate:"omitempty,min=1"`
	PageSize int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// PropertyResponse is the wire representation of a portfolio property.
type PropertyResponse struct {
	ID                    uuid.UUID  `json:"id"`
	AssetReference        string     `json:"assetReference"`
	Name                  string     `json:"name,omitempty"`
	Address               string     `json:"address,omitempty"`
	Status                string     `json:"status"`
	CostBasisCents        *int64     `json:"costBasisCents,omitempty"`
	SaleAmountCents       *int64     `json:"saleAmountCents,omitempty"`
	AcquisitionPipelineID *uuid.UUID `json:"acquisitionPipelineId,omitempty"`
	DisposalPipelineID    *uuid.UUID `json:"disposalPipelineId,omitempty"`
	AcquiredAt            *time.Time `json:"acquiredAt,omitempty"`
	TransferredAt         *time.Time `json:"transferredAt,omitempty"`
	CreatedAt             time.Time  `json:"createdAt"`
	UpdatedAt             time.Time  `json:"updatedAt"`
}

// PropertyListResponse is a paginated listing.
type PropertyListResponse struct {
	Items    []PropertyResponse `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

func ToPropertyResponse(p repository.Property) PropertyResponse {
	return PropertyResponse{
		ID:                    p.ID,
		AssetReference:        p.AssetReference,
		Name:                  p.Name,
		Address:               p.Address,
		Status:                p.Status,
		CostBasisCents:        p.CostBasisCents,
		SaleAmountCents:       p.SaleAmountCents,
		AcquisitionPipelineID: p.AcquisitionPipelineID,
		DisposalPipelineID:    p.DisposalPipelineID,
		AcquiredAt:            p.AcquiredAt,
		TransferredAt:         p.TransferredAt,
		CreatedAt:             p.CreatedAt,
		UpdatedAt:             p.UpdatedAt,
	}
}
