// Package service implements the portfolio side of the pipeline engine:
// completed acquisitions activate properties, completed disposals transfer
// them out.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"estateflow_backend/internal/events"
	"estateflow_backend/internal/pipeline/domain"
	"estateflow_backend/internal/properties/repository"
	"estateflow_backend/internal/properties/transport"
	"estateflow_backend/platform/apperr"
	"estateflow_backend/platform/logger"
)

// Store is the persistence surface the service needs.
type Store interface {
	Activate(ctx context.Context, params repository.ActivateParams) (repository.Property, error)
	Transfer(ctx context.Context, params repository.TransferParams) (repository.Property, error)
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (repository.Property, error)
	GetByAsset(ctx context.Context, organizationID uuid.UUID, assetReference string) (repository.Property, error)
	List(ctx context.Context, params repository.ListParams) ([]repository.Property, int, error)
	Update(ctx context.Context, organizationID, id uuid.UUID, params repository.UpdateParams) (repository.Property, error)
}

// Service provides business logic for portfolio properties.
type Service struct {
	store    Store
	eventBus events.Bus
	log      *logger.Logger
}

func New(store Store, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{store: store, eventBus: eventBus, log: log}
}

// Promote applies the portfolio effect of a completed pipeline. Acquisitions
// activate the asset, disposals transfer it out. Both paths are idempotent
// per pipeline id so a completion retry after a revision conflict is safe.
func (s *Service) Promote(ctx context.Context, record *domain.PipelineRecord) error {
	switch record.Direction {
	case domain.DirectionAcquisition:
		return s.promoteAcquisition(ctx, record)
	case domain.DirectionDisposal:
		return s.promoteDisposal(ctx, record)
	default:
		return fmt.Errorf("promote: unknown direction %q", record.Direction)
	}
}

func (s *Service) promoteAcquisition(ctx context.Context, record *domain.PipelineRecord) error {
	property, err := s.store.Activate(ctx, repository.ActivateParams{
		OrganizationID: record.OrganizationID,
		AssetReference: record.AssetReference,
		PipelineID:     record.ID,
		CostBasisCents: acquisitionCostBasis(record.Financial),
		AcquiredAt:     record.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("activate property %q: %w", record.AssetReference, err)
	}

	s.eventBus.Publish(ctx, events.PropertyActivated{
		BaseEvent:      events.NewBaseEvent(),
		PropertyID:     property.ID,
		OrganizationID: property.OrganizationID,
		AssetReference: property.AssetReference,
		PipelineID:     record.ID,
		CostBasisCents: property.CostBasisCents,
	})
	return nil
}

func (s *Service) promoteDisposal(ctx context.Context, record *domain.PipelineRecord) error {
	property, err := s.store.Transfer(ctx, repository.TransferParams{
		OrganizationID:  record.OrganizationID,
		AssetReference:  record.AssetReference,
		PipelineID:      record.ID,
		SaleAmountCents: disposalSaleAmount(record.Financial),
		TransferredAt:   record.UpdatedAt,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("no active property %q to transfer", record.AssetReference)
	}
	if err != nil {
		return fmt.Errorf("transfer property %q: %w", record.AssetReference, err)
	}

	s.eventBus.Publish(ctx, events.PropertyTransferred{
		BaseEvent:       events.NewBaseEvent(),
		PropertyID:      property.ID,
		OrganizationID:  property.OrganizationID,
		AssetReference:  property.AssetReference,
		PipelineID:      record.ID,
		SaleAmountCents: property.SaleAmountCents,
	})
	return nil
}

// acquisitionCostBasis picks the stored figure that best represents what the
// asset cost: the full recorded cost when present, otherwise the negotiated
// or asking price.
func acquisitionCostBasis(f domain.FinancialSnapshot) *int64 {
	switch {
	case f.TotalCostCents != nil:
		return f.TotalCostCents
	case f.NegotiatedAmountCents != nil:
		return f.NegotiatedAmountCents
	default:
		return f.AskingAmountCents
	}
}

func disposalSaleAmount(f domain.FinancialSnapshot) *int64 {
	if f.NegotiatedAmountCents != nil {
		return f.NegotiatedAmountCents
	}
	return f.AskingAmountCents
}

// ActiveCostBasis reports whether the asset is currently held and, when it
// is, the cost basis recorded at acquisition. Disposal pipelines are gated
// on this and seed their cost figures from it.
func (s *Service) ActiveCostBasis(ctx context.Context, orgID uuid.UUID, assetReference string) (bool, *int64, error) {
	property, err := s.store.GetByAsset(ctx, orgID, assetReference)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil, nil
	}
	if err != nil {
		return false, nil, err
	}
	if property.Status != repository.StatusActive {
		return false, nil, nil
	}
	return true, property.CostBasisCents, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*transport.PropertyResponse, error) {
	property, err := s.store.GetByID(ctx, orgID, id)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("property not found")
	}
	if err != nil {
		return nil, err
	}
	resp := transport.ToPropertyResponse(property)
	return &resp, nil
}

func (s *Service) GetByAsset(ctx context.Context, orgID uuid.UUID, assetReference string) (*transport.PropertyResponse, error) {
	property, err := s.store.GetByAsset(ctx, orgID, assetReference)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("property not found")
	}
	if err != nil {
		return nil, err
	}
	resp := transport.ToPropertyResponse(property)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, req transport.ListPropertiesRequest) (*transport.PropertyListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 25
	}

	properties, total, err := s.store.List(ctx, repository.ListParams{
		OrganizationID: orgID,
		Status:         req.Status,
		Limit:          pageSize,
		Offset:         (page - 1) * pageSize,
	})
	if err != nil {
		return nil, err
	}

	items := make([]transport.PropertyResponse, len(properties))
	for i, property := range properties {
		items[i] = transport.ToPropertyResponse(property)
	}
	return &transport.PropertyListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

func (s *Service) Update(ctx context.Context, orgID, id uuid.UUID, req transport.UpdatePropertyRequest) (*transport.PropertyResponse, error) {
	property, err := s.store.Update(ctx, orgID, id, repository.UpdateParams{
		Name:    req.Name,
		Address: req.Address,
	})
	if errors.Is(err, repository.ErrNotFound) {
		return nil, apperr.NotFound("property not found")
	}
	if err != nil {
		return nil, err
	}
	resp := transport.ToPropertyResponse(property)
	return &resp, nil
}
