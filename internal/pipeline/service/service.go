// Package service implements the pipeline engine use cases: record creation,
// stage transitions, document tracking, financial updates and lifecycle
// operations. All writes go through optimistic revision checks in the store.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"estateflow_backend/internal/events"
	"estateflow_backend/internal/pipeline/domain"
	"estateflow_backend/internal/pipeline/repository"
	"estateflow_backend/internal/pipeline/transport"
	"estateflow_backend/platform/apperr"
	"estateflow_backend/platform/logger"
	"estateflow_backend/platform/phone"
)

// Promoter applies the portfolio side effect of a completed pipeline:
// activation for acquisitions, transfer for disposals. Implementations must
// be idempotent per pipeline id because a revision conflict after promotion
// leads to a retry of the whole completion.
type Promoter interface {
	Promote(ctx context.Context, record *domain.PipelineRecord) error
}

// PortfolioReader reports whether an asset is currently held and the cost
// basis recorded when it was acquired. Used to gate disposal pipelines and
// seed their cost figures.
type PortfolioReader interface {
	ActiveCostBasis(ctx context.Context, organizationID uuid.UUID, assetReference string) (held bool, costBasisCents *int64, err error)
}

// Service provides business logic for pipeline records.
type Service struct {
	store     repository.RecordStore
	registry  *domain.Registry
	promoter  Promoter
	portfolio PortfolioReader
	eventBus  events.Bus
	log       *logger.Logger
	now       func() time.Time
}

func New(store repository.RecordStore, registry *domain.Registry, promoter Promoter, eventBus events.Bus, log *logger.Logger) *Service {
	return &Service{
		store:    store,
		registry: registry,
		promoter: promoter,
		eventBus: eventBus,
		log:      log,
		now:      time.Now,
	}
}

// SetPortfolioReader injects the held-asset reader. Without it disposal
// pipelines open without the active-property gate.
func (s *Service) SetPortfolioReader(portfolio PortfolioReader) { s.portfolio = portfolio }

// Create opens a new pipeline record. At most one non-terminal pipeline may
// exist per asset and direction within an organization.
func (s *Service) Create(ctx context.Context, orgID, actorID uuid.UUID, req transport.CreatePipelineRequest) (*transport.PipelineResponse, error) {
	direction := domain.Direction(req.Direction)

	if existing, err := s.store.GetActiveByAsset(ctx, orgID, direction, req.AssetReference); err == nil && existing != nil {
		return nil, apperr.Conflict(fmt.Sprintf("asset %q already has an open %s pipeline", req.AssetReference, req.Direction))
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	var heldCostBasis *int64
	if direction == domain.DirectionDisposal && s.portfolio != nil {
		held, costBasis, err := s.portfolio.ActiveCostBasis(ctx, orgID, req.AssetReference)
		if err != nil {
			return nil, err
		}
		if !held {
			return nil, apperr.Conflict(fmt.Sprintf("asset %q is not an active property, cannot open a disposal pipeline", req.AssetReference))
		}
		heldCostBasis = costBasis
	}

	counterparty := domain.CounterpartyInfo{
		Name:    req.Counterparty.Name,
		Company: req.Counterparty.Company,
		Email:   req.Counterparty.Email,
		Phone:   normalizePhone(req.Counterparty.Phone, req.Counterparty.Country),
		Country: req.Counterparty.Country,
	}

	record, err := domain.NewPipelineRecord(s.registry, direction, orgID, req.AssetReference, counterparty, s.now().UTC())
	if err != nil {
		return nil, mapDomainErr(err)
	}

	if req.Financial != nil || heldCostBasis != nil {
		snapshot := domain.FinancialSnapshot{TotalCostCents: heldCostBasis}
		if req.Financial != nil {
			snapshot.AskingAmountCents = req.Financial.AskingAmountCents
			snapshot.NegotiatedAmountCents = req.Financial.NegotiatedAmountCents
			snapshot.DepositAmountCents = req.Financial.DepositAmountCents
			if req.Financial.TotalCostCents != nil {
				snapshot.TotalCostCents = req.Financial.TotalCostCents
			}
		}
		record.Financial = domain.RecomputeFinancials(direction, snapshot)
	}

	if err := s.store.Create(ctx, record); err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.PipelineCreated{
		BaseEvent:      events.NewBaseEvent(),
		PipelineID:     record.ID,
		OrganizationID: orgID,
		Direction:      string(record.Direction),
		AssetReference: record.AssetReference,
		CreatedBy:      actorID,
	})

	resp := transport.ToPipelineResponse(s.registry, record)
	return &resp, nil
}

func (s *Service) Get(ctx context.Context, orgID, id uuid.UUID) (*transport.PipelineResponse, error) {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	resp := transport.ToPipelineResponse(s.registry, record)
	return &resp, nil
}

func (s *Service) List(ctx context.Context, orgID uuid.UUID, req transport.ListPipelinesRequest) (*transport.PipelineListResponse, error) {
	page := req.Page
	if page < 1 {
		page = 1
	}
	pageSize := req.PageSize
	if pageSize < 1 {
		pageSize = 25
	}

	params := repository.ListParams{
		OrganizationID:  orgID,
		AssetReference:  req.AssetReference,
		IncludeArchived: req.IncludeArchived,
		Limit:           pageSize,
		Offset:          (page - 1) * pageSize,
	}
	if req.Direction != "" {
		direction := domain.Direction(req.Direction)
		params.Direction = &direction
	}
	if req.Status != "" {
		status := domain.OverallStatus(req.Status)
		params.OverallStatus = &status
	}

	records, total, err := s.store.List(ctx, params)
	if err != nil {
		return nil, err
	}

	items := make([]transport.PipelineResponse, len(records))
	for i, record := range records {
		items[i] = transport.ToPipelineResponse(s.registry, record)
	}
	return &transport.PipelineListResponse{Items: items, Total: total, Page: page, PageSize: pageSize}, nil
}

// Transition moves one stage of a pipeline to a new status. Completing the
// final stage promotes the asset in the portfolio before the record is saved,
// so a record is never COMPLETED without its promotion having succeeded.
func (s *Service) Transition(ctx context.Context, orgID, id uuid.UUID, stageID string, actorID uuid.UUID, req transport.TransitionRequest) (*transport.PipelineResponse, error) {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	previous := domain.StageNotStarted
	if state := record.StageState(stageID); state != nil {
		previous = state.Status
	}

	updated, err := domain.ApplyTransition(s.registry, record, domain.TransitionInput{
		StageID:   stageID,
		NewStatus: domain.StageStatus(req.Status),
		Notes:     req.Notes,
		ActorID:   &actorID,
	}, s.now().UTC())
	if err != nil {
		s.log.TransitionDenied(id.String(), stageID, req.Status, err)
		return nil, mapDomainErr(err)
	}

	completedNow := updated.OverallStatus == domain.OverallCompleted && record.OverallStatus != domain.OverallCompleted
	if completedNow {
		if err := s.promoter.Promote(ctx, updated); err != nil {
			s.log.PromotionEvent(id.String(), string(record.Direction), false, err.Error())
			return nil, mapDomainErr(&domain.PromotionFailedError{PipelineID: id, Err: err})
		}
		s.log.PromotionEvent(id.String(), string(record.Direction), true, "")
	}

	saved, err := s.store.Save(ctx, updated)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	s.eventBus.Publish(ctx, events.StageTransitioned{
		BaseEvent:      events.NewBaseEvent(),
		PipelineID:     saved.ID,
		OrganizationID: orgID,
		Direction:      string(saved.Direction),
		StageID:        stageID,
		OldStatus:      string(previous),
		NewStatus:      req.Status,
		ActorID:        actorID,
		Progress:       saved.OverallProgress,
	})
	if completedNow {
		s.eventBus.Publish(ctx, events.PipelineCompleted{
			BaseEvent:      events.NewBaseEvent(),
			PipelineID:     saved.ID,
			OrganizationID: orgID,
			Direction:      string(saved.Direction),
			AssetReference: saved.AssetReference,
			ActorID:        actorID,
		})
	}

	resp := transport.ToPipelineResponse(s.registry, saved)
	return &resp, nil
}

// AttachDocument records a document type against a stage. Attaching the same
// type twice is a no-op that still succeeds.
func (s *Service) AttachDocument(ctx context.Context, orgID, id uuid.UUID, stageID string, actorID uuid.UUID, req transport.AttachDocumentRequest) (*transport.PipelineResponse, error) {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	if record.IsTerminal() {
		return nil, mapDomainErr(&domain.PipelineLockedError{PipelineID: record.ID, Status: record.OverallStatus})
	}

	updated, err := domain.AttachDocument(s.registry, record, stageID, req.DocumentType)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	updated.UpdatedAt = s.now().UTC()

	saved, err := s.store.Save(ctx, updated)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	s.eventBus.Publish(ctx, events.DocumentAttached{
		BaseEvent:      events.NewBaseEvent(),
		PipelineID:     saved.ID,
		OrganizationID: orgID,
		StageID:        stageID,
		DocumentType:   req.DocumentType,
		FileKey:        req.FileKey,
		ActorID:        actorID,
	})

	resp := transport.ToPipelineResponse(s.registry, saved)
	return &resp, nil
}

// UpdateFinancials replaces the recorded money fields and recomputes the
// derived ones. A nil field clears the stored value.
func (s *Service) UpdateFinancials(ctx context.Context, orgID, id, actorID uuid.UUID, req transport.FinancialRequest) (*transport.PipelineResponse, error) {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapDomainErr(err)
	}
	if record.IsTerminal() {
		return nil, mapDomainErr(&domain.PipelineLockedError{PipelineID: record.ID, Status: record.OverallStatus})
	}

	updated := record.Clone()
	updated.Financial = domain.RecomputeFinancials(updated.Direction, domain.FinancialSnapshot{
		AskingAmountCents:     req.AskingAmountCents,
		NegotiatedAmountCents: req.NegotiatedAmountCents,
		DepositAmountCents:    req.DepositAmountCents,
		TotalCostCents:        req.TotalCostCents,
	})
	updated.UpdatedAt = s.now().UTC()

	saved, err := s.store.Save(ctx, updated)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	s.eventBus.Publish(ctx, events.FinancialsUpdated{
		BaseEvent:      events.NewBaseEvent(),
		PipelineID:     saved.ID,
		OrganizationID: orgID,
		Direction:      string(saved.Direction),
		ActorID:        actorID,
	})

	resp := transport.ToPipelineResponse(s.registry, saved)
	return &resp, nil
}

// Cancel marks a pipeline CANCELLED. Cancelling a record that is already
// terminal never errors and changes nothing.
func (s *Service) Cancel(ctx context.Context, orgID, id, actorID uuid.UUID, req transport.CancelPipelineRequest) (*transport.PipelineResponse, error) {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	cancelled := domain.Cancel(record, req.Reason, s.now().UTC())
	if cancelled == record {
		resp := transport.ToPipelineResponse(s.registry, record)
		return &resp, nil
	}

	saved, err := s.store.Save(ctx, cancelled)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	s.eventBus.Publish(ctx, events.PipelineCancelled{
		BaseEvent:      events.NewBaseEvent(),
		PipelineID:     saved.ID,
		OrganizationID: orgID,
		Direction:      string(saved.Direction),
		AssetReference: saved.AssetReference,
		Reason:         req.Reason,
		ActorID:        actorID,
	})

	resp := transport.ToPipelineResponse(s.registry, saved)
	return &resp, nil
}

// Reinstate reopens a cancelled pipeline with its stage states intact.
func (s *Service) Reinstate(ctx context.Context, orgID, id, actorID uuid.UUID) (*transport.PipelineResponse, error) {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	reinstated, err := domain.Reinstate(s.registry, record, s.now().UTC())
	if err != nil {
		return nil, mapDomainErr(err)
	}

	saved, err := s.store.Save(ctx, reinstated)
	if err != nil {
		return nil, mapDomainErr(err)
	}

	s.eventBus.Publish(ctx, events.PipelineReinstated{
		BaseEvent:      events.NewBaseEvent(),
		PipelineID:     saved.ID,
		OrganizationID: orgID,
		ActorID:        actorID,
	})

	resp := transport.ToPipelineResponse(s.registry, saved)
	return &resp, nil
}

// Archive hides a terminal pipeline from default listings.
func (s *Service) Archive(ctx context.Context, orgID, id uuid.UUID) error {
	record, err := s.store.GetByID(ctx, orgID, id)
	if err != nil {
		return mapDomainErr(err)
	}
	if !record.IsTerminal() {
		return apperr.Conflict("only completed or cancelled pipelines can be archived")
	}
	return mapDomainErr(s.store.Archive(ctx, orgID, id))
}

// StageRegistry returns the configured stages for a direction.
func (s *Service) StageRegistry(direction string) (*transport.StageRegistryResponse, error) {
	resp, err := transport.ToStageRegistryResponse(s.registry, domain.Direction(direction))
	if err != nil {
		return nil, apperr.NotFound(err.Error())
	}
	return &resp, nil
}

func normalizePhone(input, country string) string {
	if input == "" {
		return ""
	}
	if country != "" {
		return phone.NormalizeE164In(input, country)
	}
	return phone.NormalizeE164(input)
}

// mapDomainErr translates domain and repository errors into transport-facing
// apperr values. Unrecognized errors pass through for the generic 500 path.
func mapDomainErr(err error) error {
	if err == nil {
		return nil
	}

	var (
		unknownStage  *domain.UnknownStageError
		invalidTrans  *domain.InvalidTransitionError
		prerequisite  *domain.StagePrerequisiteError
		docsMissing   *domain.DocumentsIncompleteError
		locked        *domain.PipelineLockedError
		staleRevision *domain.ConcurrentModificationError
		promotion     *domain.PromotionFailedError
	)

	switch {
	case errors.Is(err, repository.ErrNotFound):
		return apperr.NotFound("pipeline not found")
	case errors.As(err, &unknownStage):
		return apperr.NotFound(unknownStage.Error())
	case errors.As(err, &invalidTrans):
		return apperr.Conflict(invalidTrans.Error())
	case errors.As(err, &prerequisite):
		return apperr.Conflict(prerequisite.Error()).WithDetails(map[string]string{
			"blockingStageId": prerequisite.BlockingStageID,
		})
	case errors.As(err, &docsMissing):
		return apperr.Conflict(docsMissing.Error()).WithDetails(map[string]interface{}{
			"stageId":              docsMissing.StageID,
			"missingDocumentTypes": docsMissing.Missing,
		})
	case errors.As(err, &locked):
		return apperr.Conflict(locked.Error())
	case errors.As(err, &staleRevision):
		return apperr.Conflict("pipeline was modified concurrently, reload and retry")
	case errors.As(err, &promotion):
		return apperr.Wrap(apperr.KindUnavailable, "portfolio promotion failed, pipeline left unchanged", promotion)
	default:
		return err
	}
}
