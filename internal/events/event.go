// Package events provides domain event definitions for decoupled,
// event-driven communication between modules.
// Infrastructure (Bus, Handler) is in platform/events.
package events

import (
	"estateflow_backend/platform/events"

	"github.com/google/uuid"
)

// Re-export platform types for convenience
type (
	Event       = events.Event
	Bus         = events.Bus
	Handler     = events.Handler
	HandlerFunc = events.HandlerFunc
	BaseEvent   = events.BaseEvent
	InMemoryBus = events.InMemoryBus
)

// Re-export platform functions
var (
	NewBaseEvent   = events.NewBaseEvent
	NewInMemoryBus = events.NewInMemoryBus
)

// =============================================================================
// Pipeline Domain Events
// =============================================================================

// PipelineCreated is published when a new pipeline record is opened.
type PipelineCreated struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Direction      string    `json:"direction"`
	AssetReference string    `json:"assetReference"`
	CreatedBy      uuid.UUID `json:"createdBy"`
}

func (e PipelineCreated) EventName() string { return "pipelines.pipeline.created" }

// StageTransitioned is published when a stage status changes on a pipeline.
type StageTransitioned struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Direction      string    `json:"direction"`
	StageID        string    `json:"stageId"`
	OldStatus      string    `json:"oldStatus"`
	NewStatus      string    `json:"newStatus"`
	ActorID        uuid.UUID `json:"actorId"`
	Progress       int       `json:"progress"`
}

func (e StageTransitioned) EventName() string { return "pipelines.stage.transitioned" }

// DocumentAttached is published when a required document type is recorded
// against a stage.
type DocumentAttached struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	StageID        string    `json:"stageId"`
	DocumentType   string    `json:"documentType"`
	FileKey        string    `json:"fileKey,omitempty"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e DocumentAttached) EventName() string { return "pipelines.document.attached" }

// FinancialsUpdated is published when the financial snapshot of a pipeline changes.
type FinancialsUpdated struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Direction      string    `json:"direction"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e FinancialsUpdated) EventName() string { return "pipelines.financials.updated" }

// PipelineCompleted is published when the final stage of a pipeline completes.
// Property promotion has already run by the time handlers see this event.
type PipelineCompleted struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Direction      string    `json:"direction"`
	AssetReference string    `json:"assetReference"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e PipelineCompleted) EventName() string { return "pipelines.pipeline.completed" }

// PipelineCancelled is published when a pipeline is cancelled.
type PipelineCancelled struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	Direction      string    `json:"direction"`
	AssetReference string    `json:"assetReference"`
	Reason         string    `json:"reason"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e PipelineCancelled) EventName() string { return "pipelines.pipeline.cancelled" }

// PipelineReinstated is published when a cancelled pipeline is reopened.
type PipelineReinstated struct {
	BaseEvent
	PipelineID     uuid.UUID `json:"pipelineId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	ActorID        uuid.UUID `json:"actorId"`
}

func (e PipelineReinstated) EventName() string { return "pipelines.pipeline.reinstated" }

// =============================================================================
// Properties Domain Events
// =============================================================================

// PropertyActivated is published when a completed acquisition promotes an
// asset into the active portfolio.
type PropertyActivated struct {
	BaseEvent
	PropertyID     uuid.UUID `json:"propertyId"`
	OrganizationID uuid.UUID `json:"organizationId"`
	AssetReference string    `json:"assetReference"`
	PipelineID     uuid.UUID `json:"pipelineId"`
	CostBasisCents *int64    `json:"costBasisCents,omitempty"`
}

func (e PropertyActivated) EventName() string { return "properties.property.activated" }

// PropertyTransferred is published when a completed disposal marks a
// portfolio asset as transferred out.
type PropertyTransferred struct {
	BaseEvent
	PropertyID      uuid.UUID `json:"propertyId"`
	OrganizationID  uuid.UUID `json:"organizationId"`
	AssetReference  string    `json:"assetReference"`
	PipelineID      uuid.UUID `json:"pipelineId"`
	SaleAmountCents *int64    `json:"saleAmountCents,omitempty"`
}

func (e PropertyTransferred) EventName() string { return "properties.property.transferred" }

// =============================================================================
// Notification Domain Events
// =============================================================================

// NotificationOutboxDue is published by the scheduler when a notification
// outbox record should be processed.
type NotificationOutboxDue struct {
	BaseEvent
	OutboxID       uuid.UUID `json:"outboxId"`
	OrganizationID uuid.UUID `json:"organizationId"`
}

func (e NotificationOutboxDue) EventName() string { return "notification.outbox.due" }
