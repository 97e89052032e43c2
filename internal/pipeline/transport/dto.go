package transport

import (
	"time"

	"github.com/google/uuid"

	"estateflow_backend/internal/pipeline/domain"
)

// ── Requests ──────────────────────────────────────────────────────────────────

// CounterpartyRequest is the seller or buyer contact block on create/update.
type CounterpartyRequest struct {
	Name    string `json:"name" validate:"required,min=1,max=200"`
	Company string `json:"company" validate:"omitempty,max=200"`
	Email   string `json:"email" validate:"omitempty,email,max=320"`
	Phone   string `json:"phone" validate:"omitempty,min=5,max=30"`
	Country string `json:"country" validate:"omitempty,len=2"`
}

// CreatePipelineRequest opens a new pipeline record.
type CreatePipelineRequest struct {
	Direction      string              `json:"direction" validate:"required,oneof=ACQUISITION DISPOSAL"`
	AssetReference string              `json:"assetReference" validate:"required,min=1,max=200"`
	Counterparty   CounterpartyRequest `json:"counterparty" validate:"required"`
	Financial      *FinancialRequest   `json:"financial" validate:"omitempty"`
}

// TransitionRequest moves one stage to a new status.
type TransitionRequest struct {
	Status string `json:"status" validate:"required,oneof=NOT_STARTED IN_PROGRESS COMPLETED"`
	Notes  string `json:"notes" validate:"omitempty,max=4000"`
}

// AttachDocumentRequest records a required document type against a stage.
type AttachDocumentRequest struct {
	DocumentType string `json:"documentType" validate:"required,min=1,max=100"`
	FileKey      string `json:"fileKey" validate:"omitempty,max=1000"`
}

// FinancialRequest sets the recorded money fields. Amounts are integer cents.
// Derived fields (profit, ROI, balance) are computed server-side and rejected
// as input by omission.
type FinancialRequest struct {
	AskingAmountCents     *int64 `json:"askingAmountCents" validate:"omitempty,min=0"`
	NegotiatedAmountCents *int64 `json:"negotiatedAmountCents" validate:"omitempty,min=0"`
	DepositAmountCents    *int64 `json:"depositAmountCents" validate:"omitempty,min=0"`
	TotalCostCents        *int64 `json:"totalCostCents" validate:"omitempty,min=0"`
}

// CancelPipelineRequest cancels a pipeline with an optional reason.
type CancelPipelineRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// ListPipelinesRequest defines the query parameters for listing pipelines.
type ListPipelinesRequest struct {
	Direction       string `form:"direction" validate:"omitempty,oneof=ACQUISITION DISPOSAL"`
	Status          string `form:"status" validate:"omitempty,oneof=NOT_STARTED IN_PROGRESS COMPLETED CANCELLED"`
	AssetReference  string `form:"assetReference"`
	IncludeArchived bool   `form:"includeArchived"`
	Page            int    `form:"page" validate:"omitempty,min=1"`
	PageSize        int    `form:"pageSize" validate:"omitempty,min=1,max=100"`
}

// ── Responses ─────────────────────────────────────────────────────────────────

// StageStateResponse is the wire shape of one stage on a pipeline.
type StageStateResponse struct {
	StageID               string     `json:"stageId"`
	Name                  string     `json:"name"`
	Order                 int        `json:"order"`
	Status                string     `json:"status"`
	Notes                 string     `json:"notes,omitempty"`
	NotesAuthorID         *uuid.UUID `json:"notesAuthorId,omitempty"`
	CompletedAt           *time.Time `json:"completedAt,omitempty"`
	RequiredDocumentTypes []string   `json:"requiredDocumentTypes"`
	AttachedDocumentTypes []string   `json:"attachedDocumentTypes"`
	MissingDocumentTypes  []string   `json:"missingDocumentTypes"`
}

// FinancialResponse mirrors the stored snapshot, derived fields included.
type FinancialResponse struct {
	AskingAmountCents       *int64   `json:"askingAmountCents,omitempty"`
	NegotiatedAmountCents   *int64   `json:"negotiatedAmountCents,omitempty"`
	DepositAmountCents      *int64   `json:"depositAmountCents,omitempty"`
	TotalCostCents          *int64   `json:"totalCostCents,omitempty"`
	ExpectedProfitCents     *int64   `json:"expectedProfitCents,omitempty"`
	ROIPercentage           *float64 `json:"roiPercentage,omitempty"`
	BalanceOutstandingCents *int64   `json:"balanceOutstandingCents,omitempty"`
}

// CounterpartyResponse is the stored contact block.
type CounterpartyResponse struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country,omitempty"`
}

// PipelineResponse is the full wire representation of a pipeline record.
type PipelineResponse struct {
	ID              uuid.UUID            `json:"id"`
	Direction       string               `json:"direction"`
	AssetReference  string               `json:"assetReference"`
	Counterparty    CounterpartyResponse `json:"counterparty"`
	Financial       FinancialResponse    `json:"financial"`
	Stages          []StageStateResponse `json:"stages"`
	CurrentStageID  *string              `json:"currentStageId,omitempty"`
	OverallStatus   string               `json:"overallStatus"`
	OverallProgress int                  `json:"overallProgress"`
	CancelReason    string               `json:"cancelReason,omitempty"`
	Revision        int64                `json:"revision"`
	ArchivedAt      *time.Time           `json:"archivedAt,omitempty"`
	CreatedAt       time.Time            `json:"createdAt"`
	UpdatedAt       time.Time            `json:"updatedAt"`
}

// PipelineListResponse is a paginated listing.
type PipelineListResponse struct {
	Items    []PipelineResponse `json:"items"`
	Total    int                `json:"total"`
	Page     int                `json:"page"`
	PageSize int                `json:"pageSize"`
}

// StageDefinitionResponse describes one configured stage of a direction.
type StageDefinitionResponse struct {
	ID                    string   `json:"id"`
	Order                 int      `json:"order"`
	Name                  string   `json:"name"`
	RequiredDocumentTypes []string `json:"requiredDocumentTypes"`
}

// StageRegistryResponse lists the configured stages for one direction.
type StageRegistryResponse struct {
	Direction       string                    `json:"direction"`
	AllowOutOfOrder bool                      `json:"allowOutOfOrder"`
	Stages          []StageDefinitionResponse `json:"stages"`
}

// ToPipelineResponse maps a domain record to its wire shape. The registry
// supplies display names and document requirements per stage.
func ToPipelineResponse(reg *domain.Registry, record *domain.PipelineRecord) PipelineResponse {
	stages := make([]StageStateResponse, 0, len(record.Stages))
	for _, state := range record.Stages {
		item := StageStateResponse{
			StageID:               state.StageID,
			Status:                string(state.Status),
			Notes:                 state.Notes,
			NotesAuthorID:         state.NotesAuthorID,
			CompletedAt:           state.CompletedAt,
			AttachedDocumentTypes: append([]string{}, state.AttachedDocumentTypes...),
			RequiredDocumentTypes: []string{},
			MissingDocumentTypes:  []string{},
		}
		if def, err := reg.StageFor(record.Direction, state.StageID); err == nil {
			item.Name = def.Name
			item.Order = def.Order
			item.RequiredDocumentTypes = append([]string{}, def.RequiredDocumentTypes...)
			if missing := domain.MissingDocuments(def, state); missing != nil {
				item.MissingDocumentTypes = missing
			}
		}
		stages = append(stages, item)
	}

	return PipelineResponse{
		ID:              record.ID,
		Direction:       string(record.Direction),
		AssetReference:  record.AssetReference,
		Counterparty:    CounterpartyResponse(record.Counterparty),
		Financial:       FinancialResponse(record.Financial),
		Stages:          stages,
		CurrentStageID:  record.CurrentStageID,
		OverallStatus:   string(record.OverallStatus),
		OverallProgress: record.OverallProgress,
		CancelReason:    record.CancelReason,
		Revision:        record.Revision,
		ArchivedAt:      record.ArchivedAt,
		CreatedAt:       record.CreatedAt,
		UpdatedAt:       record.UpdatedAt,
	}
}

// ToStageRegistryResponse maps the configured stages of a direction.
func ToStageRegistryResponse(reg *domain.Registry, direction domain.Direction) (StageRegistryResponse, error) {
	definitions, err := reg.StagesFor(direction)
	if err != nil {
		return StageRegistryResponse{}, err
	}
	items := make([]StageDefinitionResponse, len(definitions))
	for i, def := range definitions {
		items[i] = StageDefinitionResponse{
			ID:                    def.ID,
			Order:                 def.Order,
			Name:                  def.Name,
			RequiredDocumentTypes: append([]string{}, def.RequiredDocumentTypes...),
		}
	}
	return StageRegistryResponse{
		Direction:       string(direction),
		AllowOutOfOrder: reg.AllowsOutOfOrder(direction),
		Stages:          items,
	}, nil
}
