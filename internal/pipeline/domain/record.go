package domain

import (
	"math"
	"time"

	"github.com/google/uuid"
)

// StageStatus is the per-stage state machine position.
type StageStatus string

const (
	StageNotStarted StageStatus = "NOT_STARTED"
	StageInProgress StageStatus = "IN_PROGRESS"
	StageCompleted  StageStatus = "COMPLETED"
)

// Valid reports whether s is a known stage status.
func (s StageStatus) Valid() bool {
	return s == StageNotStarted || s == StageInProgress || s == StageCompleted
}

// OverallStatus is the derived pipeline-level status. CANCELLED is the only
// value that is set manually; everything else is recomputed from the stages.
type OverallStatus string

const (
	OverallNotStarted OverallStatus = "NOT_STARTED"
	OverallInProgress OverallStatus = "IN_PROGRESS"
	OverallCompleted  OverallStatus = "COMPLETED"
	OverallCancelled  OverallStatus = "CANCELLED"
)

// StageState is the mutable per-stage state of one pipeline instance.
// Invariant: CompletedAt is non-nil iff Status is COMPLETED.
type StageState struct {
	StageID               string      `json:"stageId"`
	Status                StageStatus `json:"status"`
	Notes                 string      `json:"notes,omitempty"`
	NotesAuthorID         *uuid.UUID  `json:"notesAuthorId,omitempty"`
	CompletedAt           *time.Time  `json:"completedAt,omitempty"`
	AttachedDocumentTypes []string    `json:"attachedDocumentTypes"`
}

// CounterpartyInfo holds the seller (acquisition) or buyer (disposal)
// contact fields. The engine treats it as opaque apart from normalization at
// the transport boundary.
type CounterpartyInfo struct {
	Name    string `json:"name"`
	Company string `json:"company,omitempty"`
	Email   string `json:"email,omitempty"`
	Phone   string `json:"phone,omitempty"`
	Country string `json:"country,omitempty"`
}

// FinancialSnapshot carries the recorded and derived money figures of one
// pipeline. Amounts are integer cents. Derived fields (profit, ROI, balance)
// are recomputed on every financial write and never accepted as input.
type FinancialSnapshot struct {
	AskingAmountCents       *int64   `json:"askingAmountCents,omitempty"`
	NegotiatedAmountCents   *int64   `json:"negotiatedAmountCents,omitempty"`
	DepositAmountCents      *int64   `json:"depositAmountCents,omitempty"`
	TotalCostCents          *int64   `json:"totalCostCents,omitempty"`
	ExpectedProfitCents     *int64   `json:"expectedProfitCents,omitempty"`
	ROIPercentage           *float64 `json:"roiPercentage,omitempty"`
	BalanceOutstandingCents *int64   `json:"balanceOutstandingCents,omitempty"`
}

// PipelineRecord is the aggregate root for one tracked deal.
type PipelineRecord struct {
	ID              uuid.UUID         `json:"id"`
	OrganizationID  uuid.UUID         `json:"organizationId"`
	Direction       Direction         `json:"direction"`
	AssetReference  string            `json:"assetReference"`
	Counterparty    CounterpartyInfo  `json:"counterparty"`
	Financial       FinancialSnapshot `json:"financial"`
	Stages          []StageState      `json:"stages"`
	CurrentStageID  *string           `json:"currentStageId,omitempty"`
	OverallStatus   OverallStatus     `json:"overallStatus"`
	OverallProgress int               `json:"overallProgress"`
	CancelReason    string            `json:"cancelReason,omitempty"`
	Revision        int64             `json:"revision"`
	ArchivedAt      *time.Time        `json:"archivedAt,omitempty"`
	CreatedAt       time.Time         `json:"createdAt"`
	UpdatedAt       time.Time         `json:"updatedAt"`
}

// NewPipelineRecord initializes a record with one NOT_STARTED stage state per
// registry definition, in order.
func NewPipelineRecord(reg *Registry, direction Direction, orgID uuid.UUID, assetReference string, counterparty CounterpartyInfo, now time.Time) (*PipelineRecord, error) {
	definitions, err := reg.StagesFor(direction)
	if err != nil {
		return nil, err
	}

	stages := make([]StageState, len(definitions))
	for i, def := range definitions {
		stages[i] = StageState{
			StageID:               def.ID,
			Status:                StageNotStarted,
			AttachedDocumentTypes: []string{},
		}
	}

	record := &PipelineRecord{
		ID:             uuid.New(),
		OrganizationID: orgID,
		Direction:      direction,
		AssetReference: assetReference,
		Counterparty:   counterparty,
		Stages:         stages,
		OverallStatus:  OverallNotStarted,
		Revision:       1,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	record.refreshDerived(reg)
	return record, nil
}

// Clone returns a deep copy. All mutations operate on a clone so a failed
// operation never leaves a half-mutated record behind.
func (r *PipelineRecord) Clone() *PipelineRecord {
	out := *r

	out.Stages = make([]StageState, len(r.Stages))
	for i, stage := range r.Stages {
		copied := stage
		copied.AttachedDocumentTypes = append([]string(nil), stage.AttachedDocumentTypes...)
		if stage.CompletedAt != nil {
			at := *stage.CompletedAt
			copied.CompletedAt = &at
		}
		if stage.NotesAuthorID != nil {
			author := *stage.NotesAuthorID
			copied.NotesAuthorID = &author
		}
		out.Stages[i] = copied
	}

	out.CurrentStageID = cloneStringPtr(r.CurrentStageID)
	out.ArchivedAt = cloneTimePtr(r.ArchivedAt)
	out.Financial = r.Financial.clone()
	return &out
}

func (f FinancialSnapshot) clone() FinancialSnapshot {
	return FinancialSnapshot{
		AskingAmountCents:       cloneInt64Ptr(f.AskingAmountCents),
		NegotiatedAmountCents:   cloneInt64Ptr(f.NegotiatedAmountCents),
		DepositAmountCents:      cloneInt64Ptr(f.DepositAmountCents),
		TotalCostCents:          cloneInt64Ptr(f.TotalCostCents),
		ExpectedProfitCents:     cloneInt64Ptr(f.ExpectedProfitCents),
		ROIPercentage:           cloneFloat64Ptr(f.ROIPercentage),
		BalanceOutstandingCents: cloneInt64Ptr(f.BalanceOutstandingCents),
	}
}

// StageState returns a pointer into the record's stage slice, or nil when the
// stage id is not part of this record.
func (r *PipelineRecord) StageState(stageID string) *StageState {
	for i := range r.Stages {
		if r.Stages[i].StageID == stageID {
			return &r.Stages[i]
		}
	}
	return nil
}

// IsTerminal reports whether the record reached a terminal overall status.
func (r *PipelineRecord) IsTerminal() bool {
	return r.OverallStatus == OverallCompleted || r.OverallStatus == OverallCancelled
}

// refreshDerived recomputes currentStageId, overallProgress and, unless the
// record is cancelled, overallStatus. Derivation lives here and only here;
// readers must never recompute these fields.
func (r *PipelineRecord) refreshDerived(reg *Registry) {
	definitions, err := reg.StagesFor(r.Direction)
	if err != nil {
		// Direction was validated at creation; an unknown direction here
		// means corrupted data and leaves derived fields untouched.
		return
	}

	completed := 0
	anyStarted := false
	r.CurrentStageID = nil
	for _, def := range definitions {
		state := r.StageState(def.ID)
		if state == nil {
			continue
		}
		switch state.Status {
		case StageCompleted:
			completed++
			anyStarted = true
		case StageInProgress:
			anyStarted = true
		}
		if state.Status != StageCompleted && r.CurrentStageID == nil {
			id := def.ID
			r.CurrentStageID = &id
		}
	}

	total := len(definitions)
	if total > 0 {
		r.OverallProgress = int(math.Round(100 * float64(completed) / float64(total)))
	}

	if r.OverallStatus == OverallCancelled {
		return
	}
	switch {
	case completed == total:
		r.OverallStatus = OverallCompleted
	case anyStarted:
		r.OverallStatus = OverallInProgress
	default:
		r.OverallStatus = OverallNotStarted
	}
}

func cloneInt64Ptr(v *int64) *int64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneFloat64Ptr(v *float64) *float64 {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneStringPtr(v *string) *string {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}

func cloneTimePtr(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	out := *v
	return &out
}
