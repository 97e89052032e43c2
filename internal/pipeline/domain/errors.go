package domain

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// UnknownStageError reports a stage id that does not belong to the record's
// direction. This is a caller bug and is not retryable.
type UnknownStageError struct {
	Direction Direction
	StageID   string
}

func (e *UnknownStageError) Error() string {
	return fmt.Sprintf("unknown stage %q for direction %s", e.StageID, e.Direction)
}

// InvalidTransitionError reports a per-stage status change the state machine
// does not permit.
type InvalidTransitionError struct {
	StageID string
	From    StageStatus
	To      StageStatus
	Reason  string
}

func (e *InvalidTransitionError) Error() string {
	if e.Reason != "" {
		return fmt.Sprintf("stage %s cannot move from %s to %s: %s", e.StageID, e.From, e.To, e.Reason)
	}
	return fmt.Sprintf("stage %s cannot move from %s to %s", e.StageID, e.From, e.To)
}

// StagePrerequisiteError reports an ordering violation, naming the
// lowest-order stage that is blocking the requested one.
type StagePrerequisiteError struct {
	StageID         string
	BlockingStageID string
}

func (e *StagePrerequisiteError) Error() string {
	return fmt.Sprintf("stage %s is blocked: stage %s is not completed", e.StageID, e.BlockingStageID)
}

// DocumentsIncompleteError reports a completion attempt with unmet document
// requirements; Missing lists the absent document types.
type DocumentsIncompleteError struct {
	StageID string
	Missing []string
}

func (e *DocumentsIncompleteError) Error() string {
	return fmt.Sprintf("stage %s is missing required documents: %s", e.StageID, strings.Join(e.Missing, ", "))
}

// PipelineLockedError reports an attempt to mutate a record that reached a
// terminal overall status. Completed pipelines are archived read-only;
// cancelled ones only react to Reinstate.
type PipelineLockedError struct {
	PipelineID uuid.UUID
	Status     OverallStatus
}

func (e *PipelineLockedError) Error() string {
	return fmt.Sprintf("pipeline %s is %s and cannot be modified", e.PipelineID, e.Status)
}

// ConcurrentModificationError reports a stale revision on save. The caller
// should reload the record and retry.
type ConcurrentModificationError struct {
	PipelineID       uuid.UUID
	ExpectedRevision int64
}

func (e *ConcurrentModificationError) Error() string {
	return fmt.Sprintf("pipeline %s was modified concurrently (expected revision %d)", e.PipelineID, e.ExpectedRevision)
}

// PromotionFailedError reports that the downstream promotion failed after a
// transition would have completed the pipeline. The mutation is discarded so
// the record stays retryable in its pre-completion state.
type PromotionFailedError struct {
	PipelineID uuid.UUID
	Err        error
}

func (e *PromotionFailedError) Error() string {
	return fmt.Sprintf("promotion of pipeline %s failed: %v", e.PipelineID, e.Err)
}

func (e *PromotionFailedError) Unwrap() error { return e.Err }
