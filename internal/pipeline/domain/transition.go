package domain

import (
	"time"

	"github.com/google/uuid"
)

// TransitionInput carries one requested per-stage status change.
type TransitionInput struct {
	StageID   string
	NewStatus StageStatus
	Notes     string
	ActorID   *uuid.UUID
}

// ApplyTransition validates and applies a stage-status change on a deep copy
// of the record and returns the copy with all derived fields recomputed. The
// input record is never touched, so callers can discard the result on any
// downstream failure and keep the all-or-nothing guarantee.
func ApplyTransition(reg *Registry, record *PipelineRecord, in TransitionInput, now time.Time) (*PipelineRecord, error) {
	if record.IsTerminal() {
		return nil, &PipelineLockedError{PipelineID: record.ID, Status: record.OverallStatus}
	}

	def, err := reg.StageFor(record.Direction, in.StageID)
	if err != nil {
		return nil, err
	}

	state := record.StageState(in.StageID)
	if state == nil {
		return nil, &UnknownStageError{Direction: record.Direction, StageID: in.StageID}
	}

	if !in.NewStatus.Valid() {
		return nil, &InvalidTransitionError{StageID: in.StageID, From: state.Status, To: in.NewStatus, Reason: "unknown status"}
	}

	if err := validateEdge(def, state.Status, in.NewStatus); err != nil {
		return nil, err
	}

	if in.NewStatus == StageInProgress || in.NewStatus == StageCompleted {
		if err := checkPrerequisites(reg, record, def); err != nil {
			return nil, err
		}
	}

	if in.NewStatus == StageCompleted {
		if missing := MissingDocuments(def, *state); len(missing) > 0 {
			return nil, &DocumentsIncompleteError{StageID: def.ID, Missing: missing}
		}
	}

	updated := record.Clone()
	target := updated.StageState(in.StageID)
	target.Status = in.NewStatus
	if in.Notes != "" {
		target.Notes = in.Notes
		target.NotesAuthorID = in.ActorID
	}
	if in.NewStatus == StageCompleted {
		at := now
		target.CompletedAt = &at
	} else {
		target.CompletedAt = nil
	}

	updated.UpdatedAt = now
	updated.refreshDerived(reg)
	return updated, nil
}

// validateEdge enforces the per-stage state machine:
// NOT_STARTED -> IN_PROGRESS -> COMPLETED, with the backward edges
// COMPLETED -> IN_PROGRESS (reopen) and IN_PROGRESS -> NOT_STARTED
// (abandon). The direct NOT_STARTED -> COMPLETED shortcut exists only for
// stages without document requirements; everything else must pass through
// IN_PROGRESS so operators can attach documents first.
func validateEdge(def StageDefinition, from, to StageStatus) error {
	if from == to {
		return &InvalidTransitionError{StageID: def.ID, From: from, To: to, Reason: "stage is already in that status"}
	}

	switch {
	case from == StageNotStarted && to == StageInProgress:
		return nil
	case from == StageInProgress && to == StageCompleted:
		return nil
	case from == StageCompleted && to == StageInProgress:
		return nil
	case from == StageInProgress && to == StageNotStarted:
		return nil
	case from == StageNotStarted && to == StageCompleted:
		if len(def.RequiredDocumentTypes) > 0 {
			return &InvalidTransitionError{StageID: def.ID, From: from, To: to,
				Reason: "stage requires documents and must be started first"}
		}
		return nil
	default:
		return &InvalidTransitionError{StageID: def.ID, From: from, To: to}
	}
}

// checkPrerequisites enforces the ordering rule: every stage with a strictly
// lower order must be COMPLETED, unless the direction permits out-of-order
// work.
func checkPrerequisites(reg *Registry, record *PipelineRecord, def StageDefinition) error {
	if reg.AllowsOutOfOrder(record.Direction) {
		return nil
	}

	definitions, err := reg.StagesFor(record.Direction)
	if err != nil {
		return err
	}

	for _, prior := range definitions {
		if prior.Order >= def.Order {
			break
		}
		state := record.StageState(prior.ID)
		if state == nil || state.Status != StageCompleted {
			return &StagePrerequisiteError{StageID: def.ID, BlockingStageID: prior.ID}
		}
	}
	return nil
}

// Cancel moves the record to CANCELLED. Cancelling is idempotent and never
// errors: a record already in a terminal status is returned unchanged.
func Cancel(record *PipelineRecord, reason string, now time.Time) *PipelineRecord {
	if record.IsTerminal() {
		return record
	}

	updated := record.Clone()
	updated.OverallStatus = OverallCancelled
	updated.CancelReason = reason
	updated.UpdatedAt = now
	return updated
}

// Reinstate is the explicit un-cancel operation. The overall status is
// recomputed from the stage states; nothing else changes.
func Reinstate(reg *Registry, record *PipelineRecord, now time.Time) (*PipelineRecord, error) {
	if record.OverallStatus != OverallCancelled {
		return nil, &PipelineLockedError{PipelineID: record.ID, Status: record.OverallStatus}
	}

	updated := record.Clone()
	updated.OverallStatus = OverallNotStarted
	updated.CancelReason = ""
	updated.UpdatedAt = now
	updated.refreshDerived(reg)
	return updated, nil
}
