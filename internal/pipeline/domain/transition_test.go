package domain

import (
	"testing"
	"time"
)

var testNow = time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

func mustRegistry(t *testing.T) *Registry {
	t.Helper()
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	return reg
}

// completeStage attaches all required documents and walks the stage through
// IN_PROGRESS to COMPLETED.
func completeStage(t *testing.T, reg *Registry, record *PipelineRecord, stageID string) *PipelineRecord {
	t.Helper()

	def, err := reg.StageFor(record.Direction, stageID)
	if err != nil {
		t.Fatalf("StageFor(%s): %v", stageID, err)
	}

	updated := record
	for _, docType := range def.RequiredDocumentTypes {
		updated, err = AttachDocument(reg, updated, stageID, docType)
		if err != nil {
			t.Fatalf("attach %s to %s: %v", docType, stageID, err)
		}
	}

	updated, err = ApplyTransition(reg, updated, TransitionInput{StageID: stageID, NewStatus: StageInProgress}, testNow)
	if err != nil {
		t.Fatalf("start %s: %v", stageID, err)
	}
	updated, err = ApplyTransition(reg, updated, TransitionInput{StageID: stageID, NewStatus: StageCompleted}, testNow)
	if err != nil {
		t.Fatalf("complete %s: %v", stageID, err)
	}
	return updated
}

func TestApplyTransition_StartFirstStage(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionAcquisition)

	updated, err := ApplyTransition(reg, record, TransitionInput{StageID: "negotiation", NewStatus: StageInProgress}, testNow)
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	if updated.OverallStatus != OverallInProgress {
		t.Errorf("overall status = %s, want IN_PROGRESS", updated.OverallStatus)
	}
	if updated.OverallProgress != 0 {
		t.Errorf("progress = %d, want 0", updated.OverallProgress)
	}
	if updated.CurrentStageID == nil || *updated.CurrentStageID != "negotiation" {
		t.Errorf("current stage = %v, want negotiation", updated.CurrentStageID)
	}
	if record.OverallStatus != OverallNotStarted {
		t.Error("input record must not be mutated")
	}
}

func TestApplyTransition_DirectCompleteDocumentFreeStage(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionAcquisition)

	updated, err := ApplyTransition(reg, record, TransitionInput{StageID: "negotiation", NewStatus: StageCompleted}, testNow)
	if err != nil {
		t.Fatalf("ApplyTransition: %v", err)
	}

	state := updated.StageState("negotiation")
	if state.Status != StageCompleted {
		t.Fatalf("status = %s, want COMPLETED", state.Status)
	}
	if state.CompletedAt == nil {
		t.Fatal("completedAt must be set on completion")
	}
	if updated.CurrentStageID == nil || *updated.CurrentStageID != "due_diligence" {
		t.Errorf("current stage = %v, want due_diligence", updated.CurrentStageID)
	}
	// 1 of 7 acquisition stages
	if updated.OverallProgress != 14 {
		t.Errorf("progress = %d, want 14", updated.OverallProgress)
	}
}

func TestApplyTransition_DirectCompleteNeedsDocumentFreeStage(t *testing.T) {
	reg := mustRegistry(t)
	record := completeStage(t, reg, testRecord(t, reg, DirectionAcquisition), "negotiation")

	_, err := ApplyTransition(reg, record, TransitionInput{StageID: "due_diligence", NewStatus: StageCompleted}, testNow)
	if _, ok := err.(*InvalidTransitionError); !ok {
		t.Fatalf("expected *InvalidTransitionError for direct completion of a document stage, got %T (%v)", err, err)
	}
}

func TestApplyTransition_DocumentsIncomplete(t *testing.T) {
	reg := mustRegistry(t)
	record := completeStage(t, reg, testRecord(t, reg, DirectionAcquisition), "negotiation")

	record, err := ApplyTransition(reg, record, TransitionInput{StageID: "due_diligence", NewStatus: StageInProgress}, testNow)
	if err != nil {
		t.Fatalf("start due_diligence: %v", err)
	}
	record, err = AttachDocument(reg, record, "due_diligence", "title_search")
	if err != nil {
		t.Fatalf("attach: %v", err)
	}

	before := record.Clone()
	_, err = ApplyTransition(reg, record, TransitionInput{StageID: "due_diligence", NewStatus: StageCompleted}, testNow)
	docErr, ok := err.(*DocumentsIncompleteError)
	if !ok {
		t.Fatalf("expected *DocumentsIncompleteError, got %T (%v)", err, err)
	}
	if len(docErr.Missing) != 1 || docErr.Missing[0] != "inspection_report" {
		t.Fatalf("missing = %v, want [inspection_report]", docErr.Missing)
	}

	// The record is unchanged and the identical retry fails identically.
	if record.StageState("due_diligence").Status != before.StageState("due_diligence").Status {
		t.Fatal("failed transition mutated the record")
	}
	_, err2 := ApplyTransition(reg, record, TransitionInput{StageID: "due_diligence", NewStatus: StageCompleted}, testNow)
	if docErr2, ok := err2.(*DocumentsIncompleteError); !ok || len(docErr2.Missing) != 1 {
		t.Fatalf("retry did not fail identically: %v", err2)
	}
}

func TestApplyTransition_PrerequisiteOrdering(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionAcquisition)

	_, err := ApplyTransition(reg, record, TransitionInput{StageID: "due_diligence", NewStatus: StageInProgress}, testNow)
	prereqErr, ok := err.(*StagePrerequisiteError)
	if !ok {
		t.Fatalf("expected *StagePrerequisiteError, got %T (%v)", err, err)
	}
	if prereqErr.BlockingStageID != "negotiation" {
		t.Fatalf("blocking stage = %s, want negotiation", prereqErr.BlockingStageID)
	}

	// Completing the prerequisite first makes the same call succeed.
	record = completeStage(t, reg, record, "negotiation")
	if _, err := ApplyTransition(reg, record, TransitionInput{StageID: "due_diligence", NewStatus: StageInProgress}, testNow); err != nil {
		t.Fatalf("transition after prerequisite completed: %v", err)
	}
}

func TestApplyTransition_OutOfOrderDirection(t *testing.T) {
	stages := []StageDefinition{
		{ID: "paperwork_a", Order: 1, Name: "Paperwork A"},
		{ID: "paperwork_b", Order: 2, Name: "Paperwork B"},
	}
	reg, err := NewRegistry(stages, stages, true, true)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	record := testRecord(t, reg, DirectionAcquisition)

	// The second stage may start while the first is untouched.
	if _, err := ApplyTransition(reg, record, TransitionInput{StageID: "paperwork_b", NewStatus: StageInProgress}, testNow); err != nil {
		t.Fatalf("out-of-order start rejected: %v", err)
	}
}

func TestApplyTransition_ReopenCompletedStage(t *testing.T) {
	reg := mustRegistry(t)
	record := completeStage(t, reg, testRecord(t, reg, DirectionAcquisition), "negotiation")

	updated, err := ApplyTransition(reg, record, TransitionInput{StageID: "negotiation", NewStatus: StageInProgress, Notes: "price revision"}, testNow)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}

	state := updated.StageState("negotiation")
	if state.Status != StageInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS", state.Status)
	}
	if state.CompletedAt != nil {
		t.Fatal("completedAt must be cleared on reopen")
	}
	if updated.CurrentStageID == nil || *updated.CurrentStageID != "negotiation" {
		t.Errorf("current stage = %v, want negotiation", updated.CurrentStageID)
	}
}

func TestApplyTransition_AbandonProgress(t *testing.T) {
	reg := mustRegistry(t)
	record, err := ApplyTransition(reg, testRecord(t, reg, DirectionAcquisition),
		TransitionInput{StageID: "negotiation", NewStatus: StageInProgress}, testNow)
	if err != nil {
		t.Fatalf("start: %v", err)
	}

	updated, err := ApplyTransition(reg, record, TransitionInput{StageID: "negotiation", NewStatus: StageNotStarted}, testNow)
	if err != nil {
		t.Fatalf("abandon: %v", err)
	}
	if updated.StageState("negotiation").Status != StageNotStarted {
		t.Fatal("stage should be back to NOT_STARTED")
	}
	if updated.OverallStatus != OverallNotStarted {
		t.Fatalf("overall status = %s, want NOT_STARTED", updated.OverallStatus)
	}
}

func TestApplyTransition_SameStatusRejected(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionAcquisition)

	_, err := ApplyTransition(reg, record, TransitionInput{StageID: "negotiation", NewStatus: StageNotStarted}, testNow)
	if _, ok := err.(*InvalidTransitionError); !ok {
		t.Fatalf("expected *InvalidTransitionError, got %T (%v)", err, err)
	}
}

func TestApplyTransition_UnknownStage(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionAcquisition)

	_, err := ApplyTransition(reg, record, TransitionInput{StageID: "handover", NewStatus: StageInProgress}, testNow)
	if _, ok := err.(*UnknownStageError); !ok {
		t.Fatalf("expected *UnknownStageError, got %T (%v)", err, err)
	}
}

func TestCancel_IdempotentAndTerminal(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionAcquisition)

	cancelled := Cancel(record, "deal fell through", testNow)
	if cancelled.OverallStatus != OverallCancelled {
		t.Fatalf("status = %s, want CANCELLED", cancelled.OverallStatus)
	}
	if cancelled.CancelReason != "deal fell through" {
		t.Fatalf("reason = %q", cancelled.CancelReason)
	}

	again := Cancel(cancelled, "other reason", testNow.Add(time.Hour))
	if again != cancelled {
		t.Fatal("cancelling a cancelled record must be a no-op")
	}

	// Ordinary transitions cannot undo cancellation.
	_, err := ApplyTransition(reg, cancelled, TransitionInput{StageID: "negotiation", NewStatus: StageInProgress}, testNow)
	if _, ok := err.(*PipelineLockedError); !ok {
		t.Fatalf("expected *PipelineLockedError, got %T (%v)", err, err)
	}
}

func TestReinstate(t *testing.T) {
	reg := mustRegistry(t)
	record := completeStage(t, reg, testRecord(t, reg, DirectionAcquisition), "negotiation")
	cancelled := Cancel(record, "paused", testNow)

	reinstated, err := Reinstate(reg, cancelled, testNow.Add(time.Hour))
	if err != nil {
		t.Fatalf("Reinstate: %v", err)
	}
	if reinstated.OverallStatus != OverallInProgress {
		t.Fatalf("status = %s, want IN_PROGRESS (one stage completed)", reinstated.OverallStatus)
	}
	if reinstated.CancelReason != "" {
		t.Fatal("cancel reason must be cleared")
	}

	if _, err := Reinstate(reg, reinstated, testNow); err == nil {
		t.Fatal("reinstating a non-cancelled record must fail")
	}
}

func TestDisposalScenario_ProgressAndCompletion(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionDisposal)

	if record.OverallProgress != 0 {
		t.Fatalf("initial progress = %d, want 0", record.OverallProgress)
	}

	stages, err := reg.StagesFor(DirectionDisposal)
	if err != nil {
		t.Fatalf("StagesFor: %v", err)
	}

	for _, def := range stages[:7] {
		record = completeStage(t, reg, record, def.ID)
	}

	if record.OverallProgress != 88 {
		t.Fatalf("progress after 7 of 8 = %d, want 88", record.OverallProgress)
	}
	if record.OverallStatus != OverallInProgress {
		t.Fatalf("overall status = %s, want IN_PROGRESS", record.OverallStatus)
	}

	record = completeStage(t, reg, record, stages[7].ID)

	if record.OverallStatus != OverallCompleted {
		t.Fatalf("overall status = %s, want COMPLETED", record.OverallStatus)
	}
	if record.OverallProgress != 100 {
		t.Fatalf("progress = %d, want 100", record.OverallProgress)
	}
	if record.CurrentStageID != nil {
		t.Fatalf("current stage = %v, want nil", *record.CurrentStageID)
	}

	// Completed pipelines are archived read-only.
	_, err = ApplyTransition(reg, record, TransitionInput{StageID: "handover", NewStatus: StageInProgress}, testNow)
	if _, ok := err.(*PipelineLockedError); !ok {
		t.Fatalf("expected *PipelineLockedError, got %T (%v)", err, err)
	}
}

func TestOverallStatusInvariant(t *testing.T) {
	reg := mustRegistry(t)
	record := testRecord(t, reg, DirectionDisposal)

	stages, err := reg.StagesFor(DirectionDisposal)
	if err != nil {
		t.Fatalf("StagesFor: %v", err)
	}

	for i, def := range stages {
		record = completeStage(t, reg, record, def.ID)

		allCompleted := i == len(stages)-1
		if (record.OverallStatus == OverallCompleted) != allCompleted {
			t.Fatalf("after %d completions: overall = %s, allCompleted = %v", i+1, record.OverallStatus, allCompleted)
		}
	}
}
