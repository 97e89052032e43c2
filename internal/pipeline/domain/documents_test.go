package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func testRecord(t *testing.T, reg *Registry, direction Direction) *PipelineRecord {
	t.Helper()
	record, err := NewPipelineRecord(reg, direction, uuid.New(), "unit-42", CounterpartyInfo{Name: "J. Vendor"}, time.Now())
	if err != nil {
		t.Fatalf("NewPipelineRecord: %v", err)
	}
	return record
}

func TestMissingDocuments(t *testing.T) {
	def := StageDefinition{ID: "due_diligence", Order: 2, RequiredDocumentTypes: []string{"inspection_report", "title_search"}}

	tests := []struct {
		name     string
		attached []string
		want     []string
	}{
		{"nothing attached", nil, []string{"inspection_report", "title_search"}},
		{"partially attached", []string{"title_search"}, []string{"inspection_report"}},
		{"fully attached", []string{"inspection_report", "title_search"}, nil},
		{"extra attachments ignored", []string{"inspection_report", "title_search", "photo"}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			state := StageState{StageID: def.ID, AttachedDocumentTypes: tt.attached}
			got := MissingDocuments(def, state)
			if len(got) != len(tt.want) {
				t.Fatalf("missing = %v, want %v", got, tt.want)
			}
			for i := range got {
				if got[i] != tt.want[i] {
					t.Fatalf("missing = %v, want %v", got, tt.want)
				}
			}
			if satisfied := StageSatisfied(def, state); satisfied != (len(tt.want) == 0) {
				t.Fatalf("StageSatisfied = %v with missing %v", satisfied, tt.want)
			}
		})
	}
}

func TestAttachDocument_Idempotent(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	record := testRecord(t, reg, DirectionAcquisition)

	first, err := AttachDocument(reg, record, "due_diligence", "inspection_report")
	if err != nil {
		t.Fatalf("first attach: %v", err)
	}
	second, err := AttachDocument(reg, first, "due_diligence", "inspection_report")
	if err != nil {
		t.Fatalf("second attach: %v", err)
	}

	attached := second.StageState("due_diligence").AttachedDocumentTypes
	if len(attached) != 1 || attached[0] != "inspection_report" {
		t.Fatalf("attached = %v, want exactly one inspection_report", attached)
	}
}

func TestAttachDocument_DoesNotMutateInput(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	record := testRecord(t, reg, DirectionAcquisition)

	if _, err := AttachDocument(reg, record, "due_diligence", "inspection_report"); err != nil {
		t.Fatalf("attach: %v", err)
	}

	if got := record.StageState("due_diligence").AttachedDocumentTypes; len(got) != 0 {
		t.Fatalf("input record was mutated: %v", got)
	}
}

func TestAttachDocument_UnknownStage(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}
	record := testRecord(t, reg, DirectionAcquisition)

	_, err = AttachDocument(reg, record, "handover", "transfer_deed")
	if _, ok := err.(*UnknownStageError); !ok {
		t.Fatalf("expected *UnknownStageError, got %T (%v)", err, err)
	}
}
