package domain

import "testing"

func TestDefaultRegistry_OrdersAreContiguous(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	for _, direction := range []Direction{DirectionAcquisition, DirectionDisposal} {
		stages, err := reg.StagesFor(direction)
		if err != nil {
			t.Fatalf("StagesFor(%s): %v", direction, err)
		}
		if len(stages) == 0 {
			t.Fatalf("direction %s has no stages", direction)
		}
		for i, stage := range stages {
			if stage.Order != i+1 {
				t.Errorf("direction %s: stage %s has order %d, want %d", direction, stage.ID, stage.Order, i+1)
			}
		}
	}
}

func TestDefaultRegistry_DisposalHasEightStages(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	stages, err := reg.StagesFor(DirectionDisposal)
	if err != nil {
		t.Fatalf("StagesFor: %v", err)
	}
	if len(stages) != 8 {
		t.Fatalf("expected 8 disposal stages, got %d", len(stages))
	}
}

func TestNewRegistryFromYAML_RejectsGaps(t *testing.T) {
	raw := []byte(`
acquisition:
  stages:
    - {id: first, order: 1, name: First}
    - {id: third, order: 3, name: Third}
disposal:
  stages:
    - {id: only, order: 1, name: Only}
`)
	if _, err := NewRegistryFromYAML(raw); err == nil {
		t.Fatal("expected error for non-contiguous orders")
	}
}

func TestNewRegistryFromYAML_RejectsDuplicateIDs(t *testing.T) {
	raw := []byte(`
acquisition:
  stages:
    - {id: twice, order: 1, name: First}
    - {id: twice, order: 2, name: Second}
disposal:
  stages:
    - {id: only, order: 1, name: Only}
`)
	if _, err := NewRegistryFromYAML(raw); err == nil {
		t.Fatal("expected error for duplicate stage ids")
	}
}

func TestStageFor_UnknownStage(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	_, err = reg.StageFor(DirectionAcquisition, "no_such_stage")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*UnknownStageError); !ok {
		t.Fatalf("expected *UnknownStageError, got %T", err)
	}
}

func TestStageFor_StageFromOtherDirection(t *testing.T) {
	reg, err := DefaultRegistry()
	if err != nil {
		t.Fatalf("DefaultRegistry: %v", err)
	}

	// handover exists on the disposal side only
	if _, err := reg.StageFor(DirectionDisposal, "handover"); err != nil {
		t.Fatalf("handover should resolve for disposal: %v", err)
	}
	if _, err := reg.StageFor(DirectionAcquisition, "handover"); err == nil {
		t.Fatal("handover must not resolve for acquisition")
	}
}
