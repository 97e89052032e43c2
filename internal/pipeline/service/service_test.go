package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"

	"estateflow_backend/internal/events"
	"estateflow_backend/internal/pipeline/domain"
	"estateflow_backend/internal/pipeline/repository"
	"estateflow_backend/internal/pipeline/transport"
	"estateflow_backend/platform/apperr"
	"estateflow_backend/platform/logger"
)

// fakeStore is an in-memory RecordStore with real revision semantics.
type fakeStore struct {
	mu               sync.Mutex
	records          map[uuid.UUID]*domain.PipelineRecord
	saves            int
	conflictNextSave bool
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[uuid.UUID]*domain.PipelineRecord{}}
}

func (f *fakeStore) Create(_ context.Context, record *domain.PipelineRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records[record.ID] = record.Clone()
	return nil
}

func (f *fakeStore) Save(_ context.Context, record *domain.PipelineRecord) (*domain.PipelineRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.conflictNextSave {
		f.conflictNextSave = false
		return nil, &domain.ConcurrentModificationError{PipelineID: record.ID, ExpectedRevision: record.Revision}
	}

	stored, ok := f.records[record.ID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	if stored.Revision != record.Revision {
		return nil, &domain.ConcurrentModificationError{PipelineID: record.ID, ExpectedRevision: record.Revision}
	}

	saved := record.Clone()
	saved.Revision++
	f.records[record.ID] = saved
	f.saves++
	return saved.Clone(), nil
}

func (f *fakeStore) GetByID(_ context.Context, orgID, id uuid.UUID) (*domain.PipelineRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok || record.OrganizationID != orgID {
		return nil, repository.ErrNotFound
	}
	return record.Clone(), nil
}

func (f *fakeStore) GetActiveByAsset(_ context.Context, orgID uuid.UUID, direction domain.Direction, assetReference string) (*domain.PipelineRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, record := range f.records {
		if record.OrganizationID == orgID && record.Direction == direction &&
			record.AssetReference == assetReference && !record.IsTerminal() && record.ArchivedAt == nil {
			return record.Clone(), nil
		}
	}
	return nil, repository.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, params repository.ListParams) ([]*domain.PipelineRecord, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*domain.PipelineRecord, 0)
	for _, record := range f.records {
		if record.OrganizationID == params.OrganizationID {
			out = append(out, record.Clone())
		}
	}
	return out, len(out), nil
}

func (f *fakeStore) Archive(_ context.Context, orgID, id uuid.UUID) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	record, ok := f.records[id]
	if !ok || record.OrganizationID != orgID {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	record.ArchivedAt = &now
	return nil
}

type fakePromoter struct {
	mu    sync.Mutex
	calls []uuid.UUID
	err   error
}

func (f *fakePromoter) Promote(_ context.Context, record *domain.PipelineRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.calls = append(f.calls, record.ID)
	return nil
}

// recordingBus captures published events synchronously.
type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, event events.Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, event)
}

func (b *recordingBus) PublishSync(ctx context.Context, event events.Event) error {
	b.Publish(ctx, event)
	return nil
}

func (b *recordingBus) Subscribe(string, events.Handler) {}

func (b *recordingBus) names() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]string, len(b.events))
	for i, e := range b.events {
		out[i] = e.EventName()
	}
	return out
}

func (b *recordingBus) has(name string) bool {
	for _, n := range b.names() {
		if n == name {
			return true
		}
	}
	return false
}

type fixture struct {
	svc      *Service
	store    *fakeStore
	promoter *fakePromoter
	bus      *recordingBus
	registry *domain.Registry
	orgID    uuid.UUID
	actorID  uuid.UUID
}

// twoStageFixture uses a minimal registry with two document-free stages so
// completion is reachable in two calls.
func twoStageFixture(t *testing.T) *fixture {
	t.Helper()
	stages := []domain.StageDefinition{
		{ID: "intake", Order: 1, Name: "Intake"},
		{ID: "closing", Order: 2, Name: "Closing"},
	}
	reg, err := domain.NewRegistry(stages, stages, false, false)
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	store := newFakeStore()
	promoter := &fakePromoter{}
	bus := &recordingBus{}
	return &fixture{
		svc:      New(store, reg, promoter, bus, logger.New("test")),
		store:    store,
		promoter: promoter,
		bus:      bus,
		registry: reg,
		orgID:    uuid.New(),
		actorID:  uuid.New(),
	}
}

func (f *fixture) seed(t *testing.T, direction domain.Direction) *domain.PipelineRecord {
	t.Helper()
	record, err := domain.NewPipelineRecord(f.registry, direction, f.orgID, "unit-42",
		domain.CounterpartyInfo{Name: "J. Vendor"}, time.Now().UTC())
	if err != nil {
		t.Fatalf("NewPipelineRecord: %v", err)
	}
	if err := f.store.Create(context.Background(), record); err != nil {
		t.Fatalf("seed: %v", err)
	}
	return record
}

type fakePortfolio struct {
	held      bool
	costBasis *int64
}

func (f *fakePortfolio) ActiveCostBasis(context.Context, uuid.UUID, string) (bool, *int64, error) {
	return f.held, f.costBasis, nil
}

func TestCreate_DisposalRequiresActiveProperty(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	costBasis := int64(3_500_000)
	portfolio := &fakePortfolio{}
	f.svc.SetPortfolioReader(portfolio)

	req := transport.CreatePipelineRequest{
		Direction:      "DISPOSAL",
		AssetReference: "amstel-12",
		Counterparty:   transport.CounterpartyRequest{Name: "K. Buyer"},
	}

	if _, err := f.svc.Create(ctx, f.orgID, f.actorID, req); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("Create for unheld asset = %v, want conflict", err)
	}

	portfolio.held = true
	portfolio.costBasis = &costBasis
	resp, err := f.svc.Create(ctx, f.orgID, f.actorID, req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Financial.TotalCostCents == nil || *resp.Financial.TotalCostCents != costBasis {
		t.Errorf("total cost = %v, want seeded cost basis %d", resp.Financial.TotalCostCents, costBasis)
	}
}

func TestCreate_NormalizesPhoneAndRejectsDuplicateAsset(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()

	resp, err := f.svc.Create(ctx, f.orgID, f.actorID, transport.CreatePipelineRequest{
		Direction:      "ACQUISITION",
		AssetReference: "amstel-12",
		Counterparty:   transport.CounterpartyRequest{Name: "B. de Vries", Phone: "06 12345678", Country: "NL"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.Counterparty.Phone != "+31612345678" {
		t.Errorf("phone = %q, want +31612345678", resp.Counterparty.Phone)
	}
	if !f.bus.has("pipelines.pipeline.created") {
		t.Error("expected PipelineCreated event")
	}

	_, err = f.svc.Create(ctx, f.orgID, f.actorID, transport.CreatePipelineRequest{
		Direction:      "ACQUISITION",
		AssetReference: "amstel-12",
		Counterparty:   transport.CounterpartyRequest{Name: "Other"},
	})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("duplicate asset: got %v, want conflict", err)
	}
}

func TestTransition_PromotesExactlyOnceOnCompletion(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionAcquisition)

	if _, err := f.svc.Transition(ctx, f.orgID, record.ID, "intake", f.actorID, transport.TransitionRequest{Status: "COMPLETED"}); err != nil {
		t.Fatalf("complete intake: %v", err)
	}
	if len(f.promoter.calls) != 0 {
		t.Fatal("promotion must not run before the final stage")
	}

	resp, err := f.svc.Transition(ctx, f.orgID, record.ID, "closing", f.actorID, transport.TransitionRequest{Status: "COMPLETED"})
	if err != nil {
		t.Fatalf("complete closing: %v", err)
	}
	if resp.OverallStatus != "COMPLETED" || resp.OverallProgress != 100 {
		t.Fatalf("status = %s progress = %d", resp.OverallStatus, resp.OverallProgress)
	}
	if len(f.promoter.calls) != 1 {
		t.Fatalf("promoter calls = %d, want 1", len(f.promoter.calls))
	}
	if !f.bus.has("pipelines.pipeline.completed") {
		t.Error("expected PipelineCompleted event")
	}
}

func TestTransition_PromoterFailureLeavesRecordUntouched(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionDisposal)

	if _, err := f.svc.Transition(ctx, f.orgID, record.ID, "intake", f.actorID, transport.TransitionRequest{Status: "COMPLETED"}); err != nil {
		t.Fatalf("complete intake: %v", err)
	}

	f.promoter.err = errors.New("portfolio store down")
	_, err := f.svc.Transition(ctx, f.orgID, record.ID, "closing", f.actorID, transport.TransitionRequest{Status: "COMPLETED"})
	if !apperr.Is(err, apperr.KindUnavailable) {
		t.Fatalf("got %v, want unavailable", err)
	}

	stored, getErr := f.store.GetByID(ctx, f.orgID, record.ID)
	if getErr != nil {
		t.Fatalf("GetByID: %v", getErr)
	}
	if stored.OverallStatus == domain.OverallCompleted {
		t.Fatal("record must not be COMPLETED when promotion failed")
	}
	if f.bus.has("pipelines.pipeline.completed") {
		t.Fatal("no completion event on failed promotion")
	}

	// Recovery: once the promoter is healthy the same request succeeds.
	f.promoter.err = nil
	if _, err := f.svc.Transition(ctx, f.orgID, record.ID, "closing", f.actorID, transport.TransitionRequest{Status: "COMPLETED"}); err != nil {
		t.Fatalf("retry after recovery: %v", err)
	}
}

func TestTransition_RevisionConflictSurfacesAndRetryWorks(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionAcquisition)

	f.store.conflictNextSave = true
	_, err := f.svc.Transition(ctx, f.orgID, record.ID, "intake", f.actorID, transport.TransitionRequest{Status: "IN_PROGRESS"})
	if !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("got %v, want conflict", err)
	}

	// A reload-and-retry, which the service does per call, succeeds.
	if _, err := f.svc.Transition(ctx, f.orgID, record.ID, "intake", f.actorID, transport.TransitionRequest{Status: "IN_PROGRESS"}); err != nil {
		t.Fatalf("retry: %v", err)
	}
}

func TestTransition_DeniedMapsToConflictWithDetails(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionAcquisition)

	_, err := f.svc.Transition(ctx, f.orgID, record.ID, "closing", f.actorID, transport.TransitionRequest{Status: "IN_PROGRESS"})
	appErr, ok := err.(*apperr.Error)
	if !ok || appErr.Kind != apperr.KindConflict {
		t.Fatalf("got %v, want *apperr.Error conflict", err)
	}
	details, ok := appErr.Details.(map[string]string)
	if !ok {
		t.Fatalf("details = %#v, want map with blocking stage", appErr.Details)
	}
	if details["blockingStageId"] != "intake" {
		t.Fatalf("blockingStageId = %q, want %q", details["blockingStageId"], "intake")
	}
}

func TestCancel_TerminalIsNoOp(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionAcquisition)

	if _, err := f.svc.Cancel(ctx, f.orgID, record.ID, f.actorID, transport.CancelPipelineRequest{Reason: "withdrawn"}); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !f.bus.has("pipelines.pipeline.cancelled") {
		t.Fatal("expected PipelineCancelled event")
	}
	savesAfterCancel := f.store.saves

	// Second cancel: success, nothing written, no second event.
	resp, err := f.svc.Cancel(ctx, f.orgID, record.ID, f.actorID, transport.CancelPipelineRequest{Reason: "again"})
	if err != nil {
		t.Fatalf("repeat cancel: %v", err)
	}
	if resp.CancelReason != "withdrawn" {
		t.Errorf("reason = %q, want original reason preserved", resp.CancelReason)
	}
	if f.store.saves != savesAfterCancel {
		t.Fatal("repeat cancel must not write")
	}
}

func TestReinstate_RestoresDerivedStatus(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionAcquisition)

	if _, err := f.svc.Transition(ctx, f.orgID, record.ID, "intake", f.actorID, transport.TransitionRequest{Status: "COMPLETED"}); err != nil {
		t.Fatalf("complete intake: %v", err)
	}
	if _, err := f.svc.Cancel(ctx, f.orgID, record.ID, f.actorID, transport.CancelPipelineRequest{}); err != nil {
		t.Fatalf("cancel: %v", err)
	}

	resp, err := f.svc.Reinstate(ctx, f.orgID, record.ID, f.actorID)
	if err != nil {
		t.Fatalf("Reinstate: %v", err)
	}
	if resp.OverallStatus != "IN_PROGRESS" {
		t.Fatalf("status = %s, want IN_PROGRESS", resp.OverallStatus)
	}

	// Reinstating an active pipeline is a conflict.
	if _, err := f.svc.Reinstate(ctx, f.orgID, record.ID, f.actorID); !apperr.Is(err, apperr.KindConflict) {
		t.Fatalf("got %v, want conflict", err)
	}
}

func TestUpdateFinancials_DerivesDisposalProfit(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionDisposal)

	negotiated := int64(5_000_000)
	deposit := int64(500_000)
	totalCost := int64(4_000_000)
	resp, err := f.svc.UpdateFinancials(ctx, f.orgID, record.ID, f.actorID, transport.FinancialRequest{
		NegotiatedAmountCents: &negotiated,
		DepositAmountCents:    &deposit,
		TotalCostCents:        &totalCost,
	})
	if err != nil {
		t.Fatalf("UpdateFinancials: %v", err)
	}

	if resp.Financial.BalanceOutstandingCents == nil || *resp.Financial.BalanceOutstandingCents != 4_500_000 {
		t.Errorf("balance = %v, want 4500000", resp.Financial.BalanceOutstandingCents)
	}
	if resp.Financial.ExpectedProfitCents == nil || *resp.Financial.ExpectedProfitCents != 1_000_000 {
		t.Errorf("profit = %v, want 1000000", resp.Financial.ExpectedProfitCents)
	}
	if resp.Financial.ROIPercentage == nil || *resp.Financial.ROIPercentage != 25.0 {
		t.Errorf("roi = %v, want 25.0", resp.Financial.ROIPercentage)
	}
}

func TestGet_ScopedToOrganization(t *testing.T) {
	f := twoStageFixture(t)
	ctx := context.Background()
	record := f.seed(t, domain.DirectionAcquisition)

	if _, err := f.svc.Get(ctx, uuid.New(), record.ID); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("cross-org read: got %v, want not found", err)
	}
}
