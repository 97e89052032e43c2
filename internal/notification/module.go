// Package notification subscribes to pipeline lifecycle events and delivers
// counterparty emails through a persistent outbox. Domain modules publish
// events and never touch email providers or templates directly.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"estateflow_backend/internal/events"
	"estateflow_backend/internal/notification/email"
	"estateflow_backend/internal/notification/outbox"
	"estateflow_backend/internal/pipeline/domain"
	"estateflow_backend/platform/config"
	"estateflow_backend/platform/logger"

	"github.com/google/uuid"
)

const (
	templatePipelineCompleted = "pipeline_completed"
	templatePipelineCancelled = "pipeline_cancelled"

	invalidOutboxPayloadPrefix = "invalid payload: "
	defaultOutboxRetryAttempts = 5
	outboxRetryBaseDelay       = time.Minute
	outboxRetryMaxDelay        = 60 * time.Minute
)

// PipelineReader loads a pipeline record so the counterparty contact can be
// resolved at delivery time instead of being frozen into the outbox payload.
type PipelineReader interface {
	GetByID(ctx context.Context, organizationID, id uuid.UUID) (*domain.PipelineRecord, error)
}

// pipelineEmailOutboxPayload is the stored payload for pipeline lifecycle emails.
type pipelineEmailOutboxPayload struct {
	OrgID          string `json:"orgId"`
	PipelineID     string `json:"pipelineId"`
	AssetReference string `json:"assetReference"`
	Direction      string `json:"direction"`
	Reason         string `json:"reason,omitempty"`
}

// Module handles all notification-related event subscriptions.
type Module struct {
	sender      email.Sender
	pipelines   PipelineReader
	outbox      *outbox.Repository
	maxAttempts int
	log         *logger.Logger
}

// New creates a new notification module.
func New(sender email.Sender, pipelines PipelineReader, outboxRepo *outbox.Repository, cfg config.NotificationConfig, log *logger.Logger) *Module {
	maxAttempts := cfg.GetNotificationRetries()
	if maxAttempts < 1 {
		maxAttempts = defaultOutboxRetryAttempts
	}
	return &Module{
		sender:      sender,
		pipelines:   pipelines,
		outbox:      outboxRepo,
		maxAttempts: maxAttempts,
		log:         log,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string { return "notification" }

// RegisterHandlers subscribes to all relevant domain events on the event bus.
func (m *Module) RegisterHandlers(bus *events.InMemoryBus) {
	bus.Subscribe(events.PipelineCompleted{}.EventName(), m)
	bus.Subscribe(events.PipelineCancelled{}.EventName(), m)
	bus.Subscribe(events.NotificationOutboxDue{}.EventName(), m)

	m.log.Info("notification module registered event handlers")
}

// Handle routes events to the appropriate handler method.
func (m *Module) Handle(ctx context.Context, event events.Event) error {
	switch e := event.(type) {
	case events.PipelineCompleted:
		return m.handlePipelineCompleted(ctx, e)
	case events.PipelineCancelled:
		return m.handlePipelineCancelled(ctx, e)
	case events.NotificationOutboxDue:
		return m.ProcessOutboxRecord(ctx, e.OutboxID)
	default:
		m.log.Warn("unhandled event type", "event", event.EventName())
		return nil
	}
}

func (m *Module) handlePipelineCompleted(ctx context.Context, e events.PipelineCompleted) error {
	return m.enqueuePipelineEmail(ctx, templatePipelineCompleted, pipelineEmailOutboxPayload{
		OrgID:          e.OrganizationID.String(),
		PipelineID:     e.PipelineID.String(),
		AssetReference: e.AssetReference,
		Direction:      e.Direction,
	})
}

func (m *Module) handlePipelineCancelled(ctx context.Context, e events.PipelineCancelled) error {
	return m.enqueuePipelineEmail(ctx, templatePipelineCancelled, pipelineEmailOutboxPayload{
		OrgID:          e.OrganizationID.String(),
		PipelineID:     e.PipelineID.String(),
		AssetReference: e.AssetReference,
		Direction:      e.Direction,
		Reason:         e.Reason,
	})
}

func (m *Module) enqueuePipelineEmail(ctx context.Context, template string, payload pipelineEmailOutboxPayload) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; enqueue skipped", "template", template, "pipelineId", payload.PipelineID)
		return nil
	}

	orgID, err := uuid.Parse(payload.OrgID)
	if err != nil {
		return fmt.Errorf("parse organization id: %w", err)
	}

	recID, err := m.outbox.Insert(ctx, outbox.InsertParams{
		OrganizationID: orgID,
		Kind:           "email",
		Template:       template,
		Payload:        payload,
		RunAt:          time.Now().UTC(),
	})
	if err != nil {
		return err
	}
	m.log.OutboxEvent(recID.String(), "email", "enqueued")
	return nil
}

// ProcessOutboxRecord delivers a single claimed outbox record. Called both
// from the in-process event bus and from the scheduler worker.
func (m *Module) ProcessOutboxRecord(ctx context.Context, outboxID uuid.UUID) error {
	if m.outbox == nil {
		m.log.Debug("notification outbox not configured; skipping due record", "outboxId", outboxID)
		return nil
	}

	rec, process, err := m.prepareOutboxRecord(ctx, outboxID)
	if err != nil || !process {
		if err != nil {
			m.log.Error("failed to prepare outbox record", "outboxId", outboxID, "error", err)
		}
		return err
	}

	var processErr error
	switch rec.Template {
	case templatePipelineCompleted, templatePipelineCancelled:
		processErr = m.processPipelineEmailOutbox(ctx, rec)
	default:
		m.markOutboxUnsupported(ctx, rec)
		return nil
	}

	if processErr != nil {
		m.handleOutboxDeliveryError(ctx, rec, processErr)
		return processErr
	}
	m.log.OutboxEvent(rec.ID.String(), rec.Kind, "processed")
	return nil
}

func (m *Module) prepareOutboxRecord(ctx context.Context, outboxID uuid.UUID) (outbox.Record, bool, error) {
	rec, err := m.outbox.GetByID(ctx, outboxID)
	if err != nil {
		return outbox.Record{}, false, err
	}
	if rec.Status == outbox.StatusSucceeded {
		m.log.Debug("outbox record already succeeded; skipping", "outboxId", rec.ID.String())
		return rec, false, nil
	}
	if err := m.outbox.MarkProcessing(ctx, rec.ID); err != nil {
		return outbox.Record{}, false, err
	}
	return rec, true, nil
}

func (m *Module) processPipelineEmailOutbox(ctx context.Context, rec outbox.Record) error {
	var payload pipelineEmailOutboxPayload
	if err := json.Unmarshal(rec.Payload, &payload); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}

	orgID, err := uuid.Parse(payload.OrgID)
	if err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}
	pipelineID, err := uuid.Parse(payload.PipelineID)
	if err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, invalidOutboxPayloadPrefix+err.Error())
		return nil
	}

	record, err := m.pipelines.GetByID(ctx, orgID, pipelineID)
	if err != nil {
		return fmt.Errorf("resolve pipeline %s: %w", pipelineID, err)
	}

	toEmail := strings.TrimSpace(record.Counterparty.Email)
	if toEmail == "" {
		m.log.Debug("counterparty has no email address; marking succeeded", "outboxId", rec.ID.String(), "pipelineId", pipelineID)
		_ = m.outbox.MarkSucceeded(ctx, rec.ID)
		return nil
	}
	toName := strings.TrimSpace(record.Counterparty.Name)

	switch rec.Template {
	case templatePipelineCompleted:
		err = m.sender.SendPipelineCompletedEmail(ctx, toEmail, toName, payload.AssetReference, payload.Direction)
	case templatePipelineCancelled:
		err = m.sender.SendPipelineCancelledEmail(ctx, toEmail, toName, payload.AssetReference, payload.Reason)
	}
	if err != nil {
		return err
	}

	_ = m.outbox.MarkSucceeded(ctx, rec.ID)
	m.log.Info("pipeline email delivered", "outboxId", rec.ID.String(), "template", rec.Template, "pipelineId", pipelineID)
	return nil
}

func (m *Module) handleOutboxDeliveryError(ctx context.Context, rec outbox.Record, deliveryErr error) {
	attempt := rec.Attempts + 1
	if attempt >= m.maxAttempts {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Warn("notification outbox exhausted retries",
			"outboxId", rec.ID.String(),
			"template", rec.Template,
			"attempt", attempt,
			"maxAttempts", m.maxAttempts,
			"error", deliveryErr,
		)
		return
	}

	retryAt := time.Now().UTC().Add(computeOutboxRetryDelay(attempt))
	if err := m.outbox.ScheduleRetry(ctx, rec.ID, retryAt, deliveryErr.Error()); err != nil {
		_ = m.outbox.MarkFailed(ctx, rec.ID, deliveryErr.Error())
		m.log.Error("notification outbox retry scheduling failed; marked failed",
			"outboxId", rec.ID.String(),
			"attempt", attempt,
			"error", err,
		)
		return
	}

	m.log.Warn("notification outbox scheduled retry",
		"outboxId", rec.ID.String(),
		"template", rec.Template,
		"attempt", attempt,
		"retryAt", retryAt,
		"error", deliveryErr,
	)
}

func computeOutboxRetryDelay(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	delay := outboxRetryBaseDelay << (attempt - 1)
	if delay > outboxRetryMaxDelay {
		return outboxRetryMaxDelay
	}
	return delay
}

func (m *Module) markOutboxUnsupported(ctx context.Context, rec outbox.Record) {
	msg := fmt.Sprintf("unsupported outbox kind/template: %s/%s", rec.Kind, rec.Template)
	_ = m.outbox.MarkFailed(ctx, rec.ID, msg)
	m.log.Warn("unsupported outbox record", "outboxId", rec.ID.String(), "kind", rec.Kind, "template", rec.Template)
}
