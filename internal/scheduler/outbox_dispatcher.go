package scheduler

import (
	"context"
	"fmt"
	"time"

	"estateflow_backend/internal/notification/outbox"
	"estateflow_backend/platform/config"
	"estateflow_backend/platform/logger"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgxpool"
)

const dispatchBatchSize = 50

// OutboxDispatcher polls the notification outbox and enqueues due records as
// asynq tasks. Claimed records that fail to enqueue are put back to pending
// so the next tick retries them.
type OutboxDispatcher struct {
	client   *asynq.Client
	queue    string
	repo     *outbox.Repository
	interval time.Duration
	log      *logger.Logger
}

func NewOutboxDispatcher(cfg config.SchedulerConfig, pool *pgxpool.Pool, log *logger.Logger) (*OutboxDispatcher, error) {
	redisURL := cfg.GetRedisURL()
	if redisURL == "" {
		return nil, fmt.Errorf("redis url not configured")
	}

	opt, err := redisClientOpt(redisURL, cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := cfg.GetAsynqQueueName()
	if queue == "" {
		queue = "default"
	}

	interval := cfg.GetOutboxPollInterval()
	if interval <= 0 {
		interval = 30 * time.Second
	}

	return &OutboxDispatcher{
		client:   asynq.NewClient(opt),
		queue:    queue,
		repo:     outbox.New(pool),
		interval: interval,
		log:      log,
	}, nil
}

func (d *OutboxDispatcher) Close() error {
	if d == nil || d.client == nil {
		return nil
	}
	return d.client.Close()
}

func (d *OutboxDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil || d.repo == nil {
		return
	}

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		records, err := d.repo.ClaimPending(ctx, dispatchBatchSize)
		if err != nil {
			d.log.Warn("outbox claim failed", "error", err)
			continue
		}

		for _, rec := range records {
			if err := d.dispatch(ctx, rec); err != nil {
				msg := err.Error()
				_ = d.repo.MarkPending(ctx, rec.ID, &msg)
			}
		}
	}
}

func (d *OutboxDispatcher) dispatch(ctx context.Context, rec outbox.Record) error {
	task, err := NewNotificationOutboxDueTask(NotificationOutboxDuePayload{
		OutboxID:       rec.ID.String(),
		OrganizationID: rec.OrganizationID.String(),
	})
	if err != nil {
		return err
	}

	_, err = d.client.EnqueueContext(ctx, task, asynq.ProcessAt(rec.RunAt), asynq.Queue(d.queue))
	return err
}
