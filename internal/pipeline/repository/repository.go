package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"estateflow_backend/internal/pipeline/domain"
)

var ErrNotFound = errors.New("pipeline not found")

const recordColumns = `id, organization_id, direction, asset_reference, counterparty, stages,
	current_stage_id, overall_status, overall_progress, cancel_reason,
	asking_amount_cents, negotiated_amount_cents, deposit_amount_cents, total_cost_cents,
	expected_profit_cents, roi_percentage, balance_outstanding_cents,
	revision, archived_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

var _ RecordStore = (*Repository)(nil)

func (r *Repository) Create(ctx context.Context, record *domain.PipelineRecord) error {
	counterparty, stages, err := marshalAggregates(record)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx, `
		INSERT INTO pipelines (
			id, organization_id, direction, asset_reference, counterparty, stages,
			current_stage_id, overall_status, overall_progress, cancel_reason,
			asking_amount_cents, negotiated_amount_cents, deposit_amount_cents, total_cost_cents,
			expected_profit_cents, roi_percentage, balance_outstanding_cents,
			revision, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
	`,
		record.ID, record.OrganizationID, string(record.Direction), record.AssetReference, counterparty, stages,
		record.CurrentStageID, string(record.OverallStatus), record.OverallProgress, record.CancelReason,
		record.Financial.AskingAmountCents, record.Financial.NegotiatedAmountCents, record.Financial.DepositAmountCents, record.Financial.TotalCostCents,
		record.Financial.ExpectedProfitCents, record.Financial.ROIPercentage, record.Financial.BalanceOutstandingCents,
		record.Revision, record.CreatedAt, record.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert pipeline: %w", err)
	}
	return nil
}

// Save writes the full aggregate under an optimistic revision check. The
// returned record carries the bumped revision. When the stored revision no
// longer matches, a *domain.ConcurrentModificationError is returned and the
// database row is untouched.
func (r *Repository) Save(ctx context.Context, record *domain.PipelineRecord) (*domain.PipelineRecord, error) {
	counterparty, stages, err := marshalAggregates(record)
	if err != nil {
		return nil, err
	}

	tag, err := r.pool.Exec(ctx, `
		UPDATE pipelines SET
			asset_reference = $3, counterparty = $4, stages = $5,
			current_stage_id = $6, overall_status = $7, overall_progress = $8, cancel_reason = $9,
			asking_amount_cents = $10, negotiated_amount_cents = $11, deposit_amount_cents = $12, total_cost_cents = $13,
			expected_profit_cents = $14, roi_percentage = $15, balance_outstanding_cents = $16,
			archived_at = $17, updated_at = $18, revision = revision + 1
		WHERE id = $1 AND revision = $2
	`,
		record.ID, record.Revision,
		record.AssetReference, counterparty, stages,
		record.CurrentStageID, string(record.OverallStatus), record.OverallProgress, record.CancelReason,
		record.Financial.AskingAmountCents, record.Financial.NegotiatedAmountCents, record.Financial.DepositAmountCents, record.Financial.TotalCostCents,
		record.Financial.ExpectedProfitCents, record.Financial.ROIPercentage, record.Financial.BalanceOutstandingCents,
		record.ArchivedAt, record.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("update pipeline: %w", err)
	}
	if tag.RowsAffected() == 0 {
		// Either the row is gone or someone saved a newer revision first.
		// Distinguish so callers get the right error.
		var exists bool
		if probeErr := r.pool.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pipelines WHERE id = $1)`, record.ID).Scan(&exists); probeErr != nil {
			return nil, probeErr
		}
		if !exists {
			return nil, ErrNotFound
		}
		return nil, &domain.ConcurrentModificationError{PipelineID: record.ID, ExpectedRevision: record.Revision}
	}

	saved := record.Clone()
	saved.Revision = record.Revision + 1
	return saved, nil
}

func (r *Repository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (*domain.PipelineRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM pipelines
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

// GetActiveByAsset returns the non-terminal pipeline for an asset in the given
// direction, or ErrNotFound. Used to prevent two open pipelines racing over
// the same asset.
func (r *Repository) GetActiveByAsset(ctx context.Context, organizationID uuid.UUID, direction domain.Direction, assetReference string) (*domain.PipelineRecord, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+recordColumns+`
		FROM pipelines
		WHERE organization_id = $1 AND direction = $2 AND asset_reference = $3
			AND overall_status NOT IN ('COMPLETED', 'CANCELLED')
			AND archived_at IS NULL
		ORDER BY created_at DESC
		LIMIT 1
	`, organizationID, string(direction), assetReference)

	record, err := scanRecord(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	return record, err
}

type ListParams struct {
	OrganizationID  uuid.UUID
	Direction       *domain.Direction
	OverallStatus   *domain.OverallStatus
	AssetReference  string
	IncludeArchived bool
	Limit           int
	Offset          int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]*domain.PipelineRecord, int, error) {
	conditions := []string{"organization_id = $1"}
	args := []interface{}{params.OrganizationID}

	if params.Direction != nil {
		args = append(args, string(*params.Direction))
		conditions = append(conditions, fmt.Sprintf("direction = $%d", len(args)))
	}
	if params.OverallStatus != nil {
		args = append(args, string(*params.OverallStatus))
		conditions = append(conditions, fmt.Sprintf("overall_status = $%d", len(args)))
	}
	if params.AssetReference != "" {
		args = append(args, params.AssetReference)
		conditions = append(conditions, fmt.Sprintf("asset_reference = $%d", len(args)))
	}
	if !params.IncludeArchived {
		conditions = append(conditions, "archived_at IS NULL")
	}
	where := strings.Join(conditions, " AND ")

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM pipelines WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	args = append(args, limit, params.Offset)
	query := fmt.Sprintf(`
		SELECT %s
		FROM pipelines
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, recordColumns, where, len(args)-1, len(args))

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	records := make([]*domain.PipelineRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, 0, err
		}
		records = append(records, record)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return records, total, nil
}

// Archive stamps archived_at so the record drops out of default listings.
// Completed and cancelled pipelines are the intended targets.
func (r *Repository) Archive(ctx context.Context, organizationID, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, `
		UPDATE pipelines
		SET archived_at = NOW(), updated_at = NOW()
		WHERE id = $1 AND organization_id = $2 AND archived_at IS NULL
	`, id, organizationID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func marshalAggregates(record *domain.PipelineRecord) ([]byte, []byte, error) {
	counterparty, err := json.Marshal(record.Counterparty)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal counterparty: %w", err)
	}
	stages, err := json.Marshal(record.Stages)
	if err != nil {
		return nil, nil, fmt.Errorf("marshal stages: %w", err)
	}
	return counterparty, stages, nil
}

func scanRecord(row pgx.Row) (*domain.PipelineRecord, error) {
	var (
		record           domain.PipelineRecord
		direction        string
		overallStatus    string
		counterpartyJSON []byte
		stagesJSON       []byte
		createdAt        time.Time
		updatedAt        time.Time
	)

	err := row.Scan(
		&record.ID, &record.OrganizationID, &direction, &record.AssetReference, &counterpartyJSON, &stagesJSON,
		&record.CurrentStageID, &overallStatus, &record.OverallProgress, &record.CancelReason,
		&record.Financial.AskingAmountCents, &record.Financial.NegotiatedAmountCents, &record.Financial.DepositAmountCents, &record.Financial.TotalCostCents,
		&record.Financial.ExpectedProfitCents, &record.Financial.ROIPercentage, &record.Financial.BalanceOutstandingCents,
		&record.Revision, &record.ArchivedAt, &createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	record.Direction = domain.Direction(direction)
	record.OverallStatus = domain.OverallStatus(overallStatus)
	record.CreatedAt = createdAt
	record.UpdatedAt = updatedAt

	if err := json.Unmarshal(counterpartyJSON, &record.Counterparty); err != nil {
		return nil, fmt.Errorf("unmarshal counterparty: %w", err)
	}
	if err := json.Unmarshal(stagesJSON, &record.Stages); err != nil {
		return nil, fmt.Errorf("unmarshal stages: %w", err)
	}
	return &record, nil
}
