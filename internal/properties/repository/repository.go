package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var ErrNotFound = errors.New("property not found")

type Property struct {
	ID                    uuid.UUID
	OrganizationID        uuid.UUID
	AssetReference        string
	Name                  string
	Address               string
	Status                string
	CostBasisCents        *int64
	SaleAmountCents       *int64
	AcquisitionPipelineID *uuid.UUID
	DisposalPipelineID    *uuid.UUID
	AcquiredAt            *time.Time
	TransferredAt         *time.Time
	CreatedAt             time.Time
	UpdatedAt             time.Time
}

const (
	StatusActive      = "active"
	StatusTransferred = "transferred"
)

const propertyColumns = `id, organization_id, asset_reference, name, address, status,
	cost_basis_cents, sale_amount_cents, acquisition_pipeline_id, disposal_pipeline_id,
	acquired_at, transferred_at, created_at, updated_at`

type Repository struct {
	pool *pgxpool.Pool
}

func New(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

type ActivateParams struct {
	OrganizationID uuid.UUID
	AssetReference string
	PipelineID     uuid.UUID
	CostBasisCents *int64
	AcquiredAt     time.Time
}

// Activate upserts the property into the active portfolio. Keyed on
// (organization, asset) so a completion retry for the same pipeline lands on
// the same row; re-acquiring a transferred asset reactivates it.
func (r *Repository) Activate(ctx context.Context, params ActivateParams) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		INSERT INTO properties (
			id, organization_id, asset_reference, status, cost_basis_cents,
			acquisition_pipeline_id, acquired_at
		) VALUES ($1, $2, $3, 'active', $4, $5, $6)
		ON CONFLICT (organization_id, asset_reference) DO UPDATE SET
			status = 'active',
			cost_basis_cents = EXCLUDED.cost_basis_cents,
			acquisition_pipeline_id = EXCLUDED.acquisition_pipeline_id,
			acquired_at = EXCLUDED.acquired_at,
			disposal_pipeline_id = NULL,
			sale_amount_cents = NULL,
			transferred_at = NULL,
			updated_at = now()
		RETURNING `+propertyColumns,
		uuid.New(), params.OrganizationID, params.AssetReference, params.CostBasisCents,
		params.PipelineID, params.AcquiredAt,
	)
	return scanProperty(row)
}

type TransferParams struct {
	OrganizationID  uuid.UUID
	AssetReference  string
	PipelineID      uuid.UUID
	SaleAmountCents *int64
	TransferredAt   time.Time
}

// Transfer marks the active property as transferred out. Idempotent per
// pipeline: a property already transferred by the same pipeline id matches
// and is returned unchanged. ErrNotFound means there is no eligible property.
func (r *Repository) Transfer(ctx context.Context, params TransferParams) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE properties SET
			status = 'transferred',
			sale_amount_cents = $4,
			disposal_pipeline_id = $3,
			transferred_at = $5,
			updated_at = now()
		WHERE organization_id = $1 AND asset_reference = $2
			AND (status = 'active' OR disposal_pipeline_id = $3)
		RETURNING `+propertyColumns,
		params.OrganizationID, params.AssetReference, params.PipelineID,
		params.SaleAmountCents, params.TransferredAt,
	)
	property, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return property, err
}

func (r *Repository) GetByID(ctx context.Context, organizationID, id uuid.UUID) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE id = $1 AND organization_id = $2
	`, id, organizationID)

	property, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return property, err
}

func (r *Repository) GetByAsset(ctx context.Context, organizationID uuid.UUID, assetReference string) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+propertyColumns+`
		FROM properties
		WHERE organization_id = $1 AND asset_reference = $2
	`, organizationID, assetReference)

	property, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return property, err
}

type ListParams struct {
	OrganizationID uuid.UUID
	Status         string
	Limit          int
	Offset         int
}

func (r *Repository) List(ctx context.Context, params ListParams) ([]Property, int, error) {
	where := `organization_id = $1`
	args := []interface{}{params.OrganizationID}
	if params.Status != "" {
		args = append(args, params.Status)
		where += ` AND status = $2`
	}

	var total int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM properties WHERE `+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	limit := params.Limit
	if limit <= 0 || limit > 100 {
		limit = 25
	}
	query := fmt.Sprintf(`
		SELECT %s
		FROM properties
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, propertyColumns, where, len(args)+1, len(args)+2)
	args = append(args, limit, params.Offset)

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	items := make([]Property, 0)
	for rows.Next() {
		property, err := scanProperty(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, property)
	}
	if rows.Err() != nil {
		return nil, 0, rows.Err()
	}
	return items, total, nil
}

type UpdateParams struct {
	Name    *string
	Address *string
}

func (r *Repository) Update(ctx context.Context, organizationID, id uuid.UUID, params UpdateParams) (Property, error) {
	row := r.pool.QueryRow(ctx, `
		UPDATE properties SET
			name = COALESCE($3, name),
			address = COALESCE($4, address),
			updated_at = now()
		WHERE id = $1 AND organization_id = $2
		RETURNING `+propertyColumns,
		id, organizationID, params.Name, params.Address,
	)
	property, err := scanProperty(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return Property{}, ErrNotFound
	}
	return property, err
}

func scanProperty(row pgx.Row) (Property, error) {
	var p Property
	err := row.Scan(
		&p.ID, &p.OrganizationID, &p.AssetReference, &p.Name, &p.Address, &p.Status,
		&p.CostBasisCents, &p.SaleAmountCents, &p.AcquisitionPipelineID, &p.DisposalPipelineID,
		&p.AcquiredAt, &p.TransferredAt, &p.CreatedAt, &p.UpdatedAt,
	)
	return p, err
}
