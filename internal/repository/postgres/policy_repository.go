package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/jmoiron/sqlx"
)

type policyRepository struct {
	db  *DB
	now func() time.Time
}

func NewPolicyRepository(db *DB) *policyRepository {
	return &policyRepository{db: db, now: time.Now}
}

type policyRow struct {
	SKU                 string  `db:"sku"`
	ProductName         string  `db:"product_name"`
	ForecastDemand      *int    `db:"forecast_demand"`
	DemandStdDev        *int    `db:"demand_std_dev"`
	LeadTimeDays        int     `db:"lead_time_days"`
	ServiceLevelPercent float64 `db:"service_level_percent"`
	SmoothingAlpha      float64 `db:"smoothing_alpha"`
	CorrelationRho      float64 `db:"correlation_rho"`
	CreatedAt           string  `db:"created_at"`
	UpdatedAt           string  `db:"updated_at"`
}

const policyColumns = `sku, product_name, forecast_demand, demand_std_dev, lead_time_days,
	service_level_percent, smoothing_alpha, correlation_rho, created_at, updated_at`

const upsertPolicySQL = `
	INSERT INTO policy_drafts (` + policyColumns + `)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (sku)
	DO UPDATE SET
		product_name = excluded.product_name,
		forecast_demand = excluded.forecast_demand,
		demand_std_dev = excluded.demand_std_dev,
		lead_time_days = excluded.lead_time_days,
		service_level_percent = excluded.service_level_percent,
		smoothing_alpha = excluded.smoothing_alpha,
		correlation_rho = excluded.correlation_rho,
		updated_at = excluded.updated_at`

func (r *policyRepository) UpsertDraft(ctx context.Context, draft *domain.PolicyDraft) (*domain.PolicyDraft, error) {
	d := *draft
	d.Normalize()
	now := formatTime(r.now())

	// Existing drafts only follow an evaluation when the display name changed.
	query := r.db.Rebind(upsertPolicySQL + `
		WHERE excluded.product_name <> '' AND policy_drafts.product_name <> excluded.product_name`)
	if _, err := r.db.ExecContext(ctx, query, policyArgs(d, now)...); err != nil {
		return nil, fmt.Errorf("failed to upsert policy draft %s: %w", d.SKU, err)
	}
	return r.GetDraft(ctx, d.SKU)
}

func (r *policyRepository) GetDraft(ctx context.Context, sku string) (*domain.PolicyDraft, error) {
	var row policyRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+policyColumns+` FROM policy_drafts WHERE sku = ?`), sku)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPolicyNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load policy draft %s: %w", sku, err)
	}
	return row.toDomain()
}

func (r *policyRepository) SaveDrafts(ctx context.Context, drafts []domain.PolicyDraft) error {
	if len(drafts) == 0 {
		return nil
	}
	now := formatTime(r.now())
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(upsertPolicySQL)
		for _, d := range drafts {
			d.Normalize()
			if _, err := tx.ExecContext(ctx, query, policyArgs(d, now)...); err != nil {
				return fmt.Errorf("failed to save policy draft %s: %w", d.SKU, err)
			}
		}
		return nil
	})
}

func policyArgs(d domain.PolicyDraft, now string) []any {
	return []any{
		d.SKU, d.ProductName, d.ForecastDemand, d.DemandStdDev, d.LeadTimeDays,
		d.ServiceLevelPercent, d.SmoothingAlpha, d.CorrelationRho, now, now,
	}
}

func (row policyRow) toDomain() (*domain.PolicyDraft, error) {
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.PolicyDraft{
		SKU:                 row.SKU,
		ProductName:         row.ProductName,
		ForecastDemand:      row.ForecastDemand,
		DemandStdDev:        row.DemandStdDev,
		LeadTimeDays:        row.LeadTimeDays,
		ServiceLevelPercent: row.ServiceLevelPercent,
		SmoothingAlpha:      row.SmoothingAlpha,
		CorrelationRho:      row.CorrelationRho,
		CreatedAt:           created,
		UpdatedAt:           updated,
	}, nil
}

// Timestamps travel as RFC 3339 text: database/sql renders a scanned Postgres
// timestamptz the same way, and SQLite stores it verbatim.
func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(raw string) (time.Time, error) {
	t, err := time.Parse(time.RFC3339Nano, raw)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid stored timestamp %q: %w", raw, err)
	}
	return t.UTC(), nil
}
