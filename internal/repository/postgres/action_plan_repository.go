package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

type actionPlanRepository struct {
	db *DB
}

func NewActionPlanRepository(db *DB) *actionPlanRepository {
	return &actionPlanRepository{db: db}
}

type planRow struct {
	ID        string `db:"id"`
	SKU       string `db:"sku"`
	ProductID string `db:"product_id"`
	Items     string `db:"items"`
	Status    string `db:"status"`
	Source    string `db:"source"`
	Language  string `db:"language"`
	Version   int    `db:"version"`
	CreatedBy string `db:"created_by"`
	CreatedAt string `db:"created_at"`
	UpdatedAt string `db:"updated_at"`
}

const planColumns = `id, sku, product_id, items, status, source, language, version, created_by, created_at, updated_at`

func (r *actionPlanRepository) Create(ctx context.Context, plan *domain.ActionPlan) error {
	items, err := json.Marshal(plan.Items)
	if err != nil {
		return fmt.Errorf("failed to encode plan items: %w", err)
	}

	query := r.db.Rebind(`INSERT INTO action_plans (` + planColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	_, err = r.db.ExecContext(ctx, query,
		plan.ID, plan.SKU, plan.ProductID, string(items), string(plan.Status), string(plan.Source),
		plan.Language, plan.Version, plan.CreatedBy, formatTime(plan.CreatedAt), formatTime(plan.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("%w: %s", domain.ErrDuplicatePlan, plan.ID)
	}
	if err != nil {
		return fmt.Errorf("failed to insert action plan %s: %w", plan.ID, err)
	}
	return nil
}

func (r *actionPlanRepository) Get(ctx context.Context, id string) (*domain.ActionPlan, error) {
	var row planRow
	err := r.db.GetContext(ctx, &row, r.db.Rebind(`SELECT `+planColumns+` FROM action_plans WHERE id = ?`), id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrPlanNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load action plan %s: %w", id, err)
	}
	return row.toDomain()
}

// UpdateStatus writes only when the stored status still equals from, so two
// concurrent transitions of one plan cannot both succeed.
func (r *actionPlanRepository) UpdateStatus(ctx context.Context, id string, from, to domain.PlanStatus, updatedAt time.Time) (bool, error) {
	query := r.db.Rebind(`UPDATE action_plans SET status = ?, updated_at = ? WHERE id = ? AND status = ?`)
	res, err := r.db.ExecContext(ctx, query, string(to), formatTime(updatedAt), id, string(from))
	if err != nil {
		return false, fmt.Errorf("failed to update action plan %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows: %w", err)
	}
	if n > 0 {
		return true, nil
	}

	var exists int
	err = r.db.GetContext(ctx, &exists, r.db.Rebind(`SELECT COUNT(1) FROM action_plans WHERE id = ?`), id)
	if err != nil {
		return false, fmt.Errorf("failed to check action plan %s: %w", id, err)
	}
	if exists == 0 {
		return false, domain.ErrPlanNotFound
	}
	return false, nil
}

func (r *actionPlanRepository) ListBySKU(ctx context.Context, sku string) ([]*domain.ActionPlan, error) {
	var rows []planRow
	query := r.db.Rebind(`SELECT ` + planColumns + ` FROM action_plans WHERE sku = ? ORDER BY created_at, id`)
	if err := r.db.SelectContext(ctx, &rows, query, sku); err != nil {
		return nil, fmt.Errorf("failed to list action plans for %s: %w", sku, err)
	}

	plans := make([]*domain.ActionPlan, 0, len(rows))
	for _, row := range rows {
		plan, err := row.toDomain()
		if err != nil {
			return nil, err
		}
		plans = append(plans, plan)
	}
	return plans, nil
}

func (row planRow) toDomain() (*domain.ActionPlan, error) {
	var items []domain.ActionItem
	if err := json.Unmarshal([]byte(row.Items), &items); err != nil {
		return nil, fmt.Errorf("failed to decode items of plan %s: %w", row.ID, err)
	}
	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return nil, err
	}
	updated, err := parseTime(row.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &domain.ActionPlan{
		ID:        row.ID,
		SKU:       row.SKU,
		ProductID: row.ProductID,
		Items:     items,
		Status:    domain.PlanStatus(row.Status),
		Source:    domain.PlanSource(row.Source),
		Language:  row.Language,
		Version:   row.Version,
		CreatedBy: row.CreatedBy,
		CreatedAt: created,
		UpdatedAt: updated,
	}, nil
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		switch liteErr.Code() {
		case sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY, sqlite3.SQLITE_CONSTRAINT_UNIQUE:
			return true
		case sqlite3.SQLITE_CONSTRAINT:
			return strings.Contains(liteErr.Error(), "UNIQUE constraint failed")
		}
	}
	return false
}
