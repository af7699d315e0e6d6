package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/jmoiron/sqlx"
)

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) *productRepository {
	return &productRepository{db: db}
}

func (r *productRepository) ListProductsByCategory(ctx context.Context, category string) ([]domain.PeerProduct, error) {
	query := r.db.Rebind(`
		SELECT sku, daily_avg, daily_std_dev
		FROM products
		WHERE category = ?
		ORDER BY sku
	`)

	peers := []domain.PeerProduct{}
	if err := r.db.SelectContext(ctx, &peers, query, strings.TrimSpace(category)); err != nil {
		return nil, fmt.Errorf("failed to list products in category %q: %w", category, err)
	}
	return peers, nil
}

// ProductCategory returns "" for unknown SKUs.
func (r *productRepository) ProductCategory(ctx context.Context, sku string) (string, error) {
	var category string
	err := r.db.GetContext(ctx, &category, r.db.Rebind(`SELECT category FROM products WHERE sku = ?`), sku)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load category of %s: %w", sku, err)
	}
	return category, nil
}

func (r *productRepository) UpsertProducts(ctx context.Context, products []domain.Product) error {
	if len(products) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		query := tx.Rebind(`
			INSERT INTO products (sku, name, category, daily_avg, daily_std_dev)
			VALUES (?, ?, ?, ?, ?)
			ON CONFLICT (sku)
			DO UPDATE SET
				name = excluded.name,
				category = excluded.category,
				daily_avg = excluded.daily_avg,
				daily_std_dev = excluded.daily_std_dev,
				updated_at = CURRENT_TIMESTAMP
		`)
		for _, p := range products {
			if strings.TrimSpace(p.SKU) == "" {
				return &domain.ValidationError{Field: "sku", Reason: "must not be empty"}
			}
			if _, err := tx.ExecContext(ctx, query, p.SKU, p.Name, strings.TrimSpace(p.Category), p.DailyAvg, p.DailyStdDev); err != nil {
				return fmt.Errorf("failed to upsert product %s: %w", p.SKU, err)
			}
		}
		return nil
	})
}
