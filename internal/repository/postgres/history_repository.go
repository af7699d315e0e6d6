package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/jmoiron/sqlx"
)

const dateLayout = "2006-01-02"

type historyRepository struct {
	db  *DB
	now func() time.Time
}

func NewHistoryRepository(db *DB) *historyRepository {
	return &historyRepository{db: db, now: time.Now}
}

// DailyHistory returns per-day outbound totals for the last days calendar days,
// today included. Days without movements are omitted.
func (r *historyRepository) DailyHistory(ctx context.Context, sku string, days int) ([]domain.DemandSample, error) {
	if days <= 0 {
		return []domain.DemandSample{}, nil
	}
	today := r.today()
	since := today.AddDate(0, 0, -(days - 1))
	return r.dailyBetween(ctx, sku, since, today)
}

// WeeklyHistory returns Monday-anchored weekly totals for the complete weeks
// inside the last days calendar days. The running week is excluded and empty
// weeks are reported as zero.
func (r *historyRepository) WeeklyHistory(ctx context.Context, sku string, days int) ([]domain.WeeklySample, error) {
	if days <= 0 {
		return []domain.WeeklySample{}, nil
	}
	today := r.today()
	end := mondayOf(today)
	start := mondayOf(today.AddDate(0, 0, -(days - 1)))
	if start.Before(today.AddDate(0, 0, -(days - 1))) {
		start = start.AddDate(0, 0, 7)
	}
	if !start.Before(end) {
		return []domain.WeeklySample{}, nil
	}

	daily, err := r.dailyBetween(ctx, sku, start, end.AddDate(0, 0, -1))
	if err != nil {
		return nil, err
	}

	totals := make(map[string]float64)
	for _, d := range daily {
		day, err := time.Parse(dateLayout, d.Date)
		if err != nil {
			continue
		}
		totals[mondayOf(day).Format(dateLayout)] += d.Quantity
	}

	var weeks []domain.WeeklySample
	for w := start; w.Before(end); w = w.AddDate(0, 0, 7) {
		key := w.Format(dateLayout)
		weeks = append(weeks, domain.WeeklySample{WeekStart: key, Quantity: totals[key]})
	}
	return weeks, nil
}

func (r *historyRepository) dailyBetween(ctx context.Context, sku string, from, to time.Time) ([]domain.DemandSample, error) {
	query := r.db.Rebind(`
		SELECT CAST(movement_date AS TEXT) AS date, SUM(outbound_quantity) AS quantity
		FROM stock_movements
		WHERE sku = ? AND movement_date >= ? AND movement_date <= ?
		GROUP BY movement_date
		ORDER BY movement_date
	`)

	samples := []domain.DemandSample{}
	if err := r.db.SelectContext(ctx, &samples, query, sku, from.Format(dateLayout), to.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("failed to load outbound history for %s: %w", sku, err)
	}
	for i := range samples {
		// Keep the day part only.
		if len(samples[i].Date) > len(dateLayout) {
			samples[i].Date = samples[i].Date[:len(dateLayout)]
		}
	}
	return samples, nil
}

// RecordMovements appends outbound movements in one transaction.
func (r *historyRepository) RecordMovements(ctx context.Context, movements []domain.Movement) error {
	if len(movements) == 0 {
		return nil
	}
	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		stmt, err := tx.PreparexContext(ctx, tx.Rebind(`
			INSERT INTO stock_movements (sku, movement_date, outbound_quantity) VALUES (?, ?, ?)
		`))
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, m := range movements {
			day, err := time.Parse(dateLayout, m.Date)
			if err != nil {
				return &domain.ValidationError{Field: "date", Reason: fmt.Sprintf("%q is not YYYY-MM-DD", m.Date)}
			}
			if m.Quantity < 0 {
				return &domain.ValidationError{Field: "quantity", Reason: "must not be negative"}
			}
			if _, err := stmt.ExecContext(ctx, m.SKU, day.Format(dateLayout), m.Quantity); err != nil {
				return fmt.Errorf("failed to insert movement for %s: %w", m.SKU, err)
			}
		}
		return nil
	})
}

func (r *historyRepository) today() time.Time {
	now := r.now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}

func mondayOf(day time.Time) time.Time {
	offset := (int(day.Weekday()) + 6) % 7
	return day.AddDate(0, 0, -offset)
}
