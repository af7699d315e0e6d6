package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/autopo-replenish/internal/domain"
	"github.com/jackc/pgx/v5"
)

var movementColumns = []string{"sku", "movement_date", "outbound_quantity"}

// CopyMovements bulk loads movements over the Postgres COPY protocol.
func CopyMovements(ctx context.Context, databaseURL string, movements []domain.Movement) (int64, error) {
	rows, err := movementRows(movements)
	if err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, nil
	}

	conn, err := pgx.Connect(ctx, databaseURL)
	if err != nil {
		return 0, fmt.Errorf("failed to connect for copy: %w", err)
	}
	defer conn.Close(ctx)

	n, err := conn.CopyFrom(ctx, pgx.Identifier{"stock_movements"}, movementColumns, pgx.CopyFromRows(rows))
	if err != nil {
		return n, fmt.Errorf("failed to copy movements: %w", err)
	}
	return n, nil
}

func movementRows(movements []domain.Movement) ([][]any, error) {
	rows := make([][]any, 0, len(movements))
	for i, m := range movements {
		if m.SKU == "" {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("movements[%d].sku", i), Reason: "must not be empty"}
		}
		day, err := time.Parse(dateLayout, m.Date)
		if err != nil {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("movements[%d].date", i), Reason: fmt.Sprintf("%q is not YYYY-MM-DD", m.Date)}
		}
		if m.Quantity < 0 {
			return nil, &domain.ValidationError{Field: fmt.Sprintf("movements[%d].quantity", i), Reason: "must not be negative"}
		}
		rows = append(rows, []any{m.SKU, day, m.Quantity})
	}
	return rows, nil
}
