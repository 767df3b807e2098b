package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/lifecycle"
)

type compensationRepo struct{ m *TxManager }

func (r compensationRepo) Append(ctx context.Context, c lifecycle.Compensation) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO order_compensations(order_id, seq, kind, product_id, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		c.OrderID, c.Seq, string(c.Kind), c.ProductID, c.Quantity, c.CreatedAt,
	)
	return mapError(err, nil)
}

func (r compensationRepo) ListPending(ctx context.Context, orderID string) ([]lifecycle.Compensation, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT order_id, seq, kind, product_id, quantity, created_at
		FROM order_compensations WHERE order_id=$1 AND applied_at IS NULL
		ORDER BY seq`, orderID)
	if err != nil {
		return nil, mapError(err, nil)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (lifecycle.Compensation, error) {
		var (
			c    lifecycle.Compensation
			kind string
		)
		err := row.Scan(&c.OrderID, &c.Seq, &kind, &c.ProductID, &c.Quantity, &c.CreatedAt)
		c.Kind = lifecycle.CompensationKind(kind)
		return c, err
	})
	return out, mapError(err, nil)
}

func (r compensationRepo) MarkApplied(ctx context.Context, orderID string, seq int, at time.Time) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		UPDATE order_compensations SET applied_at=$3 WHERE order_id=$1 AND seq=$2 AND applied_at IS NULL`,
		orderID, seq, at)
	return mapError(err, nil)
}
