package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/inventory"
)

type inventoryRepo struct{ m *TxManager }

// LockRecord takes the row lock that serializes concurrent reservations of
// the same product.
func (r inventoryRepo) LockRecord(ctx context.Context, productID string) (inventory.Record, error) {
	return r.find(ctx, `SELECT product_id, quantity, reserved, updated_at FROM inventory WHERE product_id=$1 FOR UPDATE`, productID)
}

func (r inventoryRepo) FindRecord(ctx context.Context, productID string) (inventory.Record, error) {
	return r.find(ctx, `SELECT product_id, quantity, reserved, updated_at FROM inventory WHERE product_id=$1`, productID)
}

func (r inventoryRepo) find(ctx context.Context, sql, productID string) (inventory.Record, error) {
	var rec inventory.Record
	err := r.m.conn(ctx).QueryRow(ctx, sql, productID).Scan(&rec.ProductID, &rec.Quantity, &rec.Reserved, &rec.UpdatedAt)
	if err != nil {
		return inventory.Record{}, mapError(err, notFoundf(inventory.ErrProductNotFound, productID))
	}
	return rec, nil
}

func (r inventoryRepo) InsertRecord(ctx context.Context, rec inventory.Record) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO inventory(product_id, quantity, reserved, updated_at) VALUES ($1,$2,$3,$4)`,
		rec.ProductID, rec.Quantity, rec.Reserved, rec.UpdatedAt,
	)
	return mapError(err, nil)
}

// UpdateRecord writes counters computed under LockRecord. The CHECK
// constraints reject negative counters as a last line of defence.
func (r inventoryRepo) UpdateRecord(ctx context.Context, rec inventory.Record) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `
		UPDATE inventory SET quantity=$2, reserved=$3, updated_at=$4 WHERE product_id=$1`,
		rec.ProductID, rec.Quantity, rec.Reserved, rec.UpdatedAt,
	)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(inventory.ErrProductNotFound, rec.ProductID)
	}
	return nil
}

func (r inventoryRepo) AppendTransaction(ctx context.Context, tx inventory.Transaction) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO inventory_transactions(id, product_id, delta, reason, related_type, related_id, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		tx.ID, tx.ProductID, tx.Delta, string(tx.Reason), tx.RelatedType, tx.RelatedID, tx.CreatedAt,
	)
	return mapError(err, nil)
}

func (r inventoryRepo) ListTransactions(ctx context.Context, productID string) ([]inventory.Transaction, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT id, product_id, delta, reason, related_type, related_id, created_at
		FROM inventory_transactions WHERE product_id=$1 ORDER BY created_at, id`, productID)
	if err != nil {
		return nil, mapError(err, nil)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (inventory.Transaction, error) {
		var (
			tx     inventory.Transaction
			reason string
		)
		err := row.Scan(&tx.ID, &tx.ProductID, &tx.Delta, &reason, &tx.RelatedType, &tx.RelatedID, &tx.CreatedAt)
		tx.Reason = inventory.Reason(reason)
		return tx, err
	})
	return out, mapError(err, nil)
}
