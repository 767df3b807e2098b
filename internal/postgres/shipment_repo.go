package postgres

import (
	"context"
	"time"

	"github.com/ariefcatur/go-marketplace-orders/internal/shipment"
)

type shipmentRepo struct{ m *TxManager }

func (r shipmentRepo) Insert(ctx context.Context, rec shipment.Record) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO shipments(id, order_id, status, created_at, updated_at) VALUES ($1,$2,$3,$4,$5)`,
		rec.ID, rec.OrderID, string(rec.Status), rec.CreatedAt, rec.UpdatedAt,
	)
	return mapError(err, nil)
}

func (r shipmentRepo) FindByOrderID(ctx context.Context, orderID string) (shipment.Record, error) {
	var (
		rec    shipment.Record
		status string
	)
	err := r.m.conn(ctx).QueryRow(ctx, `
		SELECT id, order_id, status, created_at, updated_at FROM shipments WHERE order_id=$1`, orderID).Scan(
		&rec.ID, &rec.OrderID, &status, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return shipment.Record{}, mapError(err, notFoundf(shipment.ErrNotFound, orderID))
	}
	rec.Status = shipment.Status(status)
	return rec, nil
}

func (r shipmentRepo) UpdateStatus(ctx context.Context, orderID string, status shipment.Status, at time.Time) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `UPDATE shipments SET status=$2, updated_at=$3 WHERE order_id=$1`, orderID, string(status), at)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(shipment.ErrNotFound, orderID)
	}
	return nil
}
