package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/orders"
)

type orderRepo struct{ m *TxManager }

const orderColumns = `id, buyer_id, seller_id, shop_id, shipping_address_id, billing_address_id,
	total_amount, currency, status, placed_at, updated_at`

func (r orderRepo) Insert(ctx context.Context, o orders.Order) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO orders(`+orderColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.BuyerID, o.SellerID, o.ShopID, o.ShippingAddressID, o.BillingAddressID,
		o.TotalAmount, o.Currency, string(o.Status), o.PlacedAt, o.UpdatedAt,
	)
	return mapError(err, nil)
}

func (r orderRepo) InsertItem(ctx context.Context, it orders.Item) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO order_items(id, order_id, product_id, sku, unit_price, quantity, line_total, tax_amount, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		it.ID, it.OrderID, it.ProductID, it.SKU, it.UnitPrice, it.Quantity, it.LineTotal, it.TaxAmount, it.CreatedAt,
	)
	return mapError(err, nil)
}

func (r orderRepo) LockByID(ctx context.Context, id string) (orders.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1 FOR UPDATE`, id)
}

func (r orderRepo) FindByID(ctx context.Context, id string) (orders.Order, error) {
	return r.find(ctx, `SELECT `+orderColumns+` FROM orders WHERE id=$1`, id)
}

func (r orderRepo) find(ctx context.Context, sql, id string) (orders.Order, error) {
	var (
		o      orders.Order
		status string
	)
	err := r.m.conn(ctx).QueryRow(ctx, sql, id).Scan(
		&o.ID, &o.BuyerID, &o.SellerID, &o.ShopID, &o.ShippingAddressID, &o.BillingAddressID,
		&o.TotalAmount, &o.Currency, &status, &o.PlacedAt, &o.UpdatedAt,
	)
	if err != nil {
		return orders.Order{}, mapError(err, notFoundf(orders.ErrOrderNotFound, id))
	}
	o.Status = orders.Status(status)
	return o, nil
}

func (r orderRepo) UpdateStatus(ctx context.Context, id string, status orders.Status, at time.Time) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), at)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(orders.ErrOrderNotFound, id)
	}
	return nil
}

func (r orderRepo) ListItems(ctx context.Context, orderID string) ([]orders.Item, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT id, order_id, product_id, sku, unit_price, quantity, line_total, tax_amount, created_at
		FROM order_items WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, mapError(err, nil)
	}
	items, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.Item, error) {
		var it orders.Item
		err := row.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.SKU, &it.UnitPrice, &it.Quantity, &it.LineTotal, &it.TaxAmount, &it.CreatedAt)
		return it, err
	})
	return items, mapError(err, nil)
}

func (r orderRepo) AppendHistory(ctx context.Context, h orders.StatusHistory) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO order_status_history(id, order_id, status, actor_id, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		h.ID, h.OrderID, string(h.Status), h.ActorID, h.Note, h.CreatedAt,
	)
	return mapError(err, nil)
}

func (r orderRepo) ListHistory(ctx context.Context, orderID string) ([]orders.StatusHistory, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT id, order_id, status, actor_id, note, created_at
		FROM order_status_history WHERE order_id=$1 ORDER BY created_at, id`, orderID)
	if err != nil {
		return nil, mapError(err, nil)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (orders.StatusHistory, error) {
		var (
			h      orders.StatusHistory
			status string
		)
		err := row.Scan(&h.ID, &h.OrderID, &status, &h.ActorID, &h.Note, &h.CreatedAt)
		h.Status = orders.Status(status)
		return h, err
	})
	return out, mapError(err, nil)
}

type addressRepo struct{ m *TxManager }

func (r addressRepo) Insert(ctx context.Context, a orders.Address) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO addresses(id, user_id, kind, full_name, phone, line1, line2, city, region, postal_code, country, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		a.ID, a.UserID, a.Kind, a.FullName, a.Phone, a.Line1, a.Line2, a.City, a.Region, a.PostalCode, a.Country, a.CreatedAt,
	)
	return mapError(err, nil)
}

func (r addressRepo) FindByID(ctx context.Context, id string) (orders.Address, error) {
	var a orders.Address
	err := r.m.conn(ctx).QueryRow(ctx, `
		SELECT id, user_id, kind, full_name, phone, line1, line2, city, region, postal_code, country, created_at
		FROM addresses WHERE id=$1`, id).Scan(
		&a.ID, &a.UserID, &a.Kind, &a.FullName, &a.Phone, &a.Line1, &a.Line2, &a.City, &a.Region, &a.PostalCode, &a.Country, &a.CreatedAt,
	)
	if err != nil {
		return orders.Address{}, mapError(err, notFoundf(orders.ErrAddressNotFound, id))
	}
	return a, nil
}
