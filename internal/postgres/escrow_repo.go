package postgres

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/escrow"
)

type escrowRepo struct{ m *TxManager }

const escrowColumns = `id, order_id, gross_amount, fee_amount, amount, currency, status, created_at, updated_at`

func (r escrowRepo) Insert(ctx context.Context, acc escrow.Account) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO escrow_accounts(`+escrowColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)`,
		acc.ID, acc.OrderID, acc.GrossAmount, acc.FeeAmount, acc.Amount, acc.Currency, string(acc.Status), acc.CreatedAt, acc.UpdatedAt,
	)
	return mapError(err, nil)
}

func (r escrowRepo) LockByID(ctx context.Context, id string) (escrow.Account, error) {
	return r.find(ctx, `SELECT `+escrowColumns+` FROM escrow_accounts WHERE id=$1 FOR UPDATE`, id)
}

func (r escrowRepo) FindByOrderID(ctx context.Context, orderID string) (escrow.Account, error) {
	return r.find(ctx, `SELECT `+escrowColumns+` FROM escrow_accounts WHERE order_id=$1`, orderID)
}

func (r escrowRepo) find(ctx context.Context, sql, key string) (escrow.Account, error) {
	var (
		acc    escrow.Account
		status string
	)
	err := r.m.conn(ctx).QueryRow(ctx, sql, key).Scan(
		&acc.ID, &acc.OrderID, &acc.GrossAmount, &acc.FeeAmount, &acc.Amount, &acc.Currency, &status, &acc.CreatedAt, &acc.UpdatedAt,
	)
	if err != nil {
		return escrow.Account{}, mapError(err, notFoundf(escrow.ErrNotFound, key))
	}
	acc.Status = escrow.Status(status)
	return acc, nil
}

func (r escrowRepo) UpdateStatus(ctx context.Context, id string, status escrow.Status, at time.Time) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `UPDATE escrow_accounts SET status=$2, updated_at=$3 WHERE id=$1`, id, string(status), at)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(escrow.ErrNotFound, id)
	}
	return nil
}

func (r escrowRepo) AppendEvent(ctx context.Context, ev escrow.Event) error {
	_, err := r.m.conn(ctx).Exec(ctx, `
		INSERT INTO escrow_events(id, escrow_id, status, actor_id, note, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		ev.ID, ev.EscrowID, string(ev.Status), ev.ActorID, ev.Note, ev.CreatedAt,
	)
	return mapError(err, nil)
}

func (r escrowRepo) ListEvents(ctx context.Context, escrowID string) ([]escrow.Event, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT id, escrow_id, status, actor_id, note, created_at
		FROM escrow_events WHERE escrow_id=$1 ORDER BY created_at, id`, escrowID)
	if err != nil {
		return nil, mapError(err, nil)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (escrow.Event, error) {
		var (
			ev     escrow.Event
			status string
		)
		err := row.Scan(&ev.ID, &ev.EscrowID, &status, &ev.ActorID, &ev.Note, &ev.CreatedAt)
		ev.Status = escrow.Status(status)
		return ev, err
	})
	return out, mapError(err, nil)
}
