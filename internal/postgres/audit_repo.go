package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/audit"
)

type auditRepo struct{ m *TxManager }

func (r auditRepo) Append(ctx context.Context, e audit.Entry) error {
	diff, err := marshalNullable(e.Diff)
	if err != nil {
		return fmt.Errorf("audit diff: %w", err)
	}
	meta, err := marshalNullable(e.Metadata)
	if err != nil {
		return fmt.Errorf("audit metadata: %w", err)
	}
	_, err = r.m.conn(ctx).Exec(ctx, `
		INSERT INTO audit_logs(id, actor_id, action, target_ref, diff, metadata, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7)`,
		e.ID, e.ActorID, e.Action, e.TargetRef, diff, meta, e.CreatedAt,
	)
	return mapError(err, nil)
}

func (r auditRepo) ListByTarget(ctx context.Context, targetRef string) ([]audit.Entry, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT id, actor_id, action, target_ref, diff, metadata, created_at
		FROM audit_logs WHERE target_ref=$1 ORDER BY created_at, id`, targetRef)
	if err != nil {
		return nil, mapError(err, nil)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (audit.Entry, error) {
		var (
			e          audit.Entry
			diff, meta []byte
		)
		if err := row.Scan(&e.ID, &e.ActorID, &e.Action, &e.TargetRef, &diff, &meta, &e.CreatedAt); err != nil {
			return audit.Entry{}, err
		}
		if len(diff) > 0 {
			if err := json.Unmarshal(diff, &e.Diff); err != nil {
				return audit.Entry{}, fmt.Errorf("audit diff: %w", err)
			}
		}
		if len(meta) > 0 {
			if err := json.Unmarshal(meta, &e.Metadata); err != nil {
				return audit.Entry{}, fmt.Errorf("audit metadata: %w", err)
			}
		}
		return e, nil
	})
	return out, mapError(err, nil)
}

// marshalNullable stores empty maps as SQL NULL.
func marshalNullable[M ~map[K]V, K comparable, V any](m M) ([]byte, error) {
	if len(m) == 0 {
		return nil, nil
	}
	return json.Marshal(m)
}
