package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
	"github.com/ariefcatur/go-marketplace-orders/internal/outbox"
)

var errOutboxNotFound = apperr.New(apperr.KindNotFound, "outbox.not_found", "outbox message not found")

type outboxRepo struct{ m *TxManager }

func (r outboxRepo) Append(ctx context.Context, msg outbox.Message) error {
	headers, err := marshalNullable(msg.Headers)
	if err != nil {
		return fmt.Errorf("outbox headers: %w", err)
	}
	_, err = r.m.conn(ctx).Exec(ctx, `
		INSERT INTO outbox(id, topic, key, payload, headers, created_at)
		VALUES ($1,$2,$3,$4,$5,$6)`,
		msg.ID, msg.Topic, msg.Key, msg.Payload, headers, msg.CreatedAt,
	)
	return mapError(err, nil)
}

// ListPending skips rows another transaction holds locked.
func (r outboxRepo) ListPending(ctx context.Context, limit int) ([]outbox.Message, error) {
	rows, err := r.m.conn(ctx).Query(ctx, `
		SELECT id, topic, key, payload, headers, created_at, attempts, last_error
		FROM outbox WHERE dispatched_at IS NULL AND failed_at IS NULL
		ORDER BY id LIMIT $1
		FOR UPDATE SKIP LOCKED`, limit)
	if err != nil {
		return nil, mapError(err, nil)
	}
	out, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (outbox.Message, error) {
		var (
			msg     outbox.Message
			headers []byte
		)
		if err := row.Scan(&msg.ID, &msg.Topic, &msg.Key, &msg.Payload, &headers, &msg.CreatedAt, &msg.Attempts, &msg.LastError); err != nil {
			return outbox.Message{}, err
		}
		if len(headers) > 0 {
			if err := json.Unmarshal(headers, &msg.Headers); err != nil {
				return outbox.Message{}, fmt.Errorf("outbox headers: %w", err)
			}
		}
		return msg, nil
	})
	return out, mapError(err, nil)
}

func (r outboxRepo) MarkDispatched(ctx context.Context, id string, at time.Time) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `UPDATE outbox SET dispatched_at=$2, attempts=attempts+1, last_error='' WHERE id=$1`, id, at)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(errOutboxNotFound, id)
	}
	return nil
}

func (r outboxRepo) RecordFailure(ctx context.Context, id string, reason string) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `UPDATE outbox SET attempts=attempts+1, last_error=$2 WHERE id=$1`, id, reason)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(errOutboxNotFound, id)
	}
	return nil
}

func (r outboxRepo) Park(ctx context.Context, id string, reason string, at time.Time) error {
	ct, err := r.m.conn(ctx).Exec(ctx, `UPDATE outbox SET attempts=attempts+1, last_error=$2, failed_at=$3 WHERE id=$1`, id, reason, at)
	if err != nil {
		return mapError(err, nil)
	}
	if ct.RowsAffected() != 1 {
		return notFoundf(errOutboxNotFound, id)
	}
	return nil
}
