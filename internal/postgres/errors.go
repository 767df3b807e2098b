package postgres

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ariefcatur/go-marketplace-orders/internal/apperr"
)

const (
	codeUniqueViolation      = "23505"
	codeCheckViolation       = "23514"
	codeForeignKeyViolation  = "23503"
	codeSerializationFailure = "40001"
	codeDeadlockDetected     = "40P01"
)

// mapError translates driver errors into the apperr taxonomy. notFound is
// returned (wrapped) for pgx.ErrNoRows when given.
func mapError(err error, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) && notFound != nil {
		return notFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeUniqueViolation:
			return apperr.Wrap(apperr.KindConflict, "store.duplicate", err)
		case codeCheckViolation:
			return apperr.Wrap(apperr.KindConflict, "store.constraint", err)
		case codeForeignKeyViolation:
			return apperr.Wrap(apperr.KindNotFound, "store.missing_reference", err)
		case codeSerializationFailure, codeDeadlockDetected:
			return apperr.Wrap(apperr.KindConflict, "store.concurrent_update", err)
		}
	}
	return apperr.Wrap(apperr.KindInternal, "store.failure", err)
}

func notFoundf(sentinel error, id string) error {
	return fmt.Errorf("%w: %s", sentinel, id)
}
