// Package txn provides the unit-of-work contract that scopes every public
// operation to exactly one store transaction.
package txn

import "context"

// UnitOfWork runs fn inside a transaction. The transaction commits when fn
// returns nil and rolls back otherwise. Implementations carry the transaction
// in the ctx passed to fn; calling RunInTx with such a ctx joins the existing
// transaction instead of opening a new one.
type UnitOfWork interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// ExecuteWithResult runs fn within uow and returns its result.
func ExecuteWithResult[T any](ctx context.Context, uow UnitOfWork, fn func(ctx context.Context) (T, error)) (T, error) {
	var result T
	err := uow.RunInTx(ctx, func(ctx context.Context) error {
		var fnErr error
		result, fnErr = fn(ctx)
		return fnErr
	})
	if err != nil {
		var zero T
		return zero, err
	}
	return result, nil
}

// Noop runs fn directly. Useful for read paths and tests that do not need atomicity.
type Noop struct{}

func (Noop) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

var _ UnitOfWork = Noop{}
