package contracts

import "context"

// TxManager runs fn inside a storage transaction. Repositories called with
// the ctx passed to fn join that transaction.
type TxManager interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
