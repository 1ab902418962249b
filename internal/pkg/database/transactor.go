package database

import "context"

// Transactor runs fn inside one unit of work. Repositories called with the
// ctx passed to fn join the same transaction. Any error from fn rolls back
// every write made through that ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
