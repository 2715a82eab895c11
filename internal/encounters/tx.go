package encounters

import (
	"context"

	"laborcurve/internal/db"
)

// PgTransactor adapts db.Store to Transactor.
type PgTransactor struct {
	Store *db.Store
}

// InTx runs fn inside a PostgreSQL transaction.
func (t PgTransactor) InTx(ctx context.Context, fn func(r Repos) error) error {
	return t.Store.InTx(ctx, func(r *db.Repositories) error {
		return fn(ReposFrom(r))
	})
}

// ReposFrom exposes a db repository set through the service interfaces.
func ReposFrom(r *db.Repositories) Repos {
	return Repos{
		Encounters: r.Encounters,
		Events:     r.Events,
		Settings:   r.Settings,
	}
}
