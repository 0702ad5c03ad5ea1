// Package postgres implements the persistence interfaces of the
// service, production, catalog and gateway packages over pgx.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/verzog/merchant/internal/catalog"
	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/gateway"
	"github.com/verzog/merchant/internal/production"
	"github.com/verzog/merchant/internal/service"
)

// Store is the PostgreSQL-backed store shared by all services.
type Store struct {
	pool *pgxpool.Pool
}

// Compile-time checks that Store covers every persistence surface.
var (
	_ service.BillStore     = (*Store)(nil)
	_ service.CheckoutStore = (*Store)(nil)
	_ service.ProductStore  = (*Store)(nil)
	_ production.Store      = (*Store)(nil)
	_ catalog.Store         = (*Store)(nil)
	_ gateway.Store         = (*Store)(nil)
)

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// uniqueViolation is the PostgreSQL error code for a unique index hit.
const uniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNoRows(err error) bool {
	return errors.Is(err, pgx.ErrNoRows)
}

// nullTime maps the zero time to SQL NULL.
func nullTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

// timeOrZero maps SQL NULL back to the zero time.
func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}

// inTx runs fn in a transaction, rolling back on error.
func (s *Store) inTx(ctx context.Context, fn func(tx pgx.Tx) error) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return domain.Internal(err, "postgres.tx", "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return domain.Internal(err, "postgres.tx", "failed to commit transaction")
	}
	return nil
}
