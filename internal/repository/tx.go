package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres error codes that mean a concurrent transaction won the race.
// Deadlocks (40P01) and check violations (23514) stay infrastructure errors.
const (
	codeSerializationFailure = "40001"
	codeLockNotAvailable     = "55P03"
	codeExclusionViolation   = "23P01"
)

type txRunner struct {
	db          *pgxpool.Pool
	lockTimeout time.Duration
}

// serializable runs fn in a SERIALIZABLE transaction. The transaction is
// rolled back before any error is returned; errors that signal a lost race
// come back as *domain.CapacityConflictError for resource.
func (r txRunner) serializable(ctx context.Context, op, resource string, fn func(pgx.Tx) error) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return domain.NewInfrastructure(op, fmt.Errorf("begin tx: %w", err))
	}
	defer tx.Rollback(ctx)

	if r.lockTimeout > 0 {
		if _, err := tx.Exec(ctx, `SELECT set_config('lock_timeout', $1, true)`, lockTimeoutSetting(r.lockTimeout)); err != nil {
			return classify(op, resource, fmt.Errorf("set lock_timeout: %w", err))
		}
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback(ctx)
		return classify(op, resource, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return classify(op, resource, fmt.Errorf("commit: %w", err))
	}
	return nil
}

func lockTimeoutSetting(d time.Duration) string {
	ms := d.Milliseconds()
	if ms < 1 {
		ms = 1
	}
	return fmt.Sprintf("%dms", ms)
}

func classify(op, resource string, err error) error {
	if errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrCapacityConflict) {
		return err
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case codeSerializationFailure, codeLockNotAvailable, codeExclusionViolation:
			return &domain.CapacityConflictError{
				Resource:  resource,
				Remaining: domain.RemainingUnknown,
				Cause:     err,
			}
		}
	}
	return domain.NewInfrastructure(op, err)
}

func blockingStatuses() []string {
	out := make([]string, 0, len(domain.BlockingStatuses))
	for _, s := range domain.BlockingStatuses {
		out = append(out, string(s))
	}
	return out
}
