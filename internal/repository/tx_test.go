package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Domenick1991/resortbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify_RaceCodesBecomeConflicts(t *testing.T) {
	for _, code := range []string{codeSerializationFailure, codeLockNotAvailable, codeExclusionViolation} {
		t.Run(code, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: code, Message: "lost race"}
			err := classify("reserve room", "room type Deluxe", fmt.Errorf("insert reservation: %w", pgErr))

			assert.ErrorIs(t, err, domain.ErrCapacityConflict)
			var cErr *domain.CapacityConflictError
			require.True(t, errors.As(err, &cErr))
			assert.Equal(t, "room type Deluxe", cErr.Resource)
			assert.False(t, cErr.RemainingKnown())
			assert.ErrorIs(t, err, pgErr)
		})
	}
}

func TestClassify_DeadlockAndCheckViolationAreInfrastructure(t *testing.T) {
	for _, code := range []string{"40P01", "23514"} {
		t.Run(code, func(t *testing.T) {
			pgErr := &pgconn.PgError{Code: code, Message: "unexpected"}
			err := classify("event signup", "event slot 1", fmt.Errorf("decrement remaining: %w", pgErr))

			assert.ErrorIs(t, err, domain.ErrInfrastructure)
			assert.NotErrorIs(t, err, domain.ErrCapacityConflict)
			assert.ErrorIs(t, err, pgErr)
		})
	}
}

func TestClassify_DomainErrorsPassThrough(t *testing.T) {
	conflict := domain.NewCapacityConflict("event slot 1", 3)
	notFound := domain.NewNotFound("event slot", 1)

	assert.Same(t, conflict, classify("op", "r", conflict))
	assert.Same(t, notFound, classify("op", "r", notFound))
}

func TestClassify_OtherErrorsAreInfrastructure(t *testing.T) {
	err := classify("event signup", "event slot 1", &pgconn.PgError{Code: "08006"})
	assert.ErrorIs(t, err, domain.ErrInfrastructure)
	assert.NotErrorIs(t, err, domain.ErrCapacityConflict)

	err = classify("event signup", "event slot 1", context.DeadlineExceeded)
	assert.ErrorIs(t, err, domain.ErrInfrastructure)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLockTimeoutSetting(t *testing.T) {
	assert.Equal(t, "5000ms", lockTimeoutSetting(5*time.Second))
	assert.Equal(t, "250ms", lockTimeoutSetting(250*time.Millisecond))
	assert.Equal(t, "1ms", lockTimeoutSetting(time.Microsecond))
}

func TestBlockingStatuses(t *testing.T) {
	assert.Equal(t, []string{"PENDING", "CONFIRMED"}, blockingStatuses())
}
