// Package idempotency makes compound mutating actions safe to retry at the
// transport layer. A caller-supplied key maps to exactly one side-effecting
// result: the first completed run records its entity id, and every later run
// with the same key replays that result instead of re-executing the handler.
//
// A claim whose handler never completed (process crashed mid-flight) is
// re-run on the next call. That makes the wrapper at-least-once, not
// exactly-once: handlers must tolerate re-execution up to the point where
// the result is recorded, e.g. via unique constraints of their own.
package idempotency

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/velorek/notiq/internal/domain"
	"github.com/velorek/notiq/internal/observability"
	"github.com/velorek/notiq/internal/repository"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Handler performs the actual domain mutation inside the guard's
// transaction and returns the id of the entity it created or affected.
type Handler[T any] func(ctx context.Context, tx *gorm.DB, input T) (int64, error)

// Result is what callers get back from a guarded run.
type Result struct {
	Replay   bool
	EntityID int64
}

// Guard wraps one named action with key-based dedupe. The whole
// check-insert-handle-update sequence runs in a single transaction.
type Guard[T any] struct {
	db      *gorm.DB
	action  string
	handler Handler[T]
	logger  *zap.Logger
	metrics *observability.Metrics
	now     func() time.Time
}

func NewGuard[T any](db *gorm.DB, action string, handler Handler[T], logger *zap.Logger) (*Guard[T], error) {
	if db == nil {
		return nil, fmt.Errorf("db handle is required")
	}
	if strings.TrimSpace(action) == "" {
		return nil, fmt.Errorf("action name is required")
	}
	if handler == nil {
		return nil, fmt.Errorf("handler is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Guard[T]{
		db:      db,
		action:  strings.TrimSpace(action),
		handler: handler,
		logger:  logger,
		now:     time.Now,
	}, nil
}

func (g *Guard[T]) SetMetrics(metrics *observability.Metrics) {
	if g == nil {
		return
	}
	g.metrics = metrics
}

// Run executes the guarded action. An empty key is replaced with a
// generated UUID, which effectively disables dedupe for that call.
func (g *Guard[T]) Run(ctx context.Context, key string, userID int64, input T) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}

	key = strings.TrimSpace(key)
	if key == "" {
		key = uuid.NewString()
	}

	var result Result
	err := g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var record repository.IdempotencyModel
		err := tx.First(&record, "key = ?", key).Error
		switch {
		case err == nil:
			// Reject foreign keys without revealing whether they exist.
			if record.UserID != userID {
				g.metrics.IncIdempotencyOutcome("rejected")
				return fmt.Errorf("%w: invalid idempotency key", domain.ErrValidation)
			}
			if record.EntityID != nil {
				result = Result{Replay: true, EntityID: *record.EntityID}
				g.metrics.IncIdempotencyOutcome("replayed")
				return nil
			}
			// Claimed but never completed: a prior attempt died mid-flight.
			// Re-run the handler and let it finish the job.
			g.logger.Warn("re-running incomplete idempotent action",
				zap.String("action", g.action),
				zap.String("key", key),
			)
		case errors.Is(err, gorm.ErrRecordNotFound):
			claim := repository.IdempotencyModel{
				Key:       key,
				UserID:    userID,
				Action:    g.action,
				ExpiresAt: g.now().UTC().Add(domain.IdempotencyTTL),
			}
			if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&claim).Error; err != nil {
				return fmt.Errorf("failed to claim idempotency key: %w", err)
			}
		default:
			return fmt.Errorf("failed to look up idempotency key: %w", err)
		}

		entityID, err := g.handler(ctx, tx, input)
		if err != nil {
			return err
		}

		update := tx.Model(&repository.IdempotencyModel{}).
			Where("key = ?", key).
			Update("entity_id", entityID)
		if update.Error != nil {
			return fmt.Errorf("failed to record idempotent result: %w", update.Error)
		}

		result = Result{Replay: false, EntityID: entityID}
		g.metrics.IncIdempotencyOutcome("executed")
		return nil
	})
	if err != nil {
		return nil, err
	}

	return &result, nil
}
