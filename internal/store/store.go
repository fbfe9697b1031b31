package store

import (
	"context"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// Store persists strategies and backtest results per user.
//
// Reads fail with ErrCodeNotFound when the record does not exist and ErrCodeForbidden when
// userID may not see it. Strategies are readable by their owner, or by anyone once shared;
// only the owner may modify them. Results are private to their owner.
type Store interface {
	CreateStrategy(ctx context.Context, userID string, config types.StrategyConfig) (*types.Strategy, error)
	GetStrategy(ctx context.Context, userID string, id string) (*types.Strategy, error)
	// ListStrategies returns the strategies owned by userID, plus every public strategy of other
	// users when includePublic is set. Newest first.
	ListStrategies(ctx context.Context, userID string, includePublic bool) ([]types.Strategy, error)
	UpdateStrategy(ctx context.Context, userID string, id string, config types.StrategyConfig) (*types.Strategy, error)
	DeleteStrategy(ctx context.Context, userID string, id string) error
	ShareStrategy(ctx context.Context, userID string, id string, isPublic bool) (*types.Strategy, error)

	// SaveResult stores result and records its metrics as the strategy's latest performance.
	SaveResult(ctx context.Context, userID string, strategyID string, result *types.BacktestResult) (*types.StoredResult, error)
	GetResult(ctx context.Context, userID string, id string) (*types.StoredResult, error)
	// ListResults returns the results of userID, optionally limited to one strategy. Newest first.
	ListResults(ctx context.Context, userID string, strategyID string) ([]types.StoredResult, error)
	DeleteResult(ctx context.Context, userID string, id string) error

	Close() error
}
