package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"go.uber.org/zap"
)

var strategyColumns = []string{
	"id", "user_id", "name", "description", "config", "created_at", "updated_at", "is_active", "is_public", "performance",
}

var resultColumns = []string{"id", "user_id", "strategy_id", "created_at", "result"}

// DuckDBStore is a Store backed by a DuckDB database. Structured values are kept as JSON text.
type DuckDBStore struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
	now    func() time.Time
}

// NewDuckDBStore opens the database at path (":memory:" for a throwaway store) and creates the
// tables when they do not exist.
func NewDuckDBStore(path string, logger *logger.Logger) (*DuckDBStore, error) {
	db, err := sql.Open("duckdb", path)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open store database", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()

		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to connect to store database", err)
	}

	s := &DuckDBStore{
		db:     db,
		logger: logger,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Dollar),
		now: func() time.Time {
			return time.Now().UTC()
		},
	}

	if err := s.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return s, nil
}

func (s *DuckDBStore) initialize() error {
	_, err := s.db.Exec(`
		CREATE TABLE IF NOT EXISTS backtest_strategies (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			name TEXT NOT NULL,
			description TEXT,
			config TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			updated_at TIMESTAMP NOT NULL,
			is_active BOOLEAN NOT NULL,
			is_public BOOLEAN NOT NULL,
			performance TEXT
		);
		CREATE TABLE IF NOT EXISTS backtest_results (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			strategy_id TEXT NOT NULL,
			created_at TIMESTAMP NOT NULL,
			result TEXT NOT NULL
		);
		CREATE INDEX IF NOT EXISTS ix_backtest_strategies_user_id ON backtest_strategies (user_id);
		CREATE INDEX IF NOT EXISTS ix_backtest_results_user_id ON backtest_results (user_id);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create store tables", err)
	}

	return nil
}

// Close closes the database connection.
func (s *DuckDBStore) Close() error {
	return s.db.Close()
}

// CreateStrategy implements Store.
func (s *DuckDBStore) CreateStrategy(ctx context.Context, userID string, config types.StrategyConfig) (*types.Strategy, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	now := s.now()
	strategy := &types.Strategy{
		ID:          uuid.NewString(),
		UserID:      userID,
		Name:        config.Name,
		Description: config.Description,
		Config:      config,
		CreatedAt:   now,
		UpdatedAt:   now,
		IsActive:    true,
		IsPublic:    false,
		Performance: nil,
	}

	configJSON, err := json.Marshal(strategy.Config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to encode strategy config", err)
	}

	_, err = s.sq.
		Insert("backtest_strategies").
		Columns(strategyColumns...).
		Values(strategy.ID, strategy.UserID, strategy.Name, strategy.Description, string(configJSON),
			strategy.CreatedAt, strategy.UpdatedAt, strategy.IsActive, strategy.IsPublic, nil).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert strategy", err)
	}

	s.logger.Debug("Strategy created", zap.String("id", strategy.ID), zap.String("user_id", userID))

	return strategy, nil
}

// GetStrategy implements Store.
func (s *DuckDBStore) GetStrategy(ctx context.Context, userID string, id string) (*types.Strategy, error) {
	strategy, err := s.getStrategy(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strategy.CanRead(userID) {
		return nil, errors.Newf(errors.ErrCodeForbidden, "not authorized to view strategy %s", id)
	}

	return strategy, nil
}

// ListStrategies implements Store.
func (s *DuckDBStore) ListStrategies(ctx context.Context, userID string, includePublic bool) ([]types.Strategy, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	var filter squirrel.Sqlizer = squirrel.Eq{"user_id": userID}
	if includePublic {
		filter = squirrel.Or{squirrel.Eq{"user_id": userID}, squirrel.Eq{"is_public": true}}
	}

	rows, err := s.sq.
		Select(strategyColumns...).
		From("backtest_strategies").
		Where(filter).
		OrderBy("created_at DESC", "id ASC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query strategies", err)
	}
	defer rows.Close()

	strategies := []types.Strategy{}

	for rows.Next() {
		strategy, err := scanStrategy(rows)
		if err != nil {
			return nil, err
		}

		strategies = append(strategies, *strategy)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating strategies", err)
	}

	return strategies, nil
}

// UpdateStrategy implements Store.
func (s *DuckDBStore) UpdateStrategy(ctx context.Context, userID string, id string, config types.StrategyConfig) (*types.Strategy, error) {
	strategy, err := s.ownedStrategy(ctx, userID, id, "update")
	if err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	configJSON, err := json.Marshal(config)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to encode strategy config", err)
	}

	strategy.Name = config.Name
	strategy.Description = config.Description
	strategy.Config = config
	strategy.UpdatedAt = s.now()

	_, err = s.sq.
		Update("backtest_strategies").
		SetMap(map[string]any{
			"name":        strategy.Name,
			"description": strategy.Description,
			"config":      string(configJSON),
			"updated_at":  strategy.UpdatedAt,
		}).
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to update strategy", err)
	}

	return strategy, nil
}

// DeleteStrategy implements Store. The strategy's results are deleted with it.
func (s *DuckDBStore) DeleteStrategy(ctx context.Context, userID string, id string) error {
	if _, err := s.ownedStrategy(ctx, userID, id, "delete"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	if _, err := s.sq.Delete("backtest_results").Where(squirrel.Eq{"strategy_id": id}).RunWith(tx).ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to delete strategy results", err)
	}

	if _, err := s.sq.Delete("backtest_strategies").Where(squirrel.Eq{"id": id}).RunWith(tx).ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to delete strategy", err)
	}

	if err := tx.Commit(); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to commit strategy deletion", err)
	}

	s.logger.Debug("Strategy deleted", zap.String("id", id), zap.String("user_id", userID))

	return nil
}

// ShareStrategy implements Store.
func (s *DuckDBStore) ShareStrategy(ctx context.Context, userID string, id string, isPublic bool) (*types.Strategy, error) {
	strategy, err := s.ownedStrategy(ctx, userID, id, "share")
	if err != nil {
		return nil, err
	}

	strategy.IsPublic = isPublic
	strategy.UpdatedAt = s.now()

	_, err = s.sq.
		Update("backtest_strategies").
		Set("is_public", isPublic).
		Set("updated_at", strategy.UpdatedAt).
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to share strategy", err)
	}

	return strategy, nil
}

// SaveResult implements Store. userID must be able to read the strategy.
func (s *DuckDBStore) SaveResult(ctx context.Context, userID string, strategyID string, result *types.BacktestResult) (*types.StoredResult, error) {
	if result == nil {
		return nil, errors.New(errors.ErrCodeMissingParameter, "result is required")
	}

	strategy, err := s.GetStrategy(ctx, userID, strategyID)
	if err != nil {
		return nil, err
	}

	resultJSON, err := json.Marshal(result)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to encode result", err)
	}

	stored := &types.StoredResult{
		ID:         uuid.NewString(),
		UserID:     userID,
		StrategyID: strategyID,
		CreatedAt:  s.now(),
		Result:     *result,
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to begin transaction", err)
	}
	defer tx.Rollback()

	_, err = s.sq.
		Insert("backtest_results").
		Columns(resultColumns...).
		Values(stored.ID, stored.UserID, stored.StrategyID, stored.CreatedAt, string(resultJSON)).
		RunWith(tx).
		ExecContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert result", err)
	}

	// performance is only tracked for the owner's own runs
	if strategy.CanWrite(userID) && result.Status == types.RunStatusCompleted {
		performance, err := json.Marshal(result.Metrics)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to encode performance", err)
		}

		_, err = s.sq.
			Update("backtest_strategies").
			Set("performance", string(performance)).
			Where(squirrel.Eq{"id": strategyID}).
			RunWith(tx).
			ExecContext(ctx)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to update strategy performance", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to commit result", err)
	}

	return stored, nil
}

// GetResult implements Store.
func (s *DuckDBStore) GetResult(ctx context.Context, userID string, id string) (*types.StoredResult, error) {
	row := s.sq.
		Select(resultColumns...).
		From("backtest_results").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)

	result, err := scanResult(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "result %s not found", id)
		}

		return nil, err
	}

	if result.UserID != userID {
		return nil, errors.Newf(errors.ErrCodeForbidden, "not authorized to view result %s", id)
	}

	return result, nil
}

// ListResults implements Store.
func (s *DuckDBStore) ListResults(ctx context.Context, userID string, strategyID string) ([]types.StoredResult, error) {
	if err := requireUser(userID); err != nil {
		return nil, err
	}

	filter := squirrel.Eq{"user_id": userID}
	if strategyID != "" {
		filter["strategy_id"] = strategyID
	}

	rows, err := s.sq.
		Select(resultColumns...).
		From("backtest_results").
		Where(filter).
		OrderBy("created_at DESC", "id ASC").
		RunWith(s.db).
		QueryContext(ctx)
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query results", err)
	}
	defer rows.Close()

	results := []types.StoredResult{}

	for rows.Next() {
		result, err := scanResult(rows)
		if err != nil {
			return nil, err
		}

		results = append(results, *result)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating results", err)
	}

	return results, nil
}

// DeleteResult implements Store.
func (s *DuckDBStore) DeleteResult(ctx context.Context, userID string, id string) error {
	if _, err := s.GetResult(ctx, userID, id); err != nil {
		return err
	}

	if _, err := s.sq.Delete("backtest_results").Where(squirrel.Eq{"id": id}).RunWith(s.db).ExecContext(ctx); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to delete result", err)
	}

	return nil
}

func (s *DuckDBStore) getStrategy(ctx context.Context, id string) (*types.Strategy, error) {
	row := s.sq.
		Select(strategyColumns...).
		From("backtest_strategies").
		Where(squirrel.Eq{"id": id}).
		RunWith(s.db).
		QueryRowContext(ctx)

	strategy, err := scanStrategy(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, errors.Newf(errors.ErrCodeNotFound, "strategy %s not found", id)
		}

		return nil, err
	}

	return strategy, nil
}

// ownedStrategy loads the strategy and checks userID may modify it.
func (s *DuckDBStore) ownedStrategy(ctx context.Context, userID string, id string, action string) (*types.Strategy, error) {
	strategy, err := s.getStrategy(ctx, id)
	if err != nil {
		return nil, err
	}

	if !strategy.CanWrite(userID) {
		return nil, errors.Newf(errors.ErrCodeForbidden, "not authorized to %s strategy %s", action, id)
	}

	return strategy, nil
}

func scanStrategy(row squirrel.RowScanner) (*types.Strategy, error) {
	var (
		strategy    types.Strategy
		description sql.NullString
		configJSON  string
		performance sql.NullString
	)

	err := row.Scan(
		&strategy.ID,
		&strategy.UserID,
		&strategy.Name,
		&description,
		&configJSON,
		&strategy.CreatedAt,
		&strategy.UpdatedAt,
		&strategy.IsActive,
		&strategy.IsPublic,
		&performance,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan strategy", err)
	}

	strategy.Description = description.String

	if err := json.Unmarshal([]byte(configJSON), &strategy.Config); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode strategy config", err)
	}

	if performance.Valid {
		if err := json.Unmarshal([]byte(performance.String), &strategy.Performance); err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode strategy performance", err)
		}
	}

	return &strategy, nil
}

func scanResult(row squirrel.RowScanner) (*types.StoredResult, error) {
	var (
		result     types.StoredResult
		resultJSON string
	)

	err := row.Scan(&result.ID, &result.UserID, &result.StrategyID, &result.CreatedAt, &resultJSON)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}

		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan result", err)
	}

	if err := json.Unmarshal([]byte(resultJSON), &result.Result); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to decode result", err)
	}

	return &result, nil
}

func requireUser(userID string) error {
	if userID == "" {
		return errors.New(errors.ErrCodeMissingParameter, "user id is required")
	}

	return nil
}
