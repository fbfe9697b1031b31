package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BacktestMarker records every generated signal, the bar behind it and its outcome in a DuckDB
// database so a run can be inspected afterwards. Its Mark method has the shape of an
// engine.OnSignalCallback.
type BacktestMarker struct {
	db     *sql.DB
	logger *logger.Logger
	sq     squirrel.StatementBuilderType
}

// NewBacktestMarker creates a new instance of BacktestMarker.
func NewBacktestMarker(logger *logger.Logger) (*BacktestMarker, error) {
	// Create an in-memory DuckDB database
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		logger.Error("Failed to open database", zap.Error(err))

		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open database", err)
	}

	if err := db.Ping(); err != nil {
		logger.Error("Failed to connect to database", zap.Error(err))
		db.Close()

		return nil, errors.Wrap(errors.ErrCodePersistenceFailed, "failed to connect to database", err)
	}

	marker := &BacktestMarker{
		logger: logger,
		db:     db,
		sq:     squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question),
	}

	if err := marker.initialize(); err != nil {
		db.Close()

		return nil, err
	}

	return marker, nil
}

// Mark records one signal of run runID.
func (m *BacktestMarker) Mark(runID string, mark types.Mark) error {
	if m == nil || m.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "backtest marker or database is nil")
	}

	var nextID int

	if err := m.db.QueryRow("SELECT nextval('mark_id_seq')").Scan(&nextID); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to get next ID from sequence", err)
	}

	_, err := m.sq.
		Insert("marks").
		Columns(
			"id", "run_id", "symbol", "time", "open", "high", "low", "close", "volume",
			"signal_type", "direction", "order_type", "price", "condition", "reason", "outcome",
		).
		Values(
			nextID, runID, mark.Signal.Symbol, mark.Signal.Time, mark.Bar.Open, mark.Bar.High,
			mark.Bar.Low, mark.Bar.Close, mark.Bar.Volume, string(mark.Signal.Type), string(mark.Signal.Direction),
			string(mark.Signal.OrderType), mark.Signal.Price.InexactFloat64(), mark.Signal.Condition,
			mark.Signal.Reason, mark.Outcome,
		).
		RunWith(m.db).
		Exec()
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert mark", err)
	}

	return nil
}

// GetMarks returns the recorded marks in time order.
func (m *BacktestMarker) GetMarks() ([]types.Mark, error) {
	if m == nil || m.db == nil {
		return nil, errors.New(errors.ErrCodePersistenceFailed, "backtest marker or database is nil")
	}

	rows, err := m.sq.
		Select(
			"symbol", "time", "open", "high", "low", "close", "volume",
			"signal_type", "direction", "order_type", "price", "condition", "reason", "outcome",
		).
		From("marks").
		OrderBy("time ASC", "id ASC").
		RunWith(m.db).
		Query()
	if err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to query marks", err)
	}
	defer rows.Close()

	var marks []types.Mark

	for rows.Next() {
		var (
			mark                             types.Mark
			signalType, direction, orderType string
			price                            float64
		)

		err := rows.Scan(
			&mark.Bar.Symbol,
			&mark.Bar.Time,
			&mark.Bar.Open,
			&mark.Bar.High,
			&mark.Bar.Low,
			&mark.Bar.Close,
			&mark.Bar.Volume,
			&signalType,
			&direction,
			&orderType,
			&price,
			&mark.Signal.Condition,
			&mark.Signal.Reason,
			&mark.Outcome,
		)
		if err != nil {
			return nil, errors.Wrap(errors.ErrCodeQueryFailed, "failed to scan mark", err)
		}

		mark.Signal.Symbol = mark.Bar.Symbol
		mark.Signal.Time = mark.Bar.Time
		mark.Signal.Type = types.SignalType(signalType)
		mark.Signal.Direction = types.SignalDirection(direction)
		mark.Signal.OrderType = types.OrderType(orderType)
		mark.Signal.Price = decimal.NewFromFloat(price)

		marks = append(marks, mark)
	}

	if err = rows.Err(); err != nil {
		return nil, errors.Wrap(errors.ErrCodeQueryFailed, "error iterating marks", err)
	}

	return marks, nil
}

// Write saves the marks to marks.parquet in the directory path.
func (m *BacktestMarker) Write(path string) error {
	if m == nil || m.db == nil || m.logger == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "backtest marker, database, or logger is nil")
	}

	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	marksPath := filepath.Join(path, "marks.parquet")

	_, err := m.db.Exec(fmt.Sprintf(`COPY marks TO '%s' (FORMAT PARQUET)`, marksPath))
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to export marks to Parquet", err)
	}

	m.logger.Info("Successfully exported marks to Parquet file",
		zap.String("marks", marksPath),
	)

	return nil
}

// Cleanup drops every recorded mark.
func (m *BacktestMarker) Cleanup() error {
	if m == nil || m.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "backtest marker or database is nil")
	}

	_, err := m.db.Exec(`
		DROP TABLE IF EXISTS marks;
		DROP SEQUENCE IF EXISTS mark_id_seq;
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to cleanup marks table", err)
	}

	return m.initialize()
}

// Close closes the database connection.
func (m *BacktestMarker) Close() error {
	if m == nil || m.db == nil {
		return nil
	}

	return m.db.Close()
}

func (m *BacktestMarker) initialize() error {
	if m == nil || m.db == nil {
		return errors.New(errors.ErrCodePersistenceFailed, "backtest marker or database is nil")
	}

	if _, err := m.db.Exec(`CREATE SEQUENCE IF NOT EXISTS mark_id_seq`); err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create sequence", err)
	}

	_, err := m.db.Exec(`
		CREATE TABLE IF NOT EXISTS marks (
			id INTEGER PRIMARY KEY,
			run_id TEXT,
			symbol TEXT,
			time TIMESTAMP,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE,
			signal_type TEXT,
			direction TEXT,
			order_type TEXT,
			price DOUBLE,
			condition INTEGER,
			reason TEXT,
			outcome TEXT
		)
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create marks table", err)
	}

	return nil
}
