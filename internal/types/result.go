package types

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type RunStatus string

const (
	RunStatusInitialized RunStatus = "initialized"
	RunStatusRunning     RunStatus = "running"
	RunStatusCompleted   RunStatus = "completed"
	RunStatusFailed      RunStatus = "failed"
)

// IsTerminal reports whether no further transition is possible.
func (s RunStatus) IsTerminal() bool {
	return s == RunStatusCompleted || s == RunStatusFailed
}

// StrategyInfo contains metadata about the strategy that produced a result.
type StrategyInfo struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// Diagnostics counts what the run absorbed instead of failing.
type Diagnostics struct {
	// SuppressedEvaluations counts condition evaluations that failed and were treated as false, by reason.
	SuppressedEvaluations map[string]int `yaml:"suppressed_evaluations" json:"suppressed_evaluations"`
	// SkippedSymbols lists configured symbols that returned no data.
	SkippedSymbols []string `yaml:"skipped_symbols" json:"skipped_symbols"`
	// DroppedSignals counts signals that did not become orders, by reason.
	DroppedSignals map[string]int `yaml:"dropped_signals" json:"dropped_signals"`
}

// NewDiagnostics returns empty, non-nil diagnostics.
func NewDiagnostics() Diagnostics {
	return Diagnostics{
		SuppressedEvaluations: map[string]int{},
		SkippedSymbols:        []string{},
		DroppedSignals:        map[string]int{},
	}
}

// TotalSuppressed is the number of evaluations treated as false.
func (d Diagnostics) TotalSuppressed() int {
	total := 0
	for _, n := range d.SuppressedEvaluations {
		total += n
	}

	return total
}

// BacktestResult is the complete output of one run.
type BacktestResult struct {
	Config      BacktestConfig     `yaml:"config" json:"config"`
	Strategy    StrategyInfo       `yaml:"strategy" json:"strategy"`
	Status      RunStatus          `yaml:"status" json:"status"`
	Stats       TradeStats         `yaml:"stats" json:"stats"`
	EquityCurve []EquityCurvePoint `yaml:"equity_curve" json:"equity_curve"`
	Trades      []Trade            `yaml:"trades" json:"trades"`
	// Positions are the positions still open after the last timestamp.
	Positions   []Position         `yaml:"positions" json:"positions"`
	Orders      []Order            `yaml:"orders" json:"orders"`
	Metrics     map[string]float64 `yaml:"metrics" json:"metrics"`
	Diagnostics Diagnostics        `yaml:"diagnostics" json:"diagnostics"`
}

// StoredResult is a BacktestResult persisted for a user.
type StoredResult struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	StrategyID string         `json:"strategy_id"`
	CreatedAt  time.Time      `json:"created_at"`
	Result     BacktestResult `json:"result"`
}

// WriteBacktestResult writes the result summary (config, strategy, status, stats, metrics and
// diagnostics) to a YAML file. Trades, orders and the equity curve go to parquet instead.
func WriteBacktestResult(path string, result *BacktestResult) error {
	summary := struct {
		Config      BacktestConfig     `yaml:"config"`
		Strategy    StrategyInfo       `yaml:"strategy"`
		Status      RunStatus          `yaml:"status"`
		Stats       TradeStats         `yaml:"stats"`
		Metrics     map[string]float64 `yaml:"metrics"`
		Diagnostics Diagnostics        `yaml:"diagnostics"`
	}{
		Config:      result.Config,
		Strategy:    result.Strategy,
		Status:      result.Status,
		Stats:       result.Stats,
		Metrics:     result.Metrics,
		Diagnostics: result.Diagnostics,
	}

	data, err := yaml.Marshal(summary)
	if err != nil {
		return fmt.Errorf("failed to marshal backtest result to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write backtest result to file: %w", err)
	}

	return nil
}
