package types

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProfitFactor is gross profit over gross loss. It is +Inf when there are wins and no losses,
// and serialises to JSON as the string "inf" in that case.
type ProfitFactor float64

// IsInfinite reports whether the profit factor is unbounded.
func (p ProfitFactor) IsInfinite() bool {
	return math.IsInf(float64(p), 1)
}

func (p ProfitFactor) MarshalJSON() ([]byte, error) {
	if p.IsInfinite() {
		return []byte(`"inf"`), nil
	}

	if math.IsNaN(float64(p)) || math.IsInf(float64(p), -1) {
		return []byte("0"), nil
	}

	return []byte(strconv.FormatFloat(float64(p), 'f', -1, 64)), nil
}

func (p *ProfitFactor) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		switch strings.ToLower(s) {
		case "inf", "+inf", "infinity":
			*p = ProfitFactor(math.Inf(1))

			return nil
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return err
		}

		*p = ProfitFactor(f)

		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return err
	}

	*p = ProfitFactor(f)

	return nil
}

type TradeHoldingTime struct {
	// Minimum holding time of a trade in seconds
	Min int `yaml:"min" json:"min"`
	// Maximum holding time of a trade in seconds
	Max int `yaml:"max" json:"max"`
	// Average holding time of a trade in seconds
	Avg int `yaml:"avg" json:"avg"`
}

// TradeStats summarises the closed trades and the equity curve of a run.
// A run without closed trades yields the zero value.
type TradeStats struct {
	TotalTrades   int `yaml:"total_trades" json:"total_trades"`
	WinningTrades int `yaml:"winning_trades" json:"winning_trades"`
	// LosingTrades counts trades with pnl <= 0.
	LosingTrades int             `yaml:"losing_trades" json:"losing_trades"`
	WinRate      float64         `yaml:"win_rate" json:"win_rate"`
	AverageWin   decimal.Decimal `yaml:"average_win" json:"average_win"`
	AverageLoss  decimal.Decimal `yaml:"average_loss" json:"average_loss"`
	LargestWin   decimal.Decimal `yaml:"largest_win" json:"largest_win"`
	LargestLoss  decimal.Decimal `yaml:"largest_loss" json:"largest_loss"`
	ProfitFactor ProfitFactor    `yaml:"profit_factor" json:"profit_factor"`
	SharpeRatio  float64         `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio float64         `yaml:"sortino_ratio" json:"sortino_ratio"`
	MaxDrawdown  float64         `yaml:"max_drawdown" json:"max_drawdown"`
	// MaxDrawdownDuration is the longest run of equity points below the running peak.
	MaxDrawdownDuration int              `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`
	TotalPnL            decimal.Decimal  `yaml:"total_pnl" json:"total_pnl"`
	TotalCommission     decimal.Decimal  `yaml:"total_commission" json:"total_commission"`
	TotalSlippage       decimal.Decimal  `yaml:"total_slippage" json:"total_slippage"`
	TradeHoldingTime    TradeHoldingTime `yaml:"trade_holding_time" json:"trade_holding_time"`
}

// Metrics are the return and risk figures derived from the equity curve.
type Metrics struct {
	TotalReturn         float64 `yaml:"total_return" json:"total_return"`
	AnnualizedReturn    float64 `yaml:"annualized_return" json:"annualized_return"`
	SharpeRatio         float64 `yaml:"sharpe_ratio" json:"sharpe_ratio"`
	SortinoRatio        float64 `yaml:"sortino_ratio" json:"sortino_ratio"`
	MaxDrawdown         float64 `yaml:"max_drawdown" json:"max_drawdown"`
	MaxDrawdownDuration int     `yaml:"max_drawdown_duration" json:"max_drawdown_duration"`
	WinRate             float64 `yaml:"win_rate" json:"win_rate"`
}

// ToMap returns the metrics keyed by their serialised names.
func (m Metrics) ToMap() map[string]float64 {
	return map[string]float64{
		"total_return":          m.TotalReturn,
		"annualized_return":     m.AnnualizedReturn,
		"sharpe_ratio":          m.SharpeRatio,
		"sortino_ratio":         m.SortinoRatio,
		"max_drawdown":          m.MaxDrawdown,
		"max_drawdown_duration": float64(m.MaxDrawdownDuration),
		"win_rate":              m.WinRate,
	}
}
