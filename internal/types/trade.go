package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type TradeCloseReason string

const (
	TradeCloseReasonSignal       TradeCloseReason = "signal"
	TradeCloseReasonStopLoss     TradeCloseReason = "stop_loss"
	TradeCloseReasonTakeProfit   TradeCloseReason = "take_profit"
	TradeCloseReasonTrailingStop TradeCloseReason = "trailing_stop"
	TradeCloseReasonEndOfRun     TradeCloseReason = "end_of_run"
)

// Trade is the immutable record of a fully closed position.
type Trade struct {
	Symbol       string          `yaml:"symbol" json:"symbol" csv:"symbol"`
	PositionType PositionType    `yaml:"position_type" json:"position_type" csv:"position_type"`
	EntryPrice   decimal.Decimal `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	EntryTime    time.Time       `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	ExitPrice    decimal.Decimal `yaml:"exit_price" json:"exit_price" csv:"exit_price"`
	ExitTime     time.Time       `yaml:"exit_time" json:"exit_time" csv:"exit_time"`
	// Quantity is the quantity closed by the final exit.
	Quantity decimal.Decimal `yaml:"quantity" json:"quantity" csv:"quantity"`
	// PnL is the realized profit before commission, including earlier partial closes.
	// For example, 50 shares bought at 100 and sold at 110 give a PnL of 500.
	PnL decimal.Decimal `yaml:"pnl" json:"pnl" csv:"pnl"`
	// Commission is every commission paid over the life of the position.
	Commission decimal.Decimal  `yaml:"commission" json:"commission" csv:"commission"`
	Reason     TradeCloseReason `yaml:"reason" json:"reason" csv:"reason"`
	// OrderID is the closing order. Empty for forced risk exits.
	OrderID      string `yaml:"order_id" json:"order_id" csv:"order_id"`
	StrategyName string `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
}

// NetPnL is the realized profit after commission.
func (t Trade) NetPnL() decimal.Decimal {
	return t.PnL.Sub(t.Commission)
}

// HoldingTime is how long the position was open.
func (t Trade) HoldingTime() time.Duration {
	return t.ExitTime.Sub(t.EntryTime)
}

// IsWin reports whether the trade made money before commission.
func (t Trade) IsWin() bool {
	return t.PnL.IsPositive()
}
