package types

import "github.com/shopspring/decimal"

// AccountInfo is a point-in-time view of a simulated account.
type AccountInfo struct {
	Cash           decimal.Decimal `yaml:"cash" json:"cash"`
	Equity         decimal.Decimal `yaml:"equity" json:"equity"`
	PositionsValue decimal.Decimal `yaml:"positions_value" json:"positions_value"`
	// RealizedPnL is the gross P&L booked so far, partial closes included.
	RealizedPnL decimal.Decimal `yaml:"realized_pnl" json:"realized_pnl"`
	// UnrealizedPnL is the P&L of the open positions at their last mark.
	UnrealizedPnL   decimal.Decimal `yaml:"unrealized_pnl" json:"unrealized_pnl"`
	TotalCommission decimal.Decimal `yaml:"total_commission" json:"total_commission"`
	OpenPositions   int             `yaml:"open_positions" json:"open_positions"`
}
