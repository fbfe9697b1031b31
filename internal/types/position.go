package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is an open holding. At most one exists per symbol and its quantity is always > 0.
type Position struct {
	Symbol       string          `yaml:"symbol" json:"symbol" csv:"symbol"`
	PositionType PositionType    `yaml:"position_type" json:"position_type" csv:"position_type"`
	Quantity     decimal.Decimal `yaml:"quantity" json:"quantity" csv:"quantity"`
	// EntryPrice is the volume-weighted average fill price of all entries.
	EntryPrice    decimal.Decimal `yaml:"entry_price" json:"entry_price" csv:"entry_price"`
	EntryTime     time.Time       `yaml:"entry_time" json:"entry_time" csv:"entry_time"`
	CurrentPrice  decimal.Decimal `yaml:"current_price" json:"current_price" csv:"current_price"`
	CurrentTime   time.Time       `yaml:"current_time" json:"current_time" csv:"current_time"`
	UnrealizedPnL decimal.Decimal `yaml:"unrealized_pnl" json:"unrealized_pnl" csv:"unrealized_pnl"`
	// RealizedPnL accumulates partial closes.
	RealizedPnL decimal.Decimal `yaml:"realized_pnl" json:"realized_pnl" csv:"realized_pnl"`
	Commission  decimal.Decimal `yaml:"commission" json:"commission" csv:"commission"`
	// HighWaterMark and LowWaterMark track the best price seen since entry, for trailing stops.
	HighWaterMark decimal.Decimal `yaml:"high_water_mark" json:"high_water_mark" csv:"high_water_mark"`
	LowWaterMark  decimal.Decimal `yaml:"low_water_mark" json:"low_water_mark" csv:"low_water_mark"`
	StrategyName  string          `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
}

// NewPosition opens a position from a filled entry.
func NewPosition(symbol string, positionType PositionType, quantity, price, commission decimal.Decimal, at time.Time, strategyName string) *Position {
	return &Position{
		Symbol:        symbol,
		PositionType:  positionType,
		Quantity:      quantity,
		EntryPrice:    price,
		EntryTime:     at,
		CurrentPrice:  price,
		CurrentTime:   at,
		UnrealizedPnL: decimal.Zero,
		RealizedPnL:   decimal.Zero,
		Commission:    commission,
		HighWaterMark: price,
		LowWaterMark:  price,
		StrategyName:  strategyName,
	}
}

// PnL is the gross profit of closing quantity at exitPrice against the entry price.
// Longs profit when price rises, shorts when it falls.
func (p *Position) PnL(exitPrice, quantity decimal.Decimal) decimal.Decimal {
	diff := exitPrice.Sub(p.EntryPrice)
	if p.PositionType == PositionTypeShort {
		diff = diff.Neg()
	}

	return diff.Mul(quantity)
}

// Mark updates the current price, unrealized P&L and the water marks.
func (p *Position) Mark(price decimal.Decimal, at time.Time) {
	p.CurrentPrice = price
	p.CurrentTime = at
	p.UnrealizedPnL = p.PnL(price, p.Quantity)

	if price.GreaterThan(p.HighWaterMark) {
		p.HighWaterMark = price
	}

	if price.LessThan(p.LowWaterMark) {
		p.LowWaterMark = price
	}
}

// Merge adds a filled entry to the position using a volume-weighted average entry price.
func (p *Position) Merge(quantity, price, commission decimal.Decimal) {
	newQuantity := p.Quantity.Add(quantity)
	p.EntryPrice = p.EntryPrice.Mul(p.Quantity).Add(price.Mul(quantity)).Div(newQuantity)
	p.Quantity = newQuantity
	p.Commission = p.Commission.Add(commission)
}

// MarketValue is the signed value of the position at the current price. Shorts are negative.
func (p *Position) MarketValue() decimal.Decimal {
	value := p.Quantity.Mul(p.CurrentPrice)
	if p.PositionType == PositionTypeShort {
		return value.Neg()
	}

	return value
}
