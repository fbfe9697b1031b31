package types

import (
	"time"

	"github.com/shopspring/decimal"
)

type SignalType string

const (
	// SignalTypeEntry opens a position
	SignalTypeEntry SignalType = "entry"
	// SignalTypeExit closes a position
	SignalTypeExit SignalType = "exit"
)

type SignalDirection string

const (
	SignalDirectionBullish SignalDirection = "bullish"
	SignalDirectionBearish SignalDirection = "bearish"
)

// Side is the order side that acts on the signal.
func (d SignalDirection) Side() OrderSide {
	if d == SignalDirectionBullish {
		return OrderSideBuy
	}

	return OrderSideSell
}

// PositionType is the position an entry in this direction opens.
func (d SignalDirection) PositionType() PositionType {
	if d == SignalDirectionBullish {
		return PositionTypeLong
	}

	return PositionTypeShort
}

type Signal struct {
	// Time is the time of the signal
	Time time.Time `json:"time"`
	// Type is entry or exit
	Type SignalType `json:"type"`
	// Direction is bullish for buys and bearish for sells
	Direction SignalDirection `json:"direction"`
	// Symbol is the symbol of the signal
	Symbol string `json:"symbol"`
	// Price is the close of the bar that produced the signal
	Price decimal.Decimal `json:"price"`
	// Condition is the index of the condition that matched, within its entry or exit list
	Condition int `json:"condition"`
	// OrderType and PriceOffset come from the matching condition
	OrderType   OrderType       `json:"order_type"`
	PriceOffset decimal.Decimal `json:"price_offset"`
	// Reason describes the matching condition
	Reason string `json:"reason"`
}
