package types

import (
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
)

type OrderSide string

type OrderType string

type OrderStatus string

type PositionType string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusFilled    OrderStatus = "filled"
	OrderStatusCancelled OrderStatus = "cancelled"
	OrderStatusExpired   OrderStatus = "expired"
	OrderStatusRejected  OrderStatus = "rejected"
)

const (
	PositionTypeLong  PositionType = "long"
	PositionTypeShort PositionType = "short"
)

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

const (
	OrderTypeMarket    OrderType = "market"
	OrderTypeLimit     OrderType = "limit"
	OrderTypeStop      OrderType = "stop"
	OrderTypeStopLimit OrderType = "stop_limit"
)

const (
	OrderReasonStrategy          string = "strategy"
	OrderReasonStopLoss          string = "stop_loss"
	OrderReasonTakeProfit        string = "take_profit"
	OrderReasonTrailingStop      string = "trailing_stop"
	OrderReasonInsufficientFunds string = "insufficient_funds"
	OrderReasonPositionClosed    string = "position_closed"
	OrderReasonEndOfRun          string = "end_of_run"
	OrderReasonInvalidQuantity   string = "invalid_quantity"
	OrderReasonInvalidPrice      string = "invalid_price"
	OrderReasonPositionConflict  string = "position_conflict"
	OrderReasonCancelled         string = "cancelled"
)

// Opposite returns the other side of the book.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}

	return OrderSideBuy
}

// EntrySide is the side of the order that opens a position of this type.
func (p PositionType) EntrySide() OrderSide {
	if p == PositionTypeShort {
		return OrderSideSell
	}

	return OrderSideBuy
}

// ExitSide is the side of the order that closes a position of this type.
func (p PositionType) ExitSide() OrderSide {
	return p.EntrySide().Opposite()
}

type Reason struct {
	Reason  string `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	Message string `yaml:"message" json:"message" csv:"message"`
}

// Order is a simulated instruction. It is created pending and reaches exactly one terminal status.
type Order struct {
	OrderID      string       `yaml:"order_id" json:"order_id" csv:"order_id" validate:"required"`
	Symbol       string       `yaml:"symbol" json:"symbol" csv:"symbol" validate:"required"`
	Type         OrderType    `yaml:"type" json:"type" csv:"type" validate:"required,oneof=market limit stop stop_limit"`
	Side         OrderSide    `yaml:"side" json:"side" csv:"side" validate:"required,oneof=buy sell"`
	PositionType PositionType `yaml:"position_type" json:"position_type" csv:"position_type" validate:"required,oneof=long short"`
	// IsEntry is true when the order opens or adds to a position, false when it closes one.
	IsEntry    bool                            `yaml:"is_entry" json:"is_entry" csv:"is_entry"`
	Quantity   decimal.Decimal                 `yaml:"quantity" json:"quantity" csv:"quantity"`
	LimitPrice optional.Option[decimal.Decimal] `yaml:"-" json:"limit_price,omitempty" csv:"-"`
	StopPrice  optional.Option[decimal.Decimal] `yaml:"-" json:"stop_price,omitempty" csv:"-"`
	// SignalPrice is the bar close the order was sized against.
	SignalPrice decimal.Decimal `yaml:"signal_price" json:"signal_price" csv:"signal_price"`
	CreatedAt   time.Time       `yaml:"created_at" json:"created_at" csv:"created_at" validate:"required"`
	Status      OrderStatus     `yaml:"status" json:"status" csv:"status" validate:"required,oneof=pending filled cancelled expired rejected"`
	// Filled fields are zero until the order is filled.
	FilledPrice  decimal.Decimal `yaml:"filled_price" json:"filled_price" csv:"filled_price"`
	FilledAt     time.Time       `yaml:"filled_at" json:"filled_at" csv:"filled_at"`
	Commission   decimal.Decimal `yaml:"commission" json:"commission" csv:"commission"`
	Slippage     decimal.Decimal `yaml:"slippage" json:"slippage" csv:"slippage"`
	Reason       Reason          `yaml:"reason" json:"reason" csv:"reason" validate:"required"`
	StrategyName string          `yaml:"strategy_name" json:"strategy_name" csv:"strategy_name"`
}

// Validate validates the Order struct.
func (o *Order) Validate() error {
	validate := validator.New()
	if err := validate.Struct(o); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidOrder, "invalid order", err)
	}

	if !o.Quantity.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidOrder, "order quantity must be > 0, got %s", o.Quantity.String())
	}

	if o.LimitPrice.IsSome() && !o.LimitPrice.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidOrder, "limit price must be > 0")
	}

	if o.StopPrice.IsSome() && !o.StopPrice.Unwrap().IsPositive() {
		return errors.New(errors.ErrCodeInvalidOrder, "stop price must be > 0")
	}

	switch o.Type {
	case OrderTypeLimit:
		if o.LimitPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "limit order requires a limit price")
		}
	case OrderTypeStop:
		if o.StopPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "stop order requires a stop price")
		}
	case OrderTypeStopLimit:
		if o.StopPrice.IsNone() || o.LimitPrice.IsNone() {
			return errors.New(errors.ErrCodeInvalidOrder, "stop limit order requires a stop and a limit price")
		}
	}

	return nil
}

// IsTerminal reports whether the order has left the pending state.
func (o *Order) IsTerminal() bool {
	return o.Status != OrderStatusPending
}

// Fill moves a pending order to filled.
func (o *Order) Fill(price, commission, slippage decimal.Decimal, at time.Time) {
	o.Status = OrderStatusFilled
	o.FilledPrice = price
	o.FilledAt = at
	o.Commission = commission
	o.Slippage = slippage
}

// Close moves a pending order to a non-filled terminal status and records why.
func (o *Order) Close(status OrderStatus, reason string, message string) {
	o.Status = status
	o.Reason = Reason{Reason: reason, Message: message}
}

// Notional is quantity times the fill price, or the signal price when unfilled.
func (o *Order) Notional() decimal.Decimal {
	if o.Status == OrderStatusFilled {
		return o.FilledPrice.Mul(o.Quantity)
	}

	return o.SignalPrice.Mul(o.Quantity)
}
