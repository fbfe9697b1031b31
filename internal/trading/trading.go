package trading

import (
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// TradingSystem is the order entry surface of a simulated account.
type TradingSystem interface {
	// PlaceOrder validates a pending order, assigns its id and queues it for the next fill pass
	PlaceOrder(order types.Order) (string, error)
	// GetPositions returns the current positions
	GetPositions() ([]types.Position, error)
	// GetPosition returns the current position for a symbol
	GetPosition(symbol string) (types.Position, error)
	// CancelOrder cancels a pending order
	CancelOrder(orderID string) error
	// CancelAllOrders cancels all pending orders
	CancelAllOrders() error
	// GetOrderStatus returns the status of an order
	GetOrderStatus(orderID string) (types.OrderStatus, error)
	// GetAccountInfo returns the current account state including cash, equity, and P&L
	GetAccountInfo() (types.AccountInfo, error)
	// GetOpenOrders returns all pending orders that have not been executed yet
	GetOpenOrders() ([]types.Order, error)
	// GetMaxBuyQuantity returns the maximum quantity that can be bought at the given price.
	// It takes into account the current cash and commission fees.
	GetMaxBuyQuantity(price decimal.Decimal) (decimal.Decimal, error)
}
