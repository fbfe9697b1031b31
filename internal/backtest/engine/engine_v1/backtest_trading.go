package engine

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/trading"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/internal/utils"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Reasons a signal is dropped before it becomes an order.
const (
	DroppedPositionExists   = "position_exists"
	DroppedNoPosition       = "no_position"
	DroppedMaxPositions     = "max_positions"
	DroppedShortingDisabled = "shorting_disabled"
	DroppedBelowMinTrade    = "below_min_trade_amount"
	DroppedZeroQuantity     = "zero_quantity"
	DroppedDailyLossLimit   = "daily_loss_limit"
	DroppedInvalidOrder     = "invalid_order"
)

// orderNamespace seeds the deterministic order ids.
var orderNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/rxtech-lab/argo-backtest/orders"))

// BacktestTrading is the order manager of a run. It turns signals into orders, keeps the pending
// order book and fills orders against the bars of the current timestamp.
type BacktestTrading struct {
	state        *BacktestState
	config       types.BacktestConfig
	sizing       *types.PositionSizing
	risk         *types.RiskManagement
	commission   commission_fee.CommissionFee
	logger       *logger.Logger
	strategyName string
	sequence     int
	// pendingOrders is in creation order, which is also the fill order.
	pendingOrders  []*types.Order
	droppedSignals map[string]int
	now            time.Time
	day            time.Time
	dayStartEquity decimal.Decimal
}

func NewBacktestTrading(state *BacktestState, config types.BacktestConfig, strategy types.StrategyConfig, commission commission_fee.CommissionFee, logger *logger.Logger) *BacktestTrading {
	return &BacktestTrading{
		state:          state,
		config:         config,
		sizing:         strategy.PositionSizing,
		risk:           strategy.RiskManagement,
		commission:     commission,
		logger:         logger,
		strategyName:   strategy.Name,
		sequence:       0,
		pendingOrders:  nil,
		droppedSignals: make(map[string]int),
		now:            time.Time{},
		day:            time.Time{},
		dayStartEquity: decimal.Zero,
	}
}

var _ trading.TradingSystem = (*BacktestTrading)(nil)

// UpdateCurrentTime moves the order manager to at. On the first timestamp of a UTC day the
// start-of-day equity used by the daily loss limit is captured.
func (b *BacktestTrading) UpdateCurrentTime(at time.Time) {
	b.now = at

	day := at.UTC().Truncate(24 * time.Hour)
	if !day.Equal(b.day) {
		b.day = day
		b.dayStartEquity = b.state.Equity()
	}
}

// DroppedSignals returns how many signals did not become orders, by reason.
func (b *BacktestTrading) DroppedSignals() map[string]int {
	dropped := make(map[string]int, len(b.droppedSignals))
	for reason, count := range b.droppedSignals {
		dropped[reason] = count
	}

	return dropped
}

// ProcessSignals creates one order per qualifying signal, in signal order, and returns the outcome
// of each signal: types.SignalOutcomeOrderPlaced or the reason it was dropped.
// Entries on a symbol with an open position and exits on a symbol without one are dropped.
func (b *BacktestTrading) ProcessSignals(signals []types.Signal) []string {
	outcomes := make([]string, len(signals))

	for i, signal := range signals {
		var reason string
		if signal.Type == types.SignalTypeEntry {
			reason = b.processEntry(signal)
		} else {
			reason = b.processExit(signal)
		}

		if reason != "" {
			b.drop(signal, reason)
			outcomes[i] = reason

			continue
		}

		outcomes[i] = types.SignalOutcomeOrderPlaced
	}

	return outcomes
}

func (b *BacktestTrading) processEntry(signal types.Signal) string {
	if b.state.HasPosition(signal.Symbol) {
		return DroppedPositionExists
	}

	positionType := signal.Direction.PositionType()
	if positionType == types.PositionTypeShort && !b.config.EnableShorting {
		return DroppedShortingDisabled
	}

	if b.dailyLossLimitReached() {
		return DroppedDailyLossLimit
	}

	if !b.hasPendingEntry(signal.Symbol) && b.openSymbolCount() >= b.maxPositions() {
		return DroppedMaxPositions
	}

	quantity, reason := b.entryQuantity(signal.Price)
	if reason != "" {
		return reason
	}

	order := b.orderFromSignal(signal, positionType.EntrySide(), positionType, true, quantity)
	if _, err := b.PlaceOrder(order); err != nil {
		b.logger.Debug("Entry order rejected by validation", zap.String("symbol", signal.Symbol), zap.Error(err))

		return DroppedInvalidOrder
	}

	return ""
}

// processExit closes the whole open position of the symbol. The signal's direction is not
// consulted: a held long is sold and a held short is bought back.
func (b *BacktestTrading) processExit(signal types.Signal) string {
	position := b.state.GetPosition(signal.Symbol)
	if position.IsNone() {
		return DroppedNoPosition
	}

	open := position.Unwrap()

	order := b.orderFromSignal(signal, open.PositionType.ExitSide(), open.PositionType, false, open.Quantity)
	if _, err := b.PlaceOrder(order); err != nil {
		b.logger.Debug("Exit order rejected by validation", zap.String("symbol", signal.Symbol), zap.Error(err))

		return DroppedInvalidOrder
	}

	return ""
}

func (b *BacktestTrading) drop(signal types.Signal, reason string) {
	b.droppedSignals[reason]++

	b.logger.Debug("Signal dropped",
		zap.String("symbol", signal.Symbol),
		zap.String("type", string(signal.Type)),
		zap.String("direction", string(signal.Direction)),
		zap.String("reason", reason),
	)
}

// entryQuantity sizes an entry at price. A non-empty reason means the entry must be dropped.
func (b *BacktestTrading) entryQuantity(price decimal.Decimal) (decimal.Decimal, string) {
	if !price.IsPositive() {
		return decimal.Zero, DroppedZeroQuantity
	}

	equity := b.state.Equity()
	notional := equity.Mul(b.config.PositionSize)
	riskBased := false

	if b.sizing != nil {
		size := decimal.NewFromFloat(b.sizing.Size)

		switch b.sizing.Method {
		case types.PositionSizingFixedPct:
			notional = equity.Mul(size)
		case types.PositionSizingFixedUSD:
			notional = size
		case types.PositionSizingRiskBased:
			notional = equity.Mul(size)

			// risk size × equity is what the stop loss may cost
			if stopLoss := b.stopLossPct(); stopLoss.IsPositive() {
				notional = notional.Div(stopLoss)
				riskBased = true
			}
		}
	}

	if b.config.MaxTradeAmount.IsSome() {
		notional = decimal.Min(notional, b.config.MaxTradeAmount.Unwrap())
	}

	if notional.LessThan(b.config.MinTradeAmount) {
		return decimal.Zero, DroppedBelowMinTrade
	}

	precision := b.config.DecimalPrecision
	if !b.config.UseFractionalShares {
		precision = 0
	}

	quantity := utils.CalculateOrderQuantity(notional, price, precision)

	if riskBased {
		quantity = decimal.Min(quantity, utils.CalculateMaxQuantity(b.state.Cash(), price, b.commission, precision))
	}

	if !quantity.IsPositive() {
		return decimal.Zero, DroppedZeroQuantity
	}

	return quantity, ""
}

func (b *BacktestTrading) stopLossPct() decimal.Decimal {
	if b.config.StopLoss.IsSome() {
		return b.config.StopLoss.Unwrap()
	}

	if b.risk != nil && b.risk.UseStopLoss {
		return decimal.NewFromFloat(b.risk.StopLossPct)
	}

	return decimal.Zero
}

func (b *BacktestTrading) maxPositions() int {
	maxPositions := b.config.MaxPositions
	if b.sizing != nil && b.sizing.MaxPositions > 0 && b.sizing.MaxPositions < maxPositions {
		maxPositions = b.sizing.MaxPositions
	}

	return maxPositions
}

// openSymbolCount counts symbols with an open position or a pending entry.
func (b *BacktestTrading) openSymbolCount() int {
	count := b.state.OpenPositionCount()
	seen := make(map[string]struct{})

	for _, order := range b.pendingOrders {
		if !order.IsEntry || b.state.HasPosition(order.Symbol) {
			continue
		}

		if _, ok := seen[order.Symbol]; !ok {
			seen[order.Symbol] = struct{}{}
			count++
		}
	}

	return count
}

func (b *BacktestTrading) hasPendingEntry(symbol string) bool {
	for _, order := range b.pendingOrders {
		if order.IsEntry && order.Symbol == symbol {
			return true
		}
	}

	return false
}

func (b *BacktestTrading) dailyLossLimitReached() bool {
	if b.risk == nil || b.risk.MaxLossPerDay <= 0 {
		return false
	}

	realized := b.state.RealizedNetPnLOn(b.now)
	if !realized.IsNegative() {
		return false
	}

	limit := b.dayStartEquity.Mul(decimal.NewFromFloat(b.risk.MaxLossPerDay))

	return realized.Abs().GreaterThanOrEqual(limit)
}

func (b *BacktestTrading) orderFromSignal(signal types.Signal, side types.OrderSide, positionType types.PositionType, isEntry bool, quantity decimal.Decimal) types.Order {
	order := types.Order{
		OrderID:      "",
		Symbol:       signal.Symbol,
		Type:         signal.OrderType,
		Side:         side,
		PositionType: positionType,
		IsEntry:      isEntry,
		Quantity:     quantity,
		LimitPrice:   optional.None[decimal.Decimal](),
		StopPrice:    optional.None[decimal.Decimal](),
		SignalPrice:  signal.Price,
		CreatedAt:    signal.Time,
		Status:       types.OrderStatusPending,
		Reason:       types.Reason{Reason: types.OrderReasonStrategy, Message: signal.Reason},
		StrategyName: b.strategyName,
	}

	one := decimal.NewFromInt(1)
	below := signal.Price.Mul(one.Sub(signal.PriceOffset))
	above := signal.Price.Mul(one.Add(signal.PriceOffset))

	switch signal.OrderType {
	case types.OrderTypeLimit:
		// buy below, sell above the signal price
		if side == types.OrderSideBuy {
			order.LimitPrice = optional.Some(below)
		} else {
			order.LimitPrice = optional.Some(above)
		}
	case types.OrderTypeStop:
		if side == types.OrderSideBuy {
			order.StopPrice = optional.Some(above)
		} else {
			order.StopPrice = optional.Some(below)
		}
	}

	return order
}

// PlaceOrder implements trading.TradingSystem. The order is validated, given the next id and
// queued as pending; it is filled by the next ProcessPendingOrders with a bar for its symbol.
func (b *BacktestTrading) PlaceOrder(order types.Order) (string, error) {
	if order.CreatedAt.IsZero() {
		order.CreatedAt = b.now
	}

	if order.Reason.Reason == "" {
		order.Reason.Reason = types.OrderReasonStrategy
	}

	if order.StrategyName == "" {
		order.StrategyName = b.strategyName
	}

	order.Status = types.OrderStatusPending
	order.OrderID = b.nextOrderID()

	if err := order.Validate(); err != nil {
		b.sequence--

		return "", err
	}

	pending := order
	b.pendingOrders = append(b.pendingOrders, &pending)
	b.state.AddOrder(&pending)

	return pending.OrderID, nil
}

func (b *BacktestTrading) nextOrderID() string {
	b.sequence++

	return uuid.NewSHA1(orderNamespace, []byte(fmt.Sprintf("%s/%d", b.strategyName, b.sequence))).String()
}

// ProcessPendingOrders tries to fill every pending order whose symbol has a bar in bars.
// Market orders fill at the close adjusted by slippage. Limit and stop orders only fill on bars
// after the one they were created on, once the bar's range reaches their price.
func (b *BacktestTrading) ProcessPendingOrders(bars map[string]types.MarketData) {
	if len(b.pendingOrders) == 0 {
		return
	}

	queue := b.pendingOrders
	b.pendingOrders = nil

	for _, order := range queue {
		bar, ok := bars[order.Symbol]
		if !ok {
			b.pendingOrders = append(b.pendingOrders, order)

			continue
		}

		price, reference, triggered := b.fillPrice(order, bar)
		if !triggered {
			b.pendingOrders = append(b.pendingOrders, order)

			continue
		}

		b.execute(order, price, reference, bar.Time)
	}
}

// fillPrice returns the execution price of order on bar, the price slippage is measured against
// and whether the order triggers at all.
func (b *BacktestTrading) fillPrice(order *types.Order, bar types.MarketData) (decimal.Decimal, decimal.Decimal, bool) {
	closePrice := decimal.NewFromFloat(bar.Close)

	if order.Type == types.OrderTypeMarket {
		return b.slip(closePrice, order.Side), closePrice, true
	}

	if !bar.Time.After(order.CreatedAt) {
		return decimal.Zero, decimal.Zero, false
	}

	open := decimal.NewFromFloat(bar.Open)
	high := decimal.NewFromFloat(bar.High)
	low := decimal.NewFromFloat(bar.Low)
	buy := order.Side == types.OrderSideBuy

	switch order.Type {
	case types.OrderTypeLimit:
		limit := order.LimitPrice.Unwrap()
		if buy && low.LessThanOrEqual(limit) {
			price := decimal.Min(limit, open)

			return price, price, true
		}

		if !buy && high.GreaterThanOrEqual(limit) {
			price := decimal.Max(limit, open)

			return price, price, true
		}
	case types.OrderTypeStop:
		stop := order.StopPrice.Unwrap()
		if buy && high.GreaterThanOrEqual(stop) {
			trigger := decimal.Max(stop, open)

			return b.slip(trigger, order.Side), trigger, true
		}

		if !buy && low.LessThanOrEqual(stop) {
			trigger := decimal.Min(stop, open)

			return b.slip(trigger, order.Side), trigger, true
		}
	case types.OrderTypeStopLimit:
		stop := order.StopPrice.Unwrap()
		limit := order.LimitPrice.Unwrap()

		if buy && high.GreaterThanOrEqual(stop) && low.LessThanOrEqual(limit) {
			return limit, limit, true
		}

		if !buy && low.LessThanOrEqual(stop) && high.GreaterThanOrEqual(limit) {
			return limit, limit, true
		}
	}

	return decimal.Zero, decimal.Zero, false
}

// slip moves price against the order by the configured slippage rate.
func (b *BacktestTrading) slip(price decimal.Decimal, side types.OrderSide) decimal.Decimal {
	one := decimal.NewFromInt(1)
	if side == types.OrderSideBuy {
		return price.Mul(one.Add(b.config.SlippageRate))
	}

	return price.Mul(one.Sub(b.config.SlippageRate))
}

func (b *BacktestTrading) execute(order *types.Order, price, reference decimal.Decimal, at time.Time) {
	if !order.IsEntry {
		position := b.state.GetPosition(order.Symbol)
		if position.IsNone() || position.Unwrap().PositionType != order.PositionType {
			order.Close(types.OrderStatusCancelled, types.OrderReasonPositionClosed, "position was closed before the order filled")

			return
		}

		// a partial close may have shrunk the position since the order was sized
		if held := position.Unwrap().Quantity; order.Quantity.GreaterThan(held) {
			order.Quantity = held
		}
	}

	commission := b.commission.Calculate(order.Quantity, price)
	slippage := price.Sub(reference).Abs().Mul(order.Quantity)

	var err error
	if order.Side == types.OrderSideBuy {
		_, err = b.state.Buy(order, price, commission, slippage, at)
	} else {
		_, err = b.state.Sell(order, price, commission, slippage, at)
	}

	if err != nil {
		reason := types.OrderReasonPositionConflict
		if errors.IsInsufficientFunds(err) {
			reason = types.OrderReasonInsufficientFunds
		}

		order.Close(types.OrderStatusRejected, reason, err.Error())

		b.logger.Debug("Order rejected",
			zap.String("order_id", order.OrderID),
			zap.String("symbol", order.Symbol),
			zap.String("reason", reason),
		)

		return
	}

	b.logger.Debug("Order filled",
		zap.String("order_id", order.OrderID),
		zap.String("symbol", order.Symbol),
		zap.String("side", string(order.Side)),
		zap.String("quantity", order.Quantity.String()),
		zap.String("price", price.String()),
	)
}

// ExpirePendingOrders moves every order still pending to expired. Called once after the last timestamp.
func (b *BacktestTrading) ExpirePendingOrders() {
	for _, order := range b.pendingOrders {
		order.Close(types.OrderStatusExpired, types.OrderReasonEndOfRun, "order was still pending when the run ended")
	}

	b.pendingOrders = nil
}

// CancelOrder implements trading.TradingSystem.
func (b *BacktestTrading) CancelOrder(orderID string) error {
	for i, order := range b.pendingOrders {
		if order.OrderID == orderID {
			order.Close(types.OrderStatusCancelled, types.OrderReasonCancelled, "")
			b.pendingOrders = append(b.pendingOrders[:i], b.pendingOrders[i+1:]...)

			return nil
		}
	}

	return errors.Newf(errors.ErrCodeNotFound, "no pending order %s", orderID)
}

// CancelAllOrders implements trading.TradingSystem.
func (b *BacktestTrading) CancelAllOrders() error {
	for _, order := range b.pendingOrders {
		order.Close(types.OrderStatusCancelled, types.OrderReasonCancelled, "")
	}

	b.pendingOrders = nil

	return nil
}

// GetOrderStatus implements trading.TradingSystem.
func (b *BacktestTrading) GetOrderStatus(orderID string) (types.OrderStatus, error) {
	order := b.state.GetOrderById(orderID)
	if order.IsNone() {
		return "", errors.Newf(errors.ErrCodeNotFound, "order %s not found", orderID)
	}

	return order.Unwrap().Status, nil
}

// GetOpenOrders implements trading.TradingSystem.
func (b *BacktestTrading) GetOpenOrders() ([]types.Order, error) {
	orders := make([]types.Order, 0, len(b.pendingOrders))
	for _, order := range b.pendingOrders {
		orders = append(orders, *order)
	}

	return orders, nil
}

// GetPosition implements trading.TradingSystem.
func (b *BacktestTrading) GetPosition(symbol string) (types.Position, error) {
	position := b.state.GetPosition(symbol)
	if position.IsNone() {
		return types.Position{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
	}

	return position.Unwrap(), nil
}

// GetPositions implements trading.TradingSystem.
func (b *BacktestTrading) GetPositions() ([]types.Position, error) {
	return b.state.GetAllPositions(), nil
}

// GetAccountInfo implements trading.TradingSystem.
func (b *BacktestTrading) GetAccountInfo() (types.AccountInfo, error) {
	return b.state.AccountInfo(), nil
}

// GetMaxBuyQuantity implements trading.TradingSystem.
func (b *BacktestTrading) GetMaxBuyQuantity(price decimal.Decimal) (decimal.Decimal, error) {
	if !price.IsPositive() {
		return decimal.Zero, errors.Newf(errors.ErrCodeInvalidParameter, "price must be > 0, got %s", price)
	}

	precision := b.config.DecimalPrecision
	if !b.config.UseFractionalShares {
		precision = 0
	}

	return utils.CalculateMaxQuantity(b.state.Cash(), price, b.commission, precision), nil
}
