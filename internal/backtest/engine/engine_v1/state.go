package engine

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/Masterminds/squirrel"
	_ "github.com/marcboeker/go-duckdb"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/logger"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// BacktestState is the portfolio ledger of one run: cash, open positions, closed trades,
// every order created and the equity curve. It is owned by a single run and is not safe for
// concurrent use.
type BacktestState struct {
	initialCapital decimal.Decimal
	cash           decimal.Decimal
	// positions holds open positions only; a position's quantity is always > 0.
	positions   map[string]*types.Position
	trades      []types.Trade
	orders      []*types.Order
	equityCurve []types.EquityCurvePoint
	logger      *logger.Logger
}

func NewBacktestState(initialCapital decimal.Decimal, logger *logger.Logger) *BacktestState {
	return &BacktestState{
		initialCapital: initialCapital,
		cash:           initialCapital,
		positions:      make(map[string]*types.Position),
		trades:         nil,
		orders:         nil,
		equityCurve:    nil,
		logger:         logger,
	}
}

// RestoreBacktestState rebuilds a ledger from a finished run so it can be exported with Write.
func RestoreBacktestState(result *types.BacktestResult, logger *logger.Logger) *BacktestState {
	state := NewBacktestState(result.Config.InitialCapital, logger)

	if n := len(result.EquityCurve); n > 0 {
		state.cash = result.EquityCurve[n-1].Cash
	}

	for i := range result.Positions {
		position := result.Positions[i]
		state.positions[position.Symbol] = &position
	}

	state.trades = append(state.trades, result.Trades...)
	for i := range result.Orders {
		order := result.Orders[i]
		state.orders = append(state.orders, &order)
	}

	state.equityCurve = append(state.equityCurve, result.EquityCurve...)

	return state
}

// Cash is the uninvested balance.
func (b *BacktestState) Cash() decimal.Decimal {
	return b.cash
}

// PositionsValue is the signed market value of all open positions. Shorts count negatively.
func (b *BacktestState) PositionsValue() decimal.Decimal {
	value := decimal.Zero
	for _, position := range b.positions {
		value = value.Add(position.MarketValue())
	}

	return value
}

// Equity is cash plus the signed market value of all open positions.
func (b *BacktestState) Equity() decimal.Decimal {
	return b.cash.Add(b.PositionsValue())
}

// GetPosition returns a copy of the open position of symbol.
func (b *BacktestState) GetPosition(symbol string) optional.Option[types.Position] {
	position, ok := b.positions[symbol]
	if !ok {
		return optional.None[types.Position]()
	}

	return optional.Some(*position)
}

// HasPosition reports whether symbol has an open position.
func (b *BacktestState) HasPosition(symbol string) bool {
	_, ok := b.positions[symbol]

	return ok
}

// OpenPositionCount is the number of symbols with an open position.
func (b *BacktestState) OpenPositionCount() int {
	return len(b.positions)
}

// GetAllPositions returns copies of the open positions ordered by symbol.
func (b *BacktestState) GetAllPositions() []types.Position {
	positions := make([]types.Position, 0, len(b.positions))
	for _, symbol := range b.openSymbols() {
		positions = append(positions, *b.positions[symbol])
	}

	return positions
}

// GetAllTrades returns the closed trades in closing order.
func (b *BacktestState) GetAllTrades() []types.Trade {
	trades := make([]types.Trade, len(b.trades))
	copy(trades, b.trades)

	return trades
}

// GetAllOrders returns copies of every order in creation order, with their current status.
func (b *BacktestState) GetAllOrders() []types.Order {
	orders := make([]types.Order, 0, len(b.orders))
	for _, order := range b.orders {
		orders = append(orders, *order)
	}

	return orders
}

// GetOrderById returns a copy of the order with orderID.
func (b *BacktestState) GetOrderById(orderID string) optional.Option[types.Order] {
	for _, order := range b.orders {
		if order.OrderID == orderID {
			return optional.Some(*order)
		}
	}

	return optional.None[types.Order]()
}

// GetEquityCurve returns the equity curve points recorded so far.
func (b *BacktestState) GetEquityCurve() []types.EquityCurvePoint {
	curve := make([]types.EquityCurvePoint, len(b.equityCurve))
	copy(curve, b.equityCurve)

	return curve
}

// AddOrder records an order. The ledger keeps the pointer so later status changes are reflected.
func (b *BacktestState) AddOrder(order *types.Order) {
	b.orders = append(b.orders, order)
}

// Buy fills a buy order: it opens or adds to a long position, or covers a short one.
// The order is left untouched and an ErrCodeInsufficientFunds error is returned when
// price × quantity + commission exceeds the available cash.
func (b *BacktestState) Buy(order *types.Order, price, commission, slippage decimal.Decimal, at time.Time) (optional.Option[types.Trade], error) {
	if order.Side != types.OrderSideBuy {
		return optional.None[types.Trade](), errors.Newf(errors.ErrCodeInvalidOrder, "order %s is not a buy order", order.OrderID)
	}

	cost := price.Mul(order.Quantity).Add(commission)
	if cost.GreaterThan(b.cash) {
		return optional.None[types.Trade](), errors.Newf(errors.ErrCodeInsufficientFunds,
			"order %s costs %s but only %s is available", order.OrderID, cost.StringFixed(2), b.cash.StringFixed(2))
	}

	if order.IsEntry {
		if err := b.open(order, types.PositionTypeLong, price, commission, at); err != nil {
			return optional.None[types.Trade](), err
		}

		b.cash = b.cash.Sub(cost)
		order.Fill(price, commission, slippage, at)

		return optional.None[types.Trade](), nil
	}

	trade, err := b.reduce(order, types.PositionTypeShort, price, commission, at)
	if err != nil {
		return optional.None[types.Trade](), err
	}

	b.cash = b.cash.Sub(price.Mul(order.Quantity).Add(commission))
	order.Fill(price, commission, slippage, at)

	return trade, nil
}

// Sell fills a sell order: it closes or reduces a long position, or opens or adds to a short one.
// A short entry needs its notional plus commission in cash, the same as a long entry.
func (b *BacktestState) Sell(order *types.Order, price, commission, slippage decimal.Decimal, at time.Time) (optional.Option[types.Trade], error) {
	if order.Side != types.OrderSideSell {
		return optional.None[types.Trade](), errors.Newf(errors.ErrCodeInvalidOrder, "order %s is not a sell order", order.OrderID)
	}

	if order.IsEntry {
		required := price.Mul(order.Quantity).Add(commission)
		if required.GreaterThan(b.cash) {
			return optional.None[types.Trade](), errors.Newf(errors.ErrCodeInsufficientFunds,
				"short order %s needs %s but only %s is available", order.OrderID, required.StringFixed(2), b.cash.StringFixed(2))
		}

		if err := b.open(order, types.PositionTypeShort, price, commission, at); err != nil {
			return optional.None[types.Trade](), err
		}

		b.cash = b.cash.Add(price.Mul(order.Quantity)).Sub(commission)
		order.Fill(price, commission, slippage, at)

		return optional.None[types.Trade](), nil
	}

	trade, err := b.reduce(order, types.PositionTypeLong, price, commission, at)
	if err != nil {
		return optional.None[types.Trade](), err
	}

	b.cash = b.cash.Add(price.Mul(order.Quantity)).Sub(commission)
	order.Fill(price, commission, slippage, at)

	return trade, nil
}

// ForceClose closes the whole position of symbol at price without an order and books a trade with reason.
// Cash is not checked: a forced close always succeeds.
func (b *BacktestState) ForceClose(symbol string, price, commission decimal.Decimal, at time.Time, reason types.TradeCloseReason) (types.Trade, error) {
	position, ok := b.positions[symbol]
	if !ok {
		return types.Trade{}, errors.Newf(errors.ErrCodePositionNotFound, "no open position for %s", symbol)
	}

	quantity := position.Quantity
	notional := price.Mul(quantity)

	if position.PositionType == types.PositionTypeLong {
		b.cash = b.cash.Add(notional).Sub(commission)
	} else {
		b.cash = b.cash.Sub(notional).Sub(commission)
	}

	trade := b.closePosition(position, price, quantity, commission, at, reason, "")

	b.logger.Debug("Position force closed",
		zap.String("symbol", symbol),
		zap.String("reason", string(reason)),
		zap.String("price", price.String()),
		zap.String("pnl", trade.PnL.String()),
	)

	return trade, nil
}

// Mark revalues the position of symbol at price. Symbols without a position are ignored.
func (b *BacktestState) Mark(symbol string, price decimal.Decimal, at time.Time) {
	if position, ok := b.positions[symbol]; ok {
		position.Mark(price, at)
	}
}

// Snapshot appends the equity curve point of at and returns it.
func (b *BacktestState) Snapshot(at time.Time) types.EquityCurvePoint {
	positionsValue := b.PositionsValue()
	point := types.EquityCurvePoint{
		Time:           at,
		Equity:         b.cash.Add(positionsValue),
		Cash:           b.cash,
		PositionsValue: positionsValue,
	}

	b.equityCurve = append(b.equityCurve, point)

	return point
}

// RealizedNetPnLOn is the net P&L of the trades closed on the UTC calendar day of at.
func (b *BacktestState) RealizedNetPnLOn(at time.Time) decimal.Decimal {
	year, month, day := at.UTC().Date()
	total := decimal.Zero

	for _, trade := range b.trades {
		y, m, d := trade.ExitTime.UTC().Date()
		if y == year && m == month && d == day {
			total = total.Add(trade.NetPnL())
		}
	}

	return total
}

func (b *BacktestState) open(order *types.Order, positionType types.PositionType, price, commission decimal.Decimal, at time.Time) error {
	position, ok := b.positions[order.Symbol]
	if !ok {
		b.positions[order.Symbol] = types.NewPosition(order.Symbol, positionType, order.Quantity, price, commission, at, order.StrategyName)

		return nil
	}

	if position.PositionType != positionType {
		return errors.Newf(errors.ErrCodeInvalidOrder, "cannot open a %s position on %s while a %s position is open",
			positionType, order.Symbol, position.PositionType)
	}

	position.Merge(order.Quantity, price, commission)
	position.Mark(price, at)

	return nil
}

func (b *BacktestState) reduce(order *types.Order, positionType types.PositionType, price, commission decimal.Decimal, at time.Time) (optional.Option[types.Trade], error) {
	position, ok := b.positions[order.Symbol]
	if !ok || position.PositionType != positionType {
		return optional.None[types.Trade](), errors.Newf(errors.ErrCodePositionNotFound, "no open %s position for %s", positionType, order.Symbol)
	}

	if order.Quantity.GreaterThan(position.Quantity) {
		return optional.None[types.Trade](), errors.Newf(errors.ErrCodeInsufficientHolding,
			"order %s closes %s of %s but only %s is held", order.OrderID, order.Quantity, order.Symbol, position.Quantity)
	}

	if order.Quantity.Equal(position.Quantity) {
		reason := types.TradeCloseReasonSignal

		switch order.Reason.Reason {
		case types.OrderReasonStopLoss:
			reason = types.TradeCloseReasonStopLoss
		case types.OrderReasonTakeProfit:
			reason = types.TradeCloseReasonTakeProfit
		case types.OrderReasonTrailingStop:
			reason = types.TradeCloseReasonTrailingStop
		}

		return optional.Some(b.closePosition(position, price, order.Quantity, commission, at, reason, order.OrderID)), nil
	}

	// partial close: the position stays open and accumulates the realized part
	position.RealizedPnL = position.RealizedPnL.Add(position.PnL(price, order.Quantity))
	position.Commission = position.Commission.Add(commission)
	position.Quantity = position.Quantity.Sub(order.Quantity)
	position.Mark(price, at)

	return optional.None[types.Trade](), nil
}

func (b *BacktestState) closePosition(position *types.Position, price, quantity, commission decimal.Decimal, at time.Time, reason types.TradeCloseReason, orderID string) types.Trade {
	trade := types.Trade{
		Symbol:       position.Symbol,
		PositionType: position.PositionType,
		EntryPrice:   position.EntryPrice,
		EntryTime:    position.EntryTime,
		ExitPrice:    price,
		ExitTime:     at,
		Quantity:     quantity,
		PnL:          position.RealizedPnL.Add(position.PnL(price, quantity)),
		Commission:   position.Commission.Add(commission),
		Reason:       reason,
		OrderID:      orderID,
		StrategyName: position.StrategyName,
	}

	delete(b.positions, position.Symbol)
	b.trades = append(b.trades, trade)

	return trade
}

func (b *BacktestState) openSymbols() []string {
	symbols := make([]string, 0, len(b.positions))
	for symbol := range b.positions {
		symbols = append(symbols, symbol)
	}

	sort.Strings(symbols)

	return symbols
}

// Write exports the trades, orders, open positions and equity curve to Parquet files in the directory path.
func (b *BacktestState) Write(path string) error {
	// Create directory if it doesn't exist
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to open duckdb", err)
	}
	defer db.Close()

	sq := squirrel.StatementBuilder.PlaceholderFormat(squirrel.Question)

	if err := createExportTables(db); err != nil {
		return err
	}

	for _, trade := range b.trades {
		_, err := sq.Insert("trades").
			Columns("symbol", "position_type", "entry_price", "entry_time", "exit_price", "exit_time",
				"quantity", "pnl", "commission", "reason", "order_id", "strategy_name").
			Values(trade.Symbol, string(trade.PositionType), trade.EntryPrice.InexactFloat64(), trade.EntryTime,
				trade.ExitPrice.InexactFloat64(), trade.ExitTime, trade.Quantity.InexactFloat64(),
				trade.PnL.InexactFloat64(), trade.Commission.InexactFloat64(), string(trade.Reason),
				trade.OrderID, trade.StrategyName).
			RunWith(db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert trade", err)
		}
	}

	for _, order := range b.orders {
		_, err := sq.Insert("orders").
			Columns("order_id", "symbol", "order_type", "side", "position_type", "is_entry", "quantity",
				"signal_price", "created_at", "status", "filled_price", "filled_at", "commission", "slippage",
				"reason", "message", "strategy_name").
			Values(order.OrderID, order.Symbol, string(order.Type), string(order.Side), string(order.PositionType),
				order.IsEntry, order.Quantity.InexactFloat64(), order.SignalPrice.InexactFloat64(), order.CreatedAt,
				string(order.Status), order.FilledPrice.InexactFloat64(), nullableTime(order.FilledAt),
				order.Commission.InexactFloat64(), order.Slippage.InexactFloat64(),
				order.Reason.Reason, order.Reason.Message, order.StrategyName).
			RunWith(db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert order", err)
		}
	}

	for _, point := range b.equityCurve {
		_, err := sq.Insert("equity_curve").
			Columns("time", "equity", "cash", "positions_value").
			Values(point.Time, point.Equity.InexactFloat64(), point.Cash.InexactFloat64(), point.PositionsValue.InexactFloat64()).
			RunWith(db).
			Exec()
		if err != nil {
			return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to insert equity point", err)
		}
	}

	for _, table := range []string{"trades", "orders", "equity_curve"} {
		// Using raw SQL as Squirrel doesn't support COPY
		target := filepath.Join(path, table+".parquet")
		if _, err := db.Exec(fmt.Sprintf(`COPY %s TO '%s' (FORMAT PARQUET)`, table, target)); err != nil {
			return errors.Wrapf(errors.ErrCodePersistenceFailed, err, "failed to export %s to Parquet", table)
		}
	}

	b.logger.Info("Successfully exported backtest results to Parquet files",
		zap.String("path", path),
		zap.Int("trades", len(b.trades)),
		zap.Int("orders", len(b.orders)),
		zap.Int("equity_points", len(b.equityCurve)),
	)

	return nil
}

func createExportTables(db *sql.DB) error {
	// Using raw SQL for DDL - Squirrel doesn't have CREATE TABLE syntax
	_, err := db.Exec(`
		CREATE TABLE trades (
			symbol TEXT,
			position_type TEXT,
			entry_price DOUBLE,
			entry_time TIMESTAMP,
			exit_price DOUBLE,
			exit_time TIMESTAMP,
			quantity DOUBLE,
			pnl DOUBLE,
			commission DOUBLE,
			reason TEXT,
			order_id TEXT,
			strategy_name TEXT
		);
		CREATE TABLE orders (
			order_id TEXT,
			symbol TEXT,
			order_type TEXT,
			side TEXT,
			position_type TEXT,
			is_entry BOOLEAN,
			quantity DOUBLE,
			signal_price DOUBLE,
			created_at TIMESTAMP,
			status TEXT,
			filled_price DOUBLE,
			filled_at TIMESTAMP,
			commission DOUBLE,
			slippage DOUBLE,
			reason TEXT,
			message TEXT,
			strategy_name TEXT
		);
		CREATE TABLE equity_curve (
			time TIMESTAMP,
			equity DOUBLE,
			cash DOUBLE,
			positions_value DOUBLE
		);
	`)
	if err != nil {
		return errors.Wrap(errors.ErrCodePersistenceFailed, "failed to create export tables", err)
	}

	return nil
}

func nullableTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}

// AccountInfo summarises the ledger.
func (b *BacktestState) AccountInfo() types.AccountInfo {
	realized := decimal.Zero
	unrealized := decimal.Zero
	commission := decimal.Zero

	for _, trade := range b.trades {
		realized = realized.Add(trade.PnL)
		commission = commission.Add(trade.Commission)
	}

	for _, position := range b.positions {
		realized = realized.Add(position.RealizedPnL)
		unrealized = unrealized.Add(position.UnrealizedPnL)
		commission = commission.Add(position.Commission)
	}

	positionsValue := b.PositionsValue()

	return types.AccountInfo{
		Cash:            b.cash,
		Equity:          b.cash.Add(positionsValue),
		PositionsValue:  positionsValue,
		RealizedPnL:     realized,
		UnrealizedPnL:   unrealized,
		TotalCommission: commission,
		OpenPositions:   len(b.positions),
	}
}
