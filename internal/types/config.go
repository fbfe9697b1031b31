package types

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

const (
	BrokerRate              = "rate"
	BrokerInteractiveBroker = "interactive_broker"
	BrokerZero              = "zero_commission"
)

var (
	DefaultCommissionRate   = decimal.RequireFromString("0.001")
	DefaultSlippageRate     = decimal.RequireFromString("0.0001")
	DefaultPositionSize     = decimal.RequireFromString("0.2")
	DefaultMinTradeAmount   = decimal.NewFromInt(100)
	DefaultMaxPositions     = 5
	DefaultDecimalPrecision = int32(8)
)

// BacktestConfig holds the immutable parameters of a run.
type BacktestConfig struct {
	StartDate      time.Time       `yaml:"start_date" json:"start_date" jsonschema:"title=Start Date,description=First timestamp of the simulated period" validate:"required"`
	EndDate        time.Time       `yaml:"end_date" json:"end_date" jsonschema:"title=End Date,description=Last timestamp of the simulated period" validate:"required"`
	InitialCapital decimal.Decimal `yaml:"initial_capital" json:"initial_capital" jsonschema:"title=Initial Capital,description=Starting cash in USD"`
	Symbols        []string        `yaml:"symbols" json:"symbols" jsonschema:"title=Symbols,description=Symbols to replay" validate:"required,min=1,unique,dive,required"`
	Timeframe      Timeframe       `yaml:"timeframe" json:"timeframe" jsonschema:"title=Timeframe,enum=1m,enum=5m,enum=15m,enum=30m,enum=1h,enum=4h,enum=1d,enum=1w,enum=1M" validate:"required"`
	CommissionRate decimal.Decimal `yaml:"commission_rate" json:"commission_rate" jsonschema:"title=Commission Rate,description=Fraction of notional charged per fill"`
	SlippageRate   decimal.Decimal `yaml:"slippage_rate" json:"slippage_rate" jsonschema:"title=Slippage Rate,description=Fraction the fill price moves against the order"`
	EnableShorting bool            `yaml:"enable_shorting" json:"enable_shorting" jsonschema:"title=Enable Shorting"`
	MaxPositions   int             `yaml:"max_positions" json:"max_positions" jsonschema:"title=Max Positions,minimum=1" validate:"gte=1"`
	// PositionSize is the fraction of equity committed to each entry.
	PositionSize        decimal.Decimal                  `yaml:"position_size" json:"position_size" jsonschema:"title=Position Size,description=Fraction of equity per entry"`
	StopLoss            optional.Option[decimal.Decimal] `yaml:"stop_loss" json:"stop_loss,omitempty" jsonschema:"title=Stop Loss,description=Loss fraction that forces a close"`
	TakeProfit          optional.Option[decimal.Decimal] `yaml:"take_profit" json:"take_profit,omitempty" jsonschema:"title=Take Profit,description=Gain fraction that forces a close"`
	UseFractionalShares bool                             `yaml:"use_fractional_shares" json:"use_fractional_shares" jsonschema:"title=Use Fractional Shares"`
	MinTradeAmount      decimal.Decimal                  `yaml:"min_trade_amount" json:"min_trade_amount" jsonschema:"title=Min Trade Amount"`
	MaxTradeAmount      optional.Option[decimal.Decimal] `yaml:"max_trade_amount" json:"max_trade_amount,omitempty" jsonschema:"title=Max Trade Amount"`
	Broker              string                           `yaml:"broker" json:"broker" jsonschema:"title=Broker,description=Commission model,enum=rate,enum=interactive_broker,enum=zero_commission" validate:"omitempty,oneof=rate interactive_broker zero_commission"`
	DecimalPrecision    int32                            `yaml:"decimal_precision" json:"decimal_precision" jsonschema:"title=Decimal Precision,description=Digits kept when rounding fractional quantities" validate:"gte=0,lte=16"`
}

// DefaultBacktestConfig returns a config with every optional field at its default value.
func DefaultBacktestConfig() BacktestConfig {
	return BacktestConfig{
		Timeframe:           TimeframeOneDay,
		CommissionRate:      DefaultCommissionRate,
		SlippageRate:        DefaultSlippageRate,
		EnableShorting:      false,
		MaxPositions:        DefaultMaxPositions,
		PositionSize:        DefaultPositionSize,
		StopLoss:            optional.None[decimal.Decimal](),
		TakeProfit:          optional.None[decimal.Decimal](),
		UseFractionalShares: true,
		MinTradeAmount:      DefaultMinTradeAmount,
		MaxTradeAmount:      optional.None[decimal.Decimal](),
		Broker:              BrokerRate,
		DecimalPrecision:    DefaultDecimalPrecision,
	}
}

// NewBacktestConfig builds a config with defaults for everything but the required fields and validates it.
func NewBacktestConfig(start, end time.Time, initialCapital decimal.Decimal, symbols []string, timeframe Timeframe) (BacktestConfig, error) {
	config := DefaultBacktestConfig()
	config.StartDate = start
	config.EndDate = end
	config.InitialCapital = initialCapital
	config.Symbols = symbols
	config.Timeframe = timeframe

	if err := config.Validate(); err != nil {
		return BacktestConfig{}, err
	}

	return config, nil
}

// Validate returns an ErrCodeInvalidConfiguration error for the first invalid value.
func (c *BacktestConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(c); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if !c.EndDate.After(c.StartDate) {
		return errors.New(errors.ErrCodeInvalidConfiguration, "end_date must be after start_date")
	}

	if err := c.Timeframe.Validate(); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidConfiguration, "invalid backtest config", err)
	}

	if !c.InitialCapital.IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "initial_capital must be > 0, got %s", c.InitialCapital)
	}

	if c.CommissionRate.IsNegative() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "commission_rate must be >= 0, got %s", c.CommissionRate)
	}

	if c.SlippageRate.IsNegative() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "slippage_rate must be >= 0, got %s", c.SlippageRate)
	}

	if !c.PositionSize.IsPositive() || c.PositionSize.GreaterThan(decimal.NewFromInt(1)) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "position_size must be in (0, 1], got %s", c.PositionSize)
	}

	if c.StopLoss.IsSome() {
		sl := c.StopLoss.Unwrap()
		if !sl.IsPositive() || sl.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return errors.Newf(errors.ErrCodeInvalidConfiguration, "stop_loss must be in (0, 1), got %s", sl)
		}
	}

	if c.TakeProfit.IsSome() && !c.TakeProfit.Unwrap().IsPositive() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "take_profit must be > 0, got %s", c.TakeProfit.Unwrap())
	}

	if c.MinTradeAmount.IsNegative() {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "min_trade_amount must be >= 0, got %s", c.MinTradeAmount)
	}

	if c.MaxTradeAmount.IsSome() && c.MaxTradeAmount.Unwrap().LessThan(c.MinTradeAmount) {
		return errors.Newf(errors.ErrCodeInvalidConfiguration, "max_trade_amount %s is below min_trade_amount %s", c.MaxTradeAmount.Unwrap(), c.MinTradeAmount)
	}

	return nil
}

// backtestConfigYAML mirrors BacktestConfig with pointers so absent keys keep their defaults.
type backtestConfigYAML struct {
	StartDate           time.Time        `yaml:"start_date"`
	EndDate             time.Time        `yaml:"end_date"`
	InitialCapital      decimal.Decimal  `yaml:"initial_capital"`
	Symbols             []string         `yaml:"symbols"`
	Timeframe           *Timeframe       `yaml:"timeframe,omitempty"`
	CommissionRate      *decimal.Decimal `yaml:"commission_rate,omitempty"`
	SlippageRate        *decimal.Decimal `yaml:"slippage_rate,omitempty"`
	EnableShorting      *bool            `yaml:"enable_shorting,omitempty"`
	MaxPositions        *int             `yaml:"max_positions,omitempty"`
	PositionSize        *decimal.Decimal `yaml:"position_size,omitempty"`
	StopLoss            *decimal.Decimal `yaml:"stop_loss,omitempty"`
	TakeProfit          *decimal.Decimal `yaml:"take_profit,omitempty"`
	UseFractionalShares *bool            `yaml:"use_fractional_shares,omitempty"`
	MinTradeAmount      *decimal.Decimal `yaml:"min_trade_amount,omitempty"`
	MaxTradeAmount      *decimal.Decimal `yaml:"max_trade_amount,omitempty"`
	Broker              *string          `yaml:"broker,omitempty"`
	DecimalPrecision    *int32           `yaml:"decimal_precision,omitempty"`
}

// UnmarshalYAML implements custom unmarshaling for BacktestConfig. Missing keys take their defaults.
func (c *BacktestConfig) UnmarshalYAML(value *yaml.Node) error {
	var raw backtestConfigYAML
	if err := value.Decode(&raw); err != nil {
		return err
	}

	config := DefaultBacktestConfig()
	config.StartDate = raw.StartDate
	config.EndDate = raw.EndDate
	config.InitialCapital = raw.InitialCapital
	config.Symbols = raw.Symbols

	if raw.Timeframe != nil {
		config.Timeframe = *raw.Timeframe
	}

	if raw.CommissionRate != nil {
		config.CommissionRate = *raw.CommissionRate
	}

	if raw.SlippageRate != nil {
		config.SlippageRate = *raw.SlippageRate
	}

	if raw.EnableShorting != nil {
		config.EnableShorting = *raw.EnableShorting
	}

	if raw.MaxPositions != nil {
		config.MaxPositions = *raw.MaxPositions
	}

	if raw.PositionSize != nil {
		config.PositionSize = *raw.PositionSize
	}

	if raw.StopLoss != nil {
		config.StopLoss = optional.Some(*raw.StopLoss)
	}

	if raw.TakeProfit != nil {
		config.TakeProfit = optional.Some(*raw.TakeProfit)
	}

	if raw.UseFractionalShares != nil {
		config.UseFractionalShares = *raw.UseFractionalShares
	}

	if raw.MinTradeAmount != nil {
		config.MinTradeAmount = *raw.MinTradeAmount
	}

	if raw.MaxTradeAmount != nil {
		config.MaxTradeAmount = optional.Some(*raw.MaxTradeAmount)
	}

	if raw.Broker != nil {
		config.Broker = *raw.Broker
	}

	if raw.DecimalPrecision != nil {
		config.DecimalPrecision = *raw.DecimalPrecision
	}

	*c = config

	return nil
}

// MarshalYAML writes optional values as plain scalars instead of sequences.
func (c BacktestConfig) MarshalYAML() (any, error) {
	raw := backtestConfigYAML{
		StartDate:           c.StartDate,
		EndDate:             c.EndDate,
		InitialCapital:      c.InitialCapital,
		Symbols:             c.Symbols,
		Timeframe:           &c.Timeframe,
		CommissionRate:      &c.CommissionRate,
		SlippageRate:        &c.SlippageRate,
		EnableShorting:      &c.EnableShorting,
		MaxPositions:        &c.MaxPositions,
		PositionSize:        &c.PositionSize,
		UseFractionalShares: &c.UseFractionalShares,
		MinTradeAmount:      &c.MinTradeAmount,
		Broker:              &c.Broker,
		DecimalPrecision:    &c.DecimalPrecision,
	}

	if c.StopLoss.IsSome() {
		v := c.StopLoss.Unwrap()
		raw.StopLoss = &v
	}

	if c.TakeProfit.IsSome() {
		v := c.TakeProfit.Unwrap()
		raw.TakeProfit = &v
	}

	if c.MaxTradeAmount.IsSome() {
		v := c.MaxTradeAmount.Unwrap()
		raw.MaxTradeAmount = &v
	}

	return raw, nil
}

// LoadBacktestConfig reads and validates a YAML backtest config file.
func LoadBacktestConfig(path string) (BacktestConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return BacktestConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, fmt.Sprintf("failed to read backtest config %s", path), err)
	}

	var config BacktestConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return BacktestConfig{}, errors.Wrap(errors.ErrCodeInvalidConfiguration, "failed to parse backtest config", err)
	}

	if err := config.Validate(); err != nil {
		return BacktestConfig{}, err
	}

	return config, nil
}
