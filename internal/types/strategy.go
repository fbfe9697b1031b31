package types

import (
	"fmt"
	"os"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/go-playground/validator/v10"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
	"gopkg.in/yaml.v3"
)

type ConditionOperator string

const (
	OperatorGreaterThan        ConditionOperator = ">"
	OperatorLessThan           ConditionOperator = "<"
	OperatorGreaterThanOrEqual ConditionOperator = ">="
	OperatorLessThanOrEqual    ConditionOperator = "<="
	OperatorEqual              ConditionOperator = "=="
	OperatorCrossAbove         ConditionOperator = "cross_above"
	OperatorCrossBelow         ConditionOperator = "cross_below"
)

// IsCrossover reports whether the operator compares the previous and current values of two series.
func (o ConditionOperator) IsCrossover() bool {
	return o == OperatorCrossAbove || o == OperatorCrossBelow
}

type PositionSizingMethod string

const (
	PositionSizingFixedPct  PositionSizingMethod = "fixed_pct"
	PositionSizingFixedUSD  PositionSizingMethod = "fixed_usd"
	PositionSizingRiskBased PositionSizingMethod = "risk_based"
)

// IndicatorConfig names an indicator type and its parameters, e.g. {type: sma, params: {period: 20}}.
type IndicatorConfig struct {
	Type   string         `yaml:"type" json:"type" validate:"required"`
	Params map[string]any `yaml:"params,omitempty" json:"params,omitempty"`
}

// Condition is one entry or exit rule.
//
// Comparisons use Indicator against Value, or Indicator1 against Indicator2 when no Value is given.
// Crossovers always use Indicator1 and Indicator2. Bar fields (open, high, low, close, volume)
// can be used wherever an indicator name is expected.
type Condition struct {
	Indicator  string            `yaml:"indicator,omitempty" json:"indicator,omitempty"`
	Indicator1 string            `yaml:"indicator1,omitempty" json:"indicator1,omitempty"`
	Indicator2 string            `yaml:"indicator2,omitempty" json:"indicator2,omitempty"`
	Operator   ConditionOperator `yaml:"operator" json:"operator" validate:"required,oneof=> < >= <= == cross_above cross_below"`
	Value      *float64          `yaml:"value,omitempty" json:"value,omitempty"`
	// Field selects one output of a multi-output indicator, e.g. "signal" for macd.
	Field string `yaml:"field,omitempty" json:"field,omitempty"`
	// Side is the side of the position the condition acts on.
	Side      OrderSide `yaml:"side,omitempty" json:"side,omitempty" validate:"omitempty,oneof=buy sell"`
	OrderType OrderType `yaml:"order_type,omitempty" json:"order_type,omitempty" validate:"omitempty,oneof=market limit stop"`
	// PriceOffset places limit and stop orders this fraction away from the signal price.
	PriceOffset float64 `yaml:"price_offset,omitempty" json:"price_offset,omitempty" validate:"gte=0,lt=1"`
}

// Left is the name of the series on the left-hand side of the comparison.
func (c Condition) Left() string {
	if c.Indicator != "" {
		return c.Indicator
	}

	return c.Indicator1
}

// String describes the condition for signal reasons and logs.
func (c Condition) String() string {
	if c.Operator.IsCrossover() {
		return fmt.Sprintf("%s %s %s", c.Indicator1, c.Operator, c.Indicator2)
	}

	left := c.Left()
	if c.Field != "" {
		left = left + "." + c.Field
	}

	if c.Value != nil {
		return fmt.Sprintf("%s %s %g", left, c.Operator, *c.Value)
	}

	return fmt.Sprintf("%s %s %s", left, c.Operator, c.Indicator2)
}

// RiskManagement is the strategy's exit policy. Percentages are fractions (0.02 is 2%).
type RiskManagement struct {
	UseStopLoss     bool    `yaml:"use_stop_loss" json:"use_stop_loss"`
	StopLossPct     float64 `yaml:"stop_loss_pct" json:"stop_loss_pct" validate:"gte=0,lt=1"`
	UseTrailingStop bool    `yaml:"use_trailing_stop" json:"use_trailing_stop"`
	TrailingStopPct float64 `yaml:"trailing_stop_pct" json:"trailing_stop_pct" validate:"gte=0,lt=1"`
	UseTakeProfit   bool    `yaml:"use_take_profit" json:"use_take_profit"`
	TakeProfitPct   float64 `yaml:"take_profit_pct" json:"take_profit_pct" validate:"gte=0"`
	// MaxLossPerTrade closes a position once its unrealized loss reaches this fraction of equity.
	MaxLossPerTrade float64 `yaml:"max_loss_per_trade" json:"max_loss_per_trade" validate:"gte=0,lte=1"`
	// MaxLossPerDay blocks new entries once the day's realized loss reaches this fraction of the day's opening equity.
	MaxLossPerDay float64 `yaml:"max_loss_per_day" json:"max_loss_per_day" validate:"gte=0,lte=1"`
}

// DefaultRiskManagement mirrors the policy strategies historically shipped with.
func DefaultRiskManagement() RiskManagement {
	return RiskManagement{
		UseStopLoss:     true,
		StopLossPct:     0.02,
		UseTrailingStop: false,
		TrailingStopPct: 0.01,
		UseTakeProfit:   true,
		TakeProfitPct:   0.05,
		MaxLossPerTrade: 0.01,
		MaxLossPerDay:   0.03,
	}
}

// PositionSizing decides the notional of each entry.
type PositionSizing struct {
	Method PositionSizingMethod `yaml:"method" json:"method" validate:"required,oneof=fixed_pct fixed_usd risk_based"`
	// Size is a fraction of equity for fixed_pct and risk_based, and a USD amount for fixed_usd.
	Size         float64 `yaml:"size" json:"size" validate:"gt=0"`
	MaxPositions int     `yaml:"max_positions,omitempty" json:"max_positions,omitempty" validate:"gte=0"`
}

// StrategyConfig is a named, versioned rule set.
type StrategyConfig struct {
	Name            string                     `yaml:"name" json:"name" validate:"required"`
	Description     string                     `yaml:"description" json:"description"`
	Version         string                     `yaml:"version,omitempty" json:"version,omitempty"`
	Indicators      map[string]IndicatorConfig `yaml:"indicators" json:"indicators" validate:"dive"`
	EntryConditions []Condition                `yaml:"entry_conditions" json:"entry_conditions" validate:"dive"`
	ExitConditions  []Condition                `yaml:"exit_conditions" json:"exit_conditions" validate:"dive"`
	// RiskManagement and PositionSizing are optional. When absent the backtest config governs.
	RiskManagement *RiskManagement `yaml:"risk_management,omitempty" json:"risk_management,omitempty"`
	PositionSizing *PositionSizing `yaml:"position_sizing,omitempty" json:"position_sizing,omitempty"`
	Timeframes     []Timeframe     `yaml:"timeframes,omitempty" json:"timeframes,omitempty"`
}

// Validate returns an ErrCodeInvalidStrategy or ErrCodeInvalidCondition error for the first problem found.
// Conditions may still reference unknown indicators; those are reported at evaluation time.
func (s *StrategyConfig) Validate() error {
	validate := validator.New()
	if err := validate.Struct(s); err != nil {
		return errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid strategy config", err)
	}

	if s.Version != "" {
		if _, err := semver.NewVersion(s.Version); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidStrategy, err, "invalid strategy version %q", s.Version)
		}
	}

	if s.RiskManagement != nil {
		if err := validate.Struct(s.RiskManagement); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid risk management", err)
		}
	}

	if s.PositionSizing != nil {
		if err := validate.Struct(s.PositionSizing); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid position sizing", err)
		}

		if s.PositionSizing.Method != PositionSizingFixedUSD && s.PositionSizing.Size > 1 {
			return errors.Newf(errors.ErrCodeInvalidStrategy, "position sizing %s size must be <= 1, got %g", s.PositionSizing.Method, s.PositionSizing.Size)
		}
	}

	for _, tf := range s.Timeframes {
		if err := tf.Validate(); err != nil {
			return errors.Wrap(errors.ErrCodeInvalidStrategy, "invalid strategy timeframe", err)
		}
	}

	for i, c := range s.EntryConditions {
		if err := validateCondition(c); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidCondition, err, "entry condition %d", i)
		}
	}

	for i, c := range s.ExitConditions {
		if err := validateCondition(c); err != nil {
			return errors.Wrapf(errors.ErrCodeInvalidCondition, err, "exit condition %d", i)
		}
	}

	return nil
}

func validateCondition(c Condition) error {
	if c.Operator.IsCrossover() {
		if c.Indicator1 == "" || c.Indicator2 == "" {
			return errors.Newf(errors.ErrCodeInvalidCondition, "%s requires indicator1 and indicator2", c.Operator)
		}

		return nil
	}

	if c.Left() == "" {
		return errors.New(errors.ErrCodeInvalidCondition, "condition requires indicator or indicator1")
	}

	if c.Value == nil && c.Indicator2 == "" {
		return errors.New(errors.ErrCodeInvalidCondition, "condition requires value or indicator2")
	}

	return nil
}

// SemVer returns the parsed strategy version, or 0.0.0 when none is set.
func (s *StrategyConfig) SemVer() *semver.Version {
	if s.Version == "" {
		return semver.MustParse("0.0.0")
	}

	v, err := semver.NewVersion(s.Version)
	if err != nil {
		return semver.MustParse("0.0.0")
	}

	return v
}

// LoadStrategyConfig reads and validates a YAML strategy file.
func LoadStrategyConfig(path string) (StrategyConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return StrategyConfig{}, errors.Wrap(errors.ErrCodeInvalidStrategy, fmt.Sprintf("failed to read strategy %s", path), err)
	}

	var config StrategyConfig
	if err := yaml.Unmarshal(data, &config); err != nil {
		return StrategyConfig{}, errors.Wrap(errors.ErrCodeInvalidStrategy, "failed to parse strategy", err)
	}

	if err := config.Validate(); err != nil {
		return StrategyConfig{}, err
	}

	return config, nil
}

// Strategy is a stored strategy owned by a user.
type Strategy struct {
	ID          string             `json:"id"`
	UserID      string             `json:"user_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Config      StrategyConfig     `json:"config"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	IsActive    bool               `json:"is_active"`
	IsPublic    bool               `json:"is_public"`
	Performance map[string]float64 `json:"performance,omitempty"`
}

// CanRead reports whether userID may read the strategy.
func (s *Strategy) CanRead(userID string) bool {
	return s.UserID == userID || s.IsPublic
}

// CanWrite reports whether userID may modify the strategy.
func (s *Strategy) CanWrite(userID string) bool {
	return s.UserID == userID
}
