package types

import (
	"time"

	"github.com/shopspring/decimal"
)

// EquityCurvePoint is the portfolio snapshot taken at the end of one simulated timestamp.
type EquityCurvePoint struct {
	Time           time.Time       `yaml:"time" json:"time" csv:"time"`
	Equity         decimal.Decimal `yaml:"equity" json:"equity" csv:"equity"`
	Cash           decimal.Decimal `yaml:"cash" json:"cash" csv:"cash"`
	PositionsValue decimal.Decimal `yaml:"positions_value" json:"positions_value" csv:"positions_value"`
}
