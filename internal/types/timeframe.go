package types

import (
	"time"

	"github.com/polygon-io/client-go/rest/models"
	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

// Timeframe is the bar interval of a backtest.
type Timeframe string

const (
	TimeframeOneMinute      Timeframe = "1m"
	TimeframeFiveMinutes    Timeframe = "5m"
	TimeframeFifteenMinutes Timeframe = "15m"
	TimeframeThirtyMinutes  Timeframe = "30m"
	TimeframeOneHour        Timeframe = "1h"
	TimeframeFourHours      Timeframe = "4h"
	TimeframeOneDay         Timeframe = "1d"
	TimeframeOneWeek        Timeframe = "1w"
	TimeframeOneMonth       Timeframe = "1M"
)

// AllTimeframes lists the supported timeframes in ascending order.
var AllTimeframes = []Timeframe{
	TimeframeOneMinute,
	TimeframeFiveMinutes,
	TimeframeFifteenMinutes,
	TimeframeThirtyMinutes,
	TimeframeOneHour,
	TimeframeFourHours,
	TimeframeOneDay,
	TimeframeOneWeek,
	TimeframeOneMonth,
}

// ParseTimeframe converts a string into a Timeframe.
func ParseTimeframe(s string) (Timeframe, error) {
	tf := Timeframe(s)
	if err := tf.Validate(); err != nil {
		return "", err
	}

	return tf, nil
}

// Validate checks that the timeframe is one of the supported values.
func (t Timeframe) Validate() error {
	for _, tf := range AllTimeframes {
		if tf == t {
			return nil
		}
	}

	return errors.Newf(errors.ErrCodeInvalidTimeframe, "unsupported timeframe %q", string(t))
}

// Multiplier is the polygon aggregate multiplier for the timeframe.
func (t Timeframe) Multiplier() int {
	switch t {
	case TimeframeFiveMinutes:
		return 5
	case TimeframeFifteenMinutes:
		return 15
	case TimeframeThirtyMinutes:
		return 30
	case TimeframeFourHours:
		return 4
	default:
		return 1
	}
}

// Timespan is the polygon aggregate timespan for the timeframe.
func (t Timeframe) Timespan() models.Timespan {
	switch t {
	case TimeframeOneMinute, TimeframeFiveMinutes, TimeframeFifteenMinutes, TimeframeThirtyMinutes:
		return models.Minute
	case TimeframeOneHour, TimeframeFourHours:
		return models.Hour
	case TimeframeOneWeek:
		return models.Week
	case TimeframeOneMonth:
		return models.Month
	default:
		return models.Day
	}
}

// Duration is the nominal length of one bar. A month is counted as 30 days.
func (t Timeframe) Duration() time.Duration {
	switch t {
	case TimeframeOneMinute:
		return time.Minute
	case TimeframeFiveMinutes:
		return 5 * time.Minute
	case TimeframeFifteenMinutes:
		return 15 * time.Minute
	case TimeframeThirtyMinutes:
		return 30 * time.Minute
	case TimeframeOneHour:
		return time.Hour
	case TimeframeFourHours:
		return 4 * time.Hour
	case TimeframeOneWeek:
		return 7 * 24 * time.Hour
	case TimeframeOneMonth:
		return 30 * 24 * time.Hour
	default:
		return 24 * time.Hour
	}
}
