package types

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type PositionTestSuite struct {
	suite.Suite
}

func TestPositionSuite(t *testing.T) {
	suite.Run(t, new(PositionTestSuite))
}

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func (suite *PositionTestSuite) TestLongPnL() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	position := NewPosition("AAPL", PositionTypeLong, d("50"), d("100"), d("0"), at, "test")

	suite.True(position.PnL(d("110"), d("50")).Equal(d("500")))
	suite.True(position.PnL(d("90"), d("50")).Equal(d("-500")))
	suite.True(position.MarketValue().Equal(d("5000")))
}

func (suite *PositionTestSuite) TestShortPnL() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	position := NewPosition("AAPL", PositionTypeShort, d("10"), d("100"), d("0"), at, "test")

	suite.True(position.PnL(d("90"), d("10")).Equal(d("100")))
	suite.True(position.PnL(d("110"), d("10")).Equal(d("-100")))
	suite.True(position.MarketValue().Equal(d("-1000")))
}

func (suite *PositionTestSuite) TestMark() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	position := NewPosition("AAPL", PositionTypeLong, d("10"), d("100"), d("0"), at, "test")

	position.Mark(d("105"), at.Add(time.Hour))
	suite.True(position.UnrealizedPnL.Equal(d("50")))
	suite.True(position.HighWaterMark.Equal(d("105")))
	suite.True(position.LowWaterMark.Equal(d("100")))

	position.Mark(d("95"), at.Add(2*time.Hour))
	suite.True(position.UnrealizedPnL.Equal(d("-50")))
	suite.True(position.HighWaterMark.Equal(d("105")))
	suite.True(position.LowWaterMark.Equal(d("95")))
	suite.Equal(at.Add(2*time.Hour), position.CurrentTime)
}

func (suite *PositionTestSuite) TestMergeUsesVolumeWeightedPrice() {
	at := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)
	position := NewPosition("AAPL", PositionTypeLong, d("10"), d("100"), d("1"), at, "test")

	position.Merge(d("30"), d("120"), d("2"))
	suite.True(position.Quantity.Equal(d("40")))
	suite.True(position.EntryPrice.Equal(d("115")))
	suite.True(position.Commission.Equal(d("3")))
	suite.Equal(at, position.EntryTime)
}
