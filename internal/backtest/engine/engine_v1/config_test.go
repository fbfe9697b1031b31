package engine

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/suite"
)

type ConfigTestSuite struct {
	suite.Suite
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (suite *ConfigTestSuite) TestGenerateSchema() {
	schema, err := GenerateSchema()
	suite.Require().NoError(err)

	suite.Equal("backtest-config", schema.Title)

	for _, name := range []string{"start_date", "end_date", "initial_capital", "symbols", "timeframe", "position_size", "stop_loss", "broker"} {
		_, ok := schema.Properties.Get(name)
		suite.True(ok, "missing property %s", name)
	}

	broker, ok := schema.Properties.Get("broker")
	suite.Require().True(ok)
	suite.Len(broker.Enum, 3)

	capital, ok := schema.Properties.Get("initial_capital")
	suite.Require().True(ok)
	suite.Len(capital.OneOf, 2)
}

func (suite *ConfigTestSuite) TestGenerateSchemaJSON() {
	schemaJSON, err := GenerateSchemaJSON()
	suite.Require().NoError(err)

	var decoded map[string]any
	suite.Require().NoError(json.Unmarshal([]byte(schemaJSON), &decoded))

	suite.Equal("backtest-config", decoded["title"])

	properties, ok := decoded["properties"].(map[string]any)
	suite.Require().True(ok)
	suite.Contains(properties, "initial_capital")
	suite.Contains(properties, "commission_rate")
}
