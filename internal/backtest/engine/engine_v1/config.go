package engine

import (
	"encoding/json"
	"reflect"

	"github.com/invopop/jsonschema"
	"github.com/moznion/go-optional"
	"github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1/commission_fee"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/shopspring/decimal"
)

// GenerateSchema generates a JSON schema for types.BacktestConfig
func GenerateSchema() (*jsonschema.Schema, error) {
	reflector := jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		ExpandedStruct:             true,
		AllowAdditionalProperties:  false,
		Mapper: func(t reflect.Type) *jsonschema.Schema {
			switch t {
			case reflect.TypeOf(decimal.Decimal{}), reflect.TypeOf(optional.Option[decimal.Decimal]{}):
				return &jsonschema.Schema{
					OneOf: []*jsonschema.Schema{
						{Type: "number"},
						{Type: "string", Pattern: `^-?[0-9]+(\.[0-9]+)?$`},
					},
				}
			case reflect.TypeOf(types.Timeframe("")):
				enum := make([]any, len(types.AllTimeframes))
				for i, tf := range types.AllTimeframes {
					enum[i] = string(tf)
				}

				return &jsonschema.Schema{
					Type: "string",
					Enum: enum,
				}
			}

			return nil
		},
	}

	schema := reflector.Reflect(&types.BacktestConfig{})

	// Set schema metadata
	schema.Title = "backtest-config"
	schema.Description = "Configuration schema for a backtest run"
	schema.Version = "http://json-schema.org/draft-07/schema#"

	if broker, ok := schema.Properties.Get("broker"); ok {
		broker.Enum = commission_fee.AllBrokers
	}

	return schema, nil
}

// GenerateSchemaJSON generates a JSON schema string for types.BacktestConfig
func GenerateSchemaJSON() (string, error) {
	schema, err := GenerateSchema()
	if err != nil {
		return "", err
	}

	schemaBytes, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return "", err
	}

	return string(schemaBytes), nil
}
