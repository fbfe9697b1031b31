package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	engine_v1 "github.com/rxtech-lab/argo-backtest/internal/backtest/engine/engine_v1"
	"github.com/rxtech-lab/argo-backtest/internal/types"
	"github.com/urfave/cli/v3"
	"gopkg.in/yaml.v3"
)

const (
	schemaFileName       = "backtest-config.json"
	sampleConfigFileName = "backtest-config.yaml"
)

func schemaCommand() *cli.Command {
	return &cli.Command{
		Name:  "schema",
		Usage: "Print the JSON schema of the backtest config, or write it with a sample config to a folder",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Folder to write the schema and sample config to",
			},
		},
		Action: schemaAction,
	}
}

func schemaAction(_ context.Context, cmd *cli.Command) error {
	output := cmd.String("output")
	if output == "" {
		schema, err := engine_v1.GenerateSchemaJSON()
		if err != nil {
			return err
		}

		fmt.Println(schema)

		return nil
	}

	schemaPath, err := writeSchema(output)
	if err != nil {
		return err
	}

	fmt.Printf("Schema written to %s\n", schemaPath)

	return nil
}

// writeSchema writes the config schema to dir and, unless one exists already, a sample config
// that references it.
func writeSchema(dir string) (string, error) {
	schema, err := engine_v1.GenerateSchemaJSON()
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create directory: %w", err)
	}

	schemaPath := filepath.Join(dir, schemaFileName)
	if err := os.WriteFile(schemaPath, []byte(schema), 0644); err != nil {
		return "", fmt.Errorf("failed to write schema: %w", err)
	}

	samplePath := filepath.Join(dir, sampleConfigFileName)
	if _, err := os.Stat(samplePath); !os.IsNotExist(err) {
		return schemaPath, nil
	}

	sample, err := yaml.Marshal(types.DefaultBacktestConfig())
	if err != nil {
		return "", fmt.Errorf("failed to marshal sample config: %w", err)
	}

	sample = append([]byte("# yaml-language-server: $schema="+schemaFileName+"\n"), sample...)
	if err := os.WriteFile(samplePath, sample, 0644); err != nil {
		return "", fmt.Errorf("failed to write sample config: %w", err)
	}

	return schemaPath, nil
}
