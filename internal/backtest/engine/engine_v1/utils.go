package engine

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// GetResultFolder returns the directory the output of a run is written to:
// resultsFolder/<strategy>/<config file name>/<start>_<end>/<symbols>.
func GetResultFolder(resultsFolder string, configPath string, strategyName string, config types.BacktestConfig) string {
	strategyFolder := filepath.Join(resultsFolder, sanitizeFolderName(strategyName))

	configFolder := strategyFolder
	if configPath != "" {
		configFolder = filepath.Join(strategyFolder, strings.TrimSuffix(filepath.Base(configPath), filepath.Ext(configPath)))
	}

	timeRange := fmt.Sprintf("%s_%s", config.StartDate.UTC().Format("20060102"), config.EndDate.UTC().Format("20060102"))

	return filepath.Join(configFolder, timeRange, sanitizeFolderName(strings.Join(config.Symbols, "_")))
}

func sanitizeFolderName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		return "unnamed"
	}

	return strings.NewReplacer("/", "-", "\\", "-", " ", "_", ":", "-").Replace(name)
}
