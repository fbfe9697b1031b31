package datasource

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/marcboeker/go-duckdb"
	"github.com/rxtech-lab/argo-backtest/internal/types"
)

// createMinuteBars returns count one-minute bars of symbol starting at start.
func createMinuteBars(symbol string, count int, start time.Time) []types.MarketData {
	data := make([]types.MarketData, 0, count)

	for i := 0; i < count; i++ {
		data = append(data, types.MarketData{
			Symbol: symbol,
			Time:   start.Add(time.Duration(i) * time.Minute),
			Open:   100.0 + float64(i),
			High:   101.0 + float64(i),
			Low:    99.0 + float64(i),
			Close:  100.5 + float64(i),
			Volume: 1000.0,
		})
	}

	return data
}

// writeTestDataToParquet writes bars to a parquet file through an in-memory DuckDB.
func writeTestDataToParquet(data []types.MarketData, filePath string) error {
	db, err := sql.Open("duckdb", ":memory:")
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.Exec(`
		CREATE TABLE market_data (
			time TIMESTAMP,
			symbol TEXT,
			open DOUBLE,
			high DOUBLE,
			low DOUBLE,
			close DOUBLE,
			volume DOUBLE
		)
	`)
	if err != nil {
		return err
	}

	for _, d := range data {
		_, err = db.Exec(`
			INSERT INTO market_data VALUES (?, ?, ?, ?, ?, ?, ?)
		`, d.Time, d.Symbol, d.Open, d.High, d.Low, d.Close, d.Volume)
		if err != nil {
			return err
		}
	}

	_, err = db.Exec(fmt.Sprintf(`
		COPY market_data TO '%s' (FORMAT PARQUET)
	`, filePath))

	return err
}
