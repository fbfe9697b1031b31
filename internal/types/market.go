package types

import "time"

// MarketData is one OHLCV bar for a symbol.
type MarketData struct {
	Id     string    `yaml:"id" json:"id" csv:"id"`
	Symbol string    `yaml:"symbol" json:"symbol" csv:"symbol"`
	Time   time.Time `yaml:"time" json:"time" csv:"time"`
	Open   float64   `yaml:"open" json:"open" csv:"open"`
	High   float64   `yaml:"high" json:"high" csv:"high"`
	Low    float64   `yaml:"low" json:"low" csv:"low"`
	Close  float64   `yaml:"close" json:"close" csv:"close"`
	Volume float64   `yaml:"volume" json:"volume" csv:"volume"`
}

// Field returns a named price or volume field of the bar.
func (m MarketData) Field(name string) (float64, bool) {
	switch name {
	case "open":
		return m.Open, true
	case "high":
		return m.High, true
	case "low":
		return m.Low, true
	case "close", "price":
		return m.Close, true
	case "volume":
		return m.Volume, true
	default:
		return 0, false
	}
}
