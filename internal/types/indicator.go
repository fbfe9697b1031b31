package types

type IndicatorType string

const (
	IndicatorTypeMA             IndicatorType = "ma"
	IndicatorTypeSMA            IndicatorType = "sma"
	IndicatorTypeEMA            IndicatorType = "ema"
	IndicatorTypeRSI            IndicatorType = "rsi"
	IndicatorTypeMACD           IndicatorType = "macd"
	IndicatorTypeBollingerBands IndicatorType = "bollinger_bands"
	IndicatorTypeATR            IndicatorType = "atr"
	IndicatorTypeStochastic     IndicatorType = "stochastic"
	IndicatorTypeWilliamsR      IndicatorType = "williams_r"
	IndicatorTypeCCI            IndicatorType = "cci"
	IndicatorTypeOBV            IndicatorType = "obv"
	IndicatorTypeMFI            IndicatorType = "mfi"
	IndicatorTypeVWAP           IndicatorType = "vwap"
)
