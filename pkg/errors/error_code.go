package errors

// ErrorCode represents a unique error code for identifying different error types.
type ErrorCode int

const (
	// General errors (1-99)
	ErrCodeUnknown ErrorCode = 1

	// Validation errors (100-199)
	ErrCodeInvalidParameter     ErrorCode = 100
	ErrCodeInvalidConfiguration ErrorCode = 101
	ErrCodeInvalidStrategy      ErrorCode = 102
	ErrCodeInvalidCondition     ErrorCode = 103
	ErrCodeInvalidOrder         ErrorCode = 105
	ErrCodeInvalidType          ErrorCode = 107
	ErrCodeInvalidPeriod        ErrorCode = 108
	ErrCodeMissingParameter     ErrorCode = 109
	ErrCodeInvalidTimeframe     ErrorCode = 111

	// Data/Resource errors (200-299)
	ErrCodeDataUnavailable       ErrorCode = 201
	ErrCodeQueryFailed           ErrorCode = 202
	ErrCodeHistoricalDataFailed  ErrorCode = 203
	ErrCodeCacheFailed           ErrorCode = 204
	ErrCodeNotFound              ErrorCode = 205
	ErrCodeForbidden             ErrorCode = 206
	ErrCodePersistenceFailed     ErrorCode = 207
	ErrCodeDataSourceUnavailable ErrorCode = 208
	ErrCodeUnauthorized          ErrorCode = 209

	// Indicator errors (300-399)
	ErrCodeIndicatorNotFound      ErrorCode = 300
	ErrCodeIndicatorAlreadyExists ErrorCode = 301
	ErrCodeIndicatorCalculation   ErrorCode = 302
	ErrCodeEvaluationSuppressed   ErrorCode = 303

	// Trading errors (500-599)
	ErrCodeOrderFailed         ErrorCode = 500
	ErrCodePositionNotFound    ErrorCode = 501
	ErrCodeInsufficientFunds   ErrorCode = 503
	ErrCodeInsufficientHolding ErrorCode = 505

	// Backtest errors (600-699)
	ErrCodeBacktestInitFailed   ErrorCode = 601
	ErrCodeBacktestNoDatasource ErrorCode = 608

	// Callback errors (800-899)
	ErrCodeCallbackFailed ErrorCode = 800
)
