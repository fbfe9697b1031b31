package api

import (
	"encoding/json"
	"net/http"

	"github.com/rxtech-lab/argo-backtest/pkg/errors"
)

type errorResponse struct {
	Code    errors.ErrorCode `json:"code"`
	Message string           `json:"message"`
}

type messageResponse struct {
	Message string `json:"message"`
}

func setResponse(w http.ResponseWriter, statusCode int, response any) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	return json.NewEncoder(w).Encode(response)
}

func setErrorResponse(w http.ResponseWriter, err error) error {
	return setResponse(w, statusCode(err), errorResponse{
		Code:    errors.GetCode(err),
		Message: err.Error(),
	})
}

// statusCode maps the error taxonomy onto HTTP statuses.
func statusCode(err error) int {
	switch {
	case errors.HasCode(err, errors.ErrCodeNotFound):
		return http.StatusNotFound
	case errors.HasCode(err, errors.ErrCodeForbidden):
		return http.StatusForbidden
	case errors.HasCode(err, errors.ErrCodeUnauthorized):
		return http.StatusUnauthorized
	case errors.IsConfigurationError(err),
		errors.HasCode(err, errors.ErrCodeInvalidParameter),
		errors.HasCode(err, errors.ErrCodeMissingParameter):
		return http.StatusBadRequest
	case errors.IsDataUnavailable(err):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}
