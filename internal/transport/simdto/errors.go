package simdto

import (
	"errors"
	"net/http"

	"github.com/awmpietro/scenario-simulator/internal/app"
	"github.com/awmpietro/scenario-simulator/internal/scenario"
)

// ErrorStatus maps a service error to an HTTP status and body. Plans that
// parse but cannot be simulated are 422; everything the caller sent wrong
// is 400.
func ErrorStatus(err error) (int, ErrorResponse) {
	var reqErr *app.RequestError
	switch {
	case errors.As(err, &reqErr):
		return http.StatusBadRequest, ErrorResponse{Error: "invalid request", Details: err.Error()}
	case errors.Is(err, app.ErrHistoryDisabled):
		return http.StatusNotFound, ErrorResponse{Error: "history disabled", Details: err.Error()}
	case scenario.IsPlanError(err):
		return http.StatusUnprocessableEntity, ErrorResponse{Error: "invalid plan", Details: err.Error()}
	default:
		return http.StatusBadRequest, ErrorResponse{Error: "simulate failed", Details: err.Error()}
	}
}
