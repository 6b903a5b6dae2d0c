package api

import (
	"errors"
	"net/http"

	"reelforge/internal/selection"
	"reelforge/internal/services"
)

// StatusFor maps an error onto the HTTP status a handler should return.
func StatusFor(err error) int {
	switch services.KindOf(err) {
	case "":
		return http.StatusOK
	case services.KindValidation:
		return http.StatusUnprocessableEntity
	case services.KindInvalidTransition, services.KindConcurrentOperation:
		return http.StatusConflict
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindCancelled:
		return 499
	case services.KindProvider:
		return http.StatusBadGateway
	case services.KindConfiguration:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// ErrorBody builds the response body for err.
func ErrorBody(err error) ErrorResponse {
	resp := ErrorResponse{Error: err.Error(), Kind: string(services.KindOf(err))}
	var verr *selection.ValidationError
	if errors.As(err, &verr) {
		resp.MissingFields = verr.MissingFields
		resp.InvalidFields = verr.InvalidFields
	}
	return resp
}
