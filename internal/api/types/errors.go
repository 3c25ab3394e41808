package types

import (
	"errors"
	"net/http"

	appErr "github.com/loocor/rules-editor/pkg/errors"
)

// FromAppError converts an error into the wire error shape. AppError metadata
// under the "data" key (the simulation engine's raw failure body) rides along.
func FromAppError(err error) *APIError {
	if err == nil {
		return nil
	}
	var ae *appErr.AppError
	if errors.As(err, &ae) {
		out := &APIError{Code: string(ae.Code), Message: ae.Message}
		if ae.Meta != nil {
			out.Data = ae.Meta["data"]
		}
		return out
	}
	return &APIError{Code: string(appErr.CodeUnknown), Message: err.Error()}
}

// StatusFor maps an error code to an HTTP status. Cyclic graphs surface as
// 422 unprocessable entity; unsupported export capabilities as 501.
func StatusFor(err error) int {
	var ae *appErr.AppError
	if !errors.As(err, &ae) {
		return http.StatusInternalServerError
	}
	switch ae.Code {
	case appErr.CodeInvalid, appErr.CodeFormat:
		return http.StatusBadRequest
	case appErr.CodeValidation:
		return http.StatusUnprocessableEntity
	case appErr.CodeNotFound:
		return http.StatusNotFound
	case appErr.CodeConflict:
		return http.StatusConflict
	case appErr.CodeUnauthorized:
		return http.StatusUnauthorized
	case appErr.CodeForbidden:
		return http.StatusForbidden
	case appErr.CodeUnsupported:
		return http.StatusNotImplemented
	case appErr.CodeUnavailable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
