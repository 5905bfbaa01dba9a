package errors

import (
	"net/http"
)

// ErrorResponse is the body rendered for every failed API call.
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

type ErrorDetail struct {
	Message string         `json:"message"`
	Hint    string         `json:"hint,omitempty"`
	Details map[string]any `json:"details,omitempty"`
}

var statusByKind = []struct {
	kind   error
	status int
}{
	// tenant boundary kinds come first: they may also carry generic marks
	{ErrBoundaryViolation, http.StatusForbidden},
	{ErrTenantTamper, http.StatusForbidden},
	{ErrInvalidTenant, http.StatusBadRequest},
	{ErrFeatureUnavailable, http.StatusForbidden},
	{ErrUnauthenticated, http.StatusUnauthorized},
	{ErrPermissionDenied, http.StatusForbidden},
	{ErrRateLimited, http.StatusTooManyRequests},
	{ErrNotFound, http.StatusNotFound},
	{ErrAlreadyExists, http.StatusConflict},
	{ErrVersionConflict, http.StatusConflict},
	{ErrProvisioningFailed, http.StatusConflict},
	{ErrValidation, http.StatusBadRequest},
	{ErrInvalidOperation, http.StatusBadRequest},
	{ErrHTTPClient, http.StatusBadGateway},
	{ErrWebhookProcessing, http.StatusInternalServerError},
	{ErrDatabase, http.StatusInternalServerError},
	{ErrSystem, http.StatusInternalServerError},
	{ErrInternal, http.StatusInternalServerError},
}

func HTTPStatusFromErr(err error) int {
	for _, m := range statusByKind {
		if Is(err, m.kind) {
			return m.status
		}
	}
	return http.StatusInternalServerError
}

// NewErrorResponse builds the client facing body. Boundary and tamper
// rejections never expose which field or row triggered them.
func NewErrorResponse(err error) ErrorResponse {
	if IsBoundaryViolation(err) || IsTenantTamper(err) {
		return ErrorResponse{Error: ErrorDetail{Message: "access denied"}}
	}

	status := HTTPStatusFromErr(err)
	detail := ErrorDetail{
		Hint:    GetHint(err),
		Details: GetReportableDetails(err),
	}
	if status >= http.StatusInternalServerError {
		detail.Message = "internal server error"
		detail.Details = nil
	} else {
		detail.Message = err.Error()
	}
	if detail.Hint == "" {
		detail.Hint = detail.Message
	}
	return ErrorResponse{Error: detail}
}
