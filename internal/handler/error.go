// Package handler holds the HTTP response conventions shared by the
// API and webhook endpoints. Responses are JSON throughout.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/verzog/merchant/internal/domain"
	"github.com/verzog/merchant/internal/middleware"
)

// ErrorCodeToHTTPStatus maps domain error codes to HTTP status codes.
func ErrorCodeToHTTPStatus(code string) int {
	switch code {
	case domain.EINVALID:
		return http.StatusBadRequest // 400
	case domain.EUNAUTHORIZED:
		return http.StatusUnauthorized // 401
	case domain.EPAYMENT:
		return http.StatusPaymentRequired // 402
	case domain.EFORBIDDEN:
		return http.StatusForbidden // 403
	case domain.ENOTFOUND:
		return http.StatusNotFound // 404
	case domain.ECONFLICT:
		return http.StatusConflict // 409
	case domain.EGONE:
		return http.StatusGone // 410
	case domain.EINTERNAL:
		return http.StatusInternalServerError // 500
	case domain.ENOTIMPL:
		return http.StatusNotImplemented // 501
	default:
		return http.StatusInternalServerError // 500
	}
}

// ErrorResponse writes a JSON error response. Internal errors hide
// their details from the client; everything is logged server side.
func ErrorResponse(w http.ResponseWriter, r *http.Request, err error) {
	// Field validation failures are their own error type, reported
	// with the per-field messages.
	if fields := domain.GetValidationFields(err); len(fields) > 0 {
		middleware.GetLogger(r.Context()).Info().
			Err(err).
			Int("status", http.StatusBadRequest).
			Msg("request failed validation")
		JSON(w, http.StatusBadRequest, map[string]any{
			"error": map[string]any{
				"code":    domain.EINVALID,
				"message": "Validation failed",
				"fields":  fields,
			},
		})
		return
	}

	code := domain.ErrorCode(err)
	message := domain.ErrorMessage(err)
	status := ErrorCodeToHTTPStatus(code)

	logger := middleware.GetLogger(r.Context())
	event := logger.Info()
	if status >= 500 {
		event = logger.Error()
		message = "An internal error occurred. Please try again later."
	}
	event.
		Err(err).
		Str("code", code).
		Int("status", status).
		Msg("request failed")

	JSON(w, status, map[string]any{
		"error": map[string]any{
			"code":    code,
			"message": message,
		},
	})
}

// JSON writes a JSON response with the given status.
func JSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// NotFound writes the standard 404 response.
func NotFound(w http.ResponseWriter, r *http.Request) {
	ErrorResponse(w, r, domain.Errorf(domain.ENOTFOUND, "", "The requested resource was not found"))
}

// BadRequest writes a 400 response with the given message.
func BadRequest(w http.ResponseWriter, r *http.Request, message string) {
	ErrorResponse(w, r, domain.Errorf(domain.EINVALID, "", "%s", message))
}
