package handler

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/verzog/merchant/internal/domain"
)

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func respond(t *testing.T, err error) (*httptest.ResponseRecorder, errorBody) {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	rec := httptest.NewRecorder()
	ErrorResponse(rec, req, err)

	var body errorBody
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	return rec, body
}

func TestErrorCodeToHTTPStatus(t *testing.T) {
	statuses := map[string]int{
		domain.EINVALID:      http.StatusBadRequest,
		domain.EUNAUTHORIZED: http.StatusUnauthorized,
		domain.EPAYMENT:      http.StatusPaymentRequired,
		domain.EFORBIDDEN:    http.StatusForbidden,
		domain.ENOTFOUND:     http.StatusNotFound,
		domain.ECONFLICT:     http.StatusConflict,
		domain.EGONE:         http.StatusGone,
		domain.EINTERNAL:     http.StatusInternalServerError,
		domain.ENOTIMPL:      http.StatusNotImplemented,
		"made_up_code":       http.StatusInternalServerError,
	}

	for code, want := range statuses {
		assert.Equal(t, want, ErrorCodeToHTTPStatus(code), "code %s", code)
	}
}

func TestErrorResponse_CodeAndStatus(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"not found", domain.NotFound("bill.get", "bill", "TX123"), http.StatusNotFound, domain.ENOTFOUND},
		{"invalid", domain.Invalid("checkout.place", "quantity must be positive"), http.StatusBadRequest, domain.EINVALID},
		{"conflict", domain.Conflict("bill.transition", "bill status changed concurrently"), http.StatusConflict, domain.ECONFLICT},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, body := respond(t, tt.err)

			assert.Equal(t, tt.status, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			assert.Equal(t, tt.code, body.Error.Code)
			assert.NotEmpty(t, body.Error.Message)
		})
	}
}

func TestErrorResponse_InternalHidesDetail(t *testing.T) {
	err := domain.Internal(nil, "db.query", "connect to 192.168.1.100:5432 failed")
	rec, body := respond(t, err)

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "An internal error occurred. Please try again later.", body.Error.Message)
	assert.NotContains(t, body.Error.Message, "192.168")
}

func TestErrorResponse_ValidationFields(t *testing.T) {
	err := domain.NewValidationError("checkout.place", "email", "email is required")
	err = domain.AddFieldError(err, "quantity", "quantity must be positive")

	rec, body := respond(t, err)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, domain.EINVALID, body.Error.Code)
	require.Len(t, body.Error.Fields, 2)
	assert.Equal(t, "email is required", body.Error.Fields["email"])
	assert.Equal(t, "quantity must be positive", body.Error.Fields["quantity"])
}

func TestShortcutResponses(t *testing.T) {
	t.Run("NotFound", func(t *testing.T) {
		rec := httptest.NewRecorder()
		NotFound(rec, httptest.NewRequest(http.MethodGet, "/x", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("BadRequest carries the message through", func(t *testing.T) {
		rec := httptest.NewRecorder()
		BadRequest(rec, httptest.NewRequest(http.MethodPost, "/x", nil), "malformed request body")

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		var body errorBody
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
		assert.Equal(t, "malformed request body", body.Error.Message)
	})
}
