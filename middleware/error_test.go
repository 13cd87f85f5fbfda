package middleware

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"profile-service/models"

	"github.com/stretchr/testify/assert"
)

func serve(handler AppHandler) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	ErrorHandler(handler).ServeHTTP(rec, httptest.NewRequest(http.MethodPatch, "/profile", nil))
	return rec
}

func TestAppErrorUnwrapsCause(t *testing.T) {
	cause := fmt.Errorf("lookup: %w", models.ErrNotFound)
	appErr := NewAppError(http.StatusNotFound, "User not found", cause)

	assert.Equal(t, cause.Error(), appErr.Error())
	assert.ErrorIs(t, appErr, models.ErrNotFound)
	assert.Equal(t, "No fields to update", NewAppError(http.StatusBadRequest, "No fields to update", nil).Error())
}

func TestErrorHandlerRendersAppError(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		return NewAppError(http.StatusNotFound, "User not found", errors.New("sql: no rows in result set"))
	})

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"User not found"}`, rec.Body.String())
}

func TestErrorHandlerMapsDomainErrors(t *testing.T) {
	cases := []struct {
		err     error
		status  int
		message string
	}{
		{models.ErrMalformedRequest, http.StatusBadRequest, "Invalid form data"},
		{models.ErrMissingIdentity, http.StatusBadRequest, "Wallet address is required"},
		{fmt.Errorf("decode: %w", models.ErrInvalidSocialLinks), http.StatusBadRequest, "Invalid socialLinks format"},
		{models.ErrNoFieldsProvided, http.StatusBadRequest, "No fields to update"},
		{fmt.Errorf("find avatar: %w", models.ErrNotFound), http.StatusNotFound, "User not found"},
		{models.ErrUploadFailed, http.StatusInternalServerError, "Failed to upload avatar"},
		{models.ErrPersistence, http.StatusInternalServerError, "Internal server error"},
	}

	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec := serve(func(w http.ResponseWriter, r *http.Request) error { return tc.err })

			assert.Equal(t, tc.status, rec.Code)
			assert.JSONEq(t, fmt.Sprintf(`{"error":%q}`, tc.message), rec.Body.String())
		})
	}
}

func TestErrorHandlerHidesUnknownErrors(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		return errors.New("pq: connection refused")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestErrorHandlerLeavesCommittedResponse(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		_, _ = w.Write([]byte(`{"message":"partial"}`))
		return errors.New("late failure")
	})

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"message":"partial"}`, rec.Body.String())
}

func TestErrorHandlerRecoversPanic(t *testing.T) {
	rec := serve(func(w http.ResponseWriter, r *http.Request) error {
		panic("nil map write")
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, rec.Body.String())
}

func TestMethodNotAllowed(t *testing.T) {
	rec := httptest.NewRecorder()
	MethodNotAllowed(rec, httptest.NewRequest(http.MethodGet, "/profile", nil))

	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"error":"Method not allowed"}`, rec.Body.String())
}
