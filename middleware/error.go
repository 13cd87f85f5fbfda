package middleware

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"profile-service/models"
)

type AppHandler func(http.ResponseWriter, *http.Request) error

// AppError carries the status and client-safe message for a failed request.
// Err is logged but never rendered.
type AppError struct {
	Status  int
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func NewAppError(status int, message string, err error) *AppError {
	return &AppError{Status: status, Message: message, Err: err}
}

type errorBody struct {
	Error string `json:"error"`
}

// domainErrors renders sentinel errors that reach ErrorHandler without an
// AppError wrapper. Order matters for errors wrapping more than one sentinel.
var domainErrors = []struct {
	target  error
	status  int
	message string
}{
	{models.ErrMalformedRequest, http.StatusBadRequest, "Invalid form data"},
	{models.ErrMissingIdentity, http.StatusBadRequest, "Wallet address is required"},
	{models.ErrInvalidSocialLinks, http.StatusBadRequest, "Invalid socialLinks format"},
	{models.ErrNoFieldsProvided, http.StatusBadRequest, "No fields to update"},
	{models.ErrNotFound, http.StatusNotFound, "User not found"},
	{models.ErrUploadFailed, http.StatusInternalServerError, "Failed to upload avatar"},
}

func resolveError(err error) (int, string) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Status, appErr.Message
	}
	for _, d := range domainErrors {
		if errors.Is(err, d.target) {
			return d.status, d.message
		}
	}
	return http.StatusInternalServerError, "Internal server error"
}

type statusRecorder struct {
	http.ResponseWriter
	status    int
	committed bool
}

func (sr *statusRecorder) WriteHeader(statusCode int) {
	if !sr.committed {
		sr.status = statusCode
		sr.committed = true
	}
	sr.ResponseWriter.WriteHeader(statusCode)
}

func (sr *statusRecorder) Write(b []byte) (int, error) {
	if !sr.committed {
		sr.WriteHeader(http.StatusOK)
	}
	return sr.ResponseWriter.Write(b)
}

// ErrorHandler adapts an AppHandler to net/http, rendering returned errors
// and recovered panics as {"error": message}. Nothing is rendered once the
// handler has started its own response.
func ErrorHandler(handler AppHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sr := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		defer func() {
			if recovered := recover(); recovered != nil {
				log.Printf("panic recovered: method=%s path=%s panic=%v", r.Method, r.URL.Path, recovered)
				if !sr.committed {
					WriteError(sr, http.StatusInternalServerError, "Internal server error")
				}
			}
		}()

		err := handler(sr, r)
		if err == nil {
			return
		}

		status, message := resolveError(err)
		if status >= http.StatusInternalServerError {
			log.Printf("request failed: method=%s path=%s status=%d err=%v", r.Method, r.URL.Path, status, err)
		} else {
			log.Printf("request rejected: method=%s path=%s status=%d err=%v", r.Method, r.URL.Path, status, err)
		}
		if sr.committed {
			return
		}
		WriteError(sr, status, message)
	}
}

// MethodNotAllowed is installed as the router's 405 handler.
func MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	WriteError(w, http.StatusMethodNotAllowed, "Method not allowed")
}

func WriteError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: message})
}
