// Package http provides the JSON API server and its handlers.
//
// This file implements a small builder for JSON responses and the mapping
// from domain errors to status codes.

package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"lawdesk/internal/auth"
	"lawdesk/internal/backup"
	"lawdesk/internal/core"
	applog "lawdesk/internal/log"
	"lawdesk/internal/services"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       map[string]any
	raw        any
	headers    map[string]string
}

// NewJSONResponse creates a new response builder with default 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		body:       make(map[string]any),
		headers:    make(map[string]string),
	}
}

// Status sets the HTTP status code for the response.
func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

// Field adds one top-level key to the response object.
func (b *JSONResponseBuilder) Field(key string, value any) *JSONResponseBuilder {
	b.body[key] = value
	return b
}

// Message sets the human readable "message" field.
func (b *JSONResponseBuilder) Message(msg string) *JSONResponseBuilder {
	return b.Field("message", msg)
}

// Raw replaces the object body with v, encoded as is.
func (b *JSONResponseBuilder) Raw(v any) *JSONResponseBuilder {
	b.raw = v
	return b
}

// Header adds a custom header to the response.
func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Write sends the built response.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(b.statusCode)

	var body any = b.body
	if b.raw != nil {
		body = b.raw
	}
	if err := json.NewEncoder(w).Encode(body); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

// Paginated builds the list envelope used by every paginated endpoint.
func Paginated[T any](resource string, page services.Page[T], lq core.ListQuery) *JSONResponseBuilder {
	items := page.Items
	if items == nil {
		items = []T{}
	}
	pages := 0
	if lq.Page.PerPage > 0 {
		pages = (page.Total + lq.Page.PerPage - 1) / lq.Page.PerPage
	}
	return NewJSONResponse().
		Field(resource, items).
		Field("total", page.Total).
		Field("pages", pages).
		Field("current_page", lq.Page.Number)
}

// ErrorResponse creates a standard error body.
func ErrorResponse(statusCode int, code, message string) *JSONResponseBuilder {
	return NewJSONResponse().
		Status(statusCode).
		Field("error", code).
		Message(message)
}

// BadRequestError creates a 400 Bad Request error response.
func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, "bad_request", message)
}

// NotFoundError creates a 404 Not Found error response.
func NotFoundError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusNotFound, "not_found", message)
}

// InternalServerError creates a 500 response with a generic message.
func InternalServerError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, "internal_error", "internal server error")
}

// TooManyRequestsError creates a 429 response.
func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "rate_limited", "rate limit exceeded, please try again later")
}

// writeError maps err onto the API error contract. Unrecognised errors are
// logged and reported as a generic 500.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *core.ValidationError
	errType := applog.ErrorTypeValidation
	switch {
	case errors.As(err, &verr):
		b := ErrorResponse(http.StatusBadRequest, "validation_error", verr.Error())
		if verr.Field != "" {
			b.Field("fields", map[string]string{verr.Field: verr.Message})
		}
		b.Write(w)
	case errors.Is(err, core.ErrValidation):
		ErrorResponse(http.StatusBadRequest, "validation_error", err.Error()).Write(w)
	case errors.Is(err, core.ErrInvalidAmount):
		ErrorResponse(http.StatusBadRequest, "invalid_amount", err.Error()).Write(w)
	case errors.Is(err, core.ErrNotFound):
		errType = applog.ErrorTypeNotFound
		NotFoundError(err.Error()).Write(w)
	case errors.Is(err, core.ErrConflict), errors.Is(err, backup.ErrAlreadyRunning):
		errType = applog.ErrorTypeConflict
		ErrorResponse(http.StatusConflict, "conflict", err.Error()).Write(w)
	case errors.Is(err, core.ErrAuthorization):
		errType = applog.ErrorTypeAuth
		ErrorResponse(http.StatusForbidden, "forbidden", err.Error()).Write(w)
	case errors.Is(err, auth.ErrInvalidCredentials):
		errType = applog.ErrorTypeAuth
		ErrorResponse(http.StatusUnauthorized, "invalid_credentials", err.Error()).Write(w)
	case errors.Is(err, auth.ErrInactiveUser):
		errType = applog.ErrorTypeAuth
		ErrorResponse(http.StatusUnauthorized, "user_inactive", err.Error()).Write(w)
	case errors.Is(err, auth.ErrMissingToken), errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrTokenExpired):
		errType = applog.ErrorTypeAuth
		auth.WriteAuthError(w, err)
	case errors.Is(err, auth.ErrWeakPassword):
		ErrorResponse(http.StatusBadRequest, "validation_error", err.Error()).Write(w)
	case errors.Is(err, context.DeadlineExceeded):
		errType = applog.ErrorTypeTimeout
		ErrorResponse(http.StatusServiceUnavailable, "timeout", "request timed out").Write(w)
	default:
		errType = applog.ErrorTypeInternal
		InternalServerError().Write(w)
	}
	logRequestError(r, errType, err)
}

// logRequestError records a failed request. Internal errors are logged at
// error level since their detail never reaches the client.
func logRequestError(r *http.Request, errType string, err error) {
	fields := applog.NewFields().
		WithHTTPRequest(r.Method, r.URL.Path, "", "", "").
		WithError(err).
		WithErrorType(errType).
		WithComponent(applog.ComponentHTTP)
	if p, ok := auth.PrincipalFrom(r.Context()); ok {
		fields.WithUser(p.UserID, string(p.Role))
	}
	level := slog.LevelDebug
	if errType == applog.ErrorTypeInternal || errType == applog.ErrorTypeTimeout {
		level = slog.LevelError
	}
	slog.Log(r.Context(), level, "Request failed", fields.ToSlice()...)
}
