// Package http exposes the ledger gateway over a query-parameter driven
// JSON endpoint.
//
// This file implements a small builder for JSON responses so every reply
// carries the same no-cache headers.

package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/GillJordan/Home-expense/internal/core"
)

// JSONResponseBuilder provides a fluent API for building JSON responses.
type JSONResponseBuilder struct {
	statusCode int
	body       any
	headers    map[string]string
}

// NewJSONResponse creates a builder with a 200 status.
func NewJSONResponse() *JSONResponseBuilder {
	return &JSONResponseBuilder{
		statusCode: http.StatusOK,
		headers:    make(map[string]string),
	}
}

func (b *JSONResponseBuilder) Status(code int) *JSONResponseBuilder {
	b.statusCode = code
	return b
}

func (b *JSONResponseBuilder) Header(name, value string) *JSONResponseBuilder {
	b.headers[name] = value
	return b
}

// Body sets the value encoded as the response body.
func (b *JSONResponseBuilder) Body(v any) *JSONResponseBuilder {
	b.body = v
	return b
}

// Write sends the response with the no-cache header set.
func (b *JSONResponseBuilder) Write(w http.ResponseWriter) {
	setNoCache(w.Header())
	for name, value := range b.headers {
		w.Header().Set(name, value)
	}

	payload, err := json.Marshal(b.body)
	if err != nil {
		slog.Error("Failed to encode JSON response", "error", err)
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":"failed to encode response"}`))
		return
	}
	w.WriteHeader(b.statusCode)
	_, _ = w.Write(payload)
}

func setNoCache(h http.Header) {
	h.Set("Cache-Control", "no-store, no-cache, must-revalidate, max-age=0")
	h.Set("Pragma", "no-cache")
	h.Set("Expires", "0")
	h.Set("Content-Type", "application/json")
}

// OK creates a 200 response around body.
func OK(body any) *JSONResponseBuilder {
	return NewJSONResponse().Body(body)
}

// ErrorResponse creates a {"error": message} response.
func ErrorResponse(statusCode int, message string) *JSONResponseBuilder {
	return NewJSONResponse().Status(statusCode).Body(errorBody{Error: message})
}

func BadRequestError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusBadRequest, message)
}

func InternalServerError(message string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusInternalServerError, message)
}

func MethodNotAllowedError(allowedMethods string) *JSONResponseBuilder {
	return ErrorResponse(http.StatusMethodNotAllowed, "Method Not Allowed").
		Header("Allow", allowedMethods)
}

func TooManyRequestsError() *JSONResponseBuilder {
	return ErrorResponse(http.StatusTooManyRequests, "Rate limit exceeded. Please try again later.")
}

// FromError maps a ledger error onto its status: caller mistakes are 400,
// everything else is 500.
func FromError(err error) *JSONResponseBuilder {
	if core.IsClientError(err) {
		var le *core.Error
		if errors.As(err, &le) {
			return BadRequestError(le.Msg)
		}
		return BadRequestError(err.Error())
	}
	return InternalServerError(err.Error())
}

type errorBody struct {
	Error string `json:"error"`
}
