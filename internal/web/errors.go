package web

import (
	"context"
	"errors"
	"net"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/JonMunkholm/partbot/internal/core"
	"github.com/JonMunkholm/partbot/internal/logging"
)

// ErrorResponse is the JSON body of every API error. Code is
// machine-readable; Message and Action are meant for people.
type ErrorResponse struct {
	Error     string `json:"error"`
	Message   string `json:"message"`
	Action    string `json:"action,omitempty"`
	Code      string `json:"code"`
	Detail    string `json:"detail,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// respondError logs err with request context and answers with the coded
// user message from core.MapError.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	msg := core.MapError(err)
	status := statusFor(err)

	logger := logging.FromContext(r.Context())
	log := logger.Error
	if core.IsUserFacing(err) {
		log = logger.Warn
	}
	log("request error",
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", msg.Code,
	)

	writeJSON(w, r, status, ErrorResponse{
		Error:     msg.Message,
		Message:   msg.Message,
		Action:    msg.Action,
		Code:      msg.Code,
		Detail:    msg.Detail,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// writeError answers with a fixed message for failures that never reach
// core, such as a bad query string.
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	writeJSON(w, r, status, ErrorResponse{
		Error:     message,
		Message:   message,
		Code:      code,
		RequestID: chimw.GetReqID(r.Context()),
	})
}

// statusFor maps an error to the HTTP status reported for it.
func statusFor(err error) int {
	var (
		schemaErr *core.SchemaError
		accessErr *core.AccessError
	)
	switch {
	case core.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrBusy):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.As(err, &schemaErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &accessErr):
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// clientIP strips the port from r.RemoteAddr.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
