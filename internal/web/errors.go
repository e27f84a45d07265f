package web

// errors.go provides unified error response handling for the web layer.
//
// The technical error is logged with the request id; the client receives
// the mapped user message and its code.

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"

	"github.com/JonMunkholm/ledgersync/internal/backup"
	"github.com/JonMunkholm/ledgersync/internal/core"
	"github.com/JonMunkholm/ledgersync/internal/drive"
	"github.com/JonMunkholm/ledgersync/internal/logging"
)

// ErrorResponse represents the JSON structure for API error responses.
// Includes both machine-readable (Code) and human-readable (Message, Action) fields.
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Action  string `json:"action,omitempty"`
	Code    string `json:"code"`
}

var (
	// errBadRequest marks malformed client input.
	errBadRequest = errors.New("invalid request")

	// errUnreadableWorkbook marks an upload the decoder rejected.
	errUnreadableWorkbook = errors.New("unreadable workbook")
)

// respondError logs err and writes its user-facing form with the status
// statusFor picks.
func (s *Server) respondError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	userMsg := core.MapError(err)

	logger := logging.FromContext(r.Context())
	attrs := []any{
		"path", r.URL.Path,
		"method", r.Method,
		"status", status,
		"error", err.Error(),
		"code", userMsg.Code,
	}
	if status >= http.StatusInternalServerError {
		logger.Error("request error", attrs...)
	} else {
		logger.Warn("request error", attrs...)
	}

	respondErrorJSON(w, userMsg, status)
}

// respondErrorJSON writes a JSON error response.
func respondErrorJSON(w http.ResponseWriter, msg core.UserMessage, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(ErrorResponse{
		Error:   msg.Message,
		Message: msg.Message,
		Action:  msg.Action,
		Code:    msg.Code,
	})
}

// statusFor maps an error to its HTTP status code.
func statusFor(err error) int {
	var maxBytes *http.MaxBytesError
	switch {
	case errors.Is(err, core.ErrOperationInProgress):
		return http.StatusConflict
	case errors.Is(err, core.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, backup.ErrReconnectRequired), errors.Is(err, drive.ErrCredentialExpired):
		return http.StatusUnauthorized
	case errors.Is(err, backup.ErrNoBackupFile):
		return http.StatusNotFound
	case errors.As(err, &maxBytes):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, core.ErrNoSheets),
		errors.Is(err, core.ErrEmptyWorkbook),
		errors.Is(err, core.ErrUnknownKind),
		errors.Is(err, errBadRequest),
		errors.Is(err, errUnreadableWorkbook):
		return http.StatusBadRequest
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

// clientIP returns the request's remote host without the port.
func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
