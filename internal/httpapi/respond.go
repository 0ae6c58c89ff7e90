package httpapi

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/JamesPrial/task-history/internal/task"
)

// Success messages carried in the envelope, keyed by method.
const (
	msgGet     = "Data get successfully"
	msgCreated = "Data created successfully"
	msgUpdated = "Data updated successfully"
)

// Failure messages carried in the envelope.
const (
	msgNotFound    = "Data not found"
	msgInvalid     = "Invalid data"
	msgConflict    = "Invalid state transition"
	msgUnsupported = "Unsupported media type"
	msgGetError    = "Error getting data"
	msgCreateError = "Error creating data"
	msgUpdateError = "Error updating data"
	msgDeleteError = "Error deleting data"
)

// Envelope wraps every successful response body.
type Envelope struct {
	Data    any    `json:"data"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}

// ErrorEnvelope wraps every failed response body. Data is always an empty
// array.
type ErrorEnvelope struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Data    []any  `json:"data"`
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.Error("failed to write response", "error", err)
	}
}

func writeSuccess(w http.ResponseWriter, logger *slog.Logger, status int, message string, data any) {
	writeJSON(w, logger, status, Envelope{Data: data, Message: message, Code: status})
}

// statusFor maps an error kind to its HTTP status and envelope message.
// fallback is the message used for store failures.
func statusFor(err error, fallback string) (int, string) {
	switch task.KindOf(err) {
	case task.KindNotFound:
		return http.StatusNotFound, msgNotFound
	case task.KindValidation:
		return http.StatusBadRequest, msgInvalid
	case task.KindInvariant:
		return http.StatusConflict, msgConflict
	default:
		return http.StatusInternalServerError, fallback
	}
}

func writeError(w http.ResponseWriter, logger *slog.Logger, err error, fallback string) {
	status, message := statusFor(err, fallback)
	detail := err.Error()
	if status == http.StatusInternalServerError {
		// Store errors may carry driver details; keep them in the logs.
		detail = http.StatusText(status)
	}
	writeJSON(w, logger, status, ErrorEnvelope{Message: message, Error: detail, Data: []any{}})
}
