package http

import (
	"context"
	"encoding/json"
	"net/http"

	apperror "github.com/fixora/tasktrail/pkg/error"

	"github.com/fixora/tasktrail/internal/logger"
)

// Envelope is the body of every API response except the history listing
type Envelope struct {
	Status  bool        `json:"status"`
	Message string      `json:"message"`
	Data    interface{} `json:"data"`
	Code    string      `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(body)
}

func writeSuccess(w http.ResponseWriter, statusCode int, message string, data interface{}) {
	writeJSON(w, statusCode, Envelope{Status: true, Message: message, Data: data})
}

func writeErrorResponse(w http.ResponseWriter, statusCode int, code, message string) {
	writeJSON(w, statusCode, Envelope{Status: false, Message: message, Code: code})
}

// writeError maps err to its AppError and writes it. Internal errors are
// logged with the original cause since the client only sees a generic message.
func writeError(ctx context.Context, log logger.Logger, w http.ResponseWriter, err error) {
	appErr := apperror.MapError(err)
	if appErr.Status >= http.StatusInternalServerError {
		log.Error(ctx, "Request failed", err, nil)
	}
	writeErrorResponse(w, appErr.Status, appErr.Code, appErr.Message)
}

func decodeJSON(r *http.Request, dst interface{}) error {
	return json.NewDecoder(r.Body).Decode(dst)
}
