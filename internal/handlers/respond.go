package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/google/uuid"

	"github.com/vidtube/backend/internal/logging"
)

// envelope is the uniform response shape every endpoint returns.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, message string, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	payload := envelope{
		Success: status < http.StatusBadRequest,
		Message: message,
		Data:    data,
	}

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "message", message)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "message", message)
	}
}

func respondError(ctx context.Context, w http.ResponseWriter, status int, message string) {
	respondJSON(ctx, w, status, message, nil)
}

// validID reports whether the value is a well-formed entity identifier.
func validID(value string) bool {
	_, err := uuid.Parse(value)
	return err == nil
}
