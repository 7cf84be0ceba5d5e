package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/friendgraph/backend/internal/friends"
	"github.com/friendgraph/backend/internal/logging"
)

const (
	statusSuccess = "success"
	statusError   = "error"
)

// envelope is the response body shared by the friend graph endpoints.
type envelope struct {
	Status  string `json:"status"`
	Code    int    `json:"code"`
	Outcome string `json:"outcome,omitempty"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.FromContext(ctx).Error("encode response body", "status", status, "error", err)
		return
	}

	logger := logging.FromContext(ctx)
	switch {
	case status >= http.StatusInternalServerError:
		logger.Error("request failed", "status", status, "response", payload)
	case status >= http.StatusBadRequest:
		logger.Warn("request returned client error", "status", status, "response", payload)
	}
}

func respondSuccess(ctx context.Context, w http.ResponseWriter, status int, outcome, message string, data any) {
	respondJSON(ctx, w, status, envelope{
		Status:  statusSuccess,
		Code:    status,
		Outcome: outcome,
		Message: message,
		Data:    data,
	})
}

func respondFailure(ctx context.Context, w http.ResponseWriter, status int, outcome, message string) {
	respondJSON(ctx, w, status, envelope{
		Status:  statusError,
		Code:    status,
		Outcome: outcome,
		Message: message,
	})
}

// respondDomainError maps friend graph errors onto HTTP statuses. Anything
// that is not a domain error is reported as an internal failure.
func respondDomainError(ctx context.Context, w http.ResponseWriter, err error) {
	var domainErr *friends.Error
	if !errors.As(err, &domainErr) {
		logging.FromContext(ctx).Error("friend graph operation failed", "error", err)
		respondFailure(ctx, w, http.StatusInternalServerError, "internal", "internal error")
		return
	}

	status := http.StatusBadRequest
	if errors.Is(err, friends.ErrUserNotFound) {
		status = http.StatusNotFound
	}
	respondFailure(ctx, w, status, domainErr.Tag, domainErr.Message)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	decoder := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	decoder.DisallowUnknownFields()
	return decoder.Decode(dst)
}
