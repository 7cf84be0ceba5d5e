package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/friendgraph/backend/internal/friends"
	"github.com/friendgraph/backend/internal/logging"
	"github.com/friendgraph/backend/internal/models"
)

// ApplicationHandler exposes the friend request lifecycle.
type ApplicationHandler struct {
	Friends FriendService
	Limiter RateLimiter
}

// Send handles POST /api/v1/applications/send.
func (h ApplicationHandler) Send(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	if !allowRequest(h.Limiter, r, "send:"+identity.UserID) {
		logging.FromContext(ctx).Warn("friend request rate limited")
		respondFailure(ctx, w, http.StatusTooManyRequests, "rate_limited", "too many requests")
		return
	}

	var req sendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		logging.FromContext(ctx).Warn("invalid send payload", "error", err)
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	req.Applicant = strings.TrimSpace(req.Applicant)
	if req.Applicant == "" {
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "applicant is required")
		return
	}

	outcome, err := h.Friends.SendRequest(ctx, identity.UserID, req.Applicant)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}
	respondOutcome(ctx, w, outcome)
}

// Respond handles PUT /api/v1/applications/{username}, accepting or
// rejecting the request that username sent to the caller.
func (h ApplicationHandler) Respond(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	var req respondRequest
	if err := decodeJSON(w, r, &req); err != nil || req.Accept == nil {
		logging.FromContext(ctx).Warn("invalid respond payload", "error", err)
		respondFailure(ctx, w, http.StatusBadRequest, "invalid_request", "accept must be true or false")
		return
	}

	outcome, err := h.Friends.RespondToRequest(ctx, identity.UserID, r.PathValue("username"), *req.Accept)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}
	respondOutcome(ctx, w, outcome)
}

// Incoming handles GET /api/v1/applications/incoming.
func (h ApplicationHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Friends.ListIncoming)
}

// Outgoing handles GET /api/v1/applications/outgoing.
func (h ApplicationHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.Friends.ListOutgoing)
}

func (h ApplicationHandler) list(w http.ResponseWriter, r *http.Request, fetch func(ctx context.Context, subjectID string) ([]models.FriendRequest, error)) {
	ctx := r.Context()
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	requests, err := fetch(ctx, identity.UserID)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	views := make([]applicationView, 0, len(requests))
	for _, request := range requests {
		views = append(views, applicationView{
			ID:        request.ID,
			User:      request.Username,
			Applicant: request.ApplicantUsername,
			CreatedAt: request.CreatedAt,
		})
	}
	respondSuccess(ctx, w, http.StatusOK, "", "", views)
}

// respondOutcome reports a successful mutation. Created relationships answer
// 201, removals 200.
func respondOutcome(ctx context.Context, w http.ResponseWriter, outcome friends.Outcome) {
	status := http.StatusOK
	switch outcome {
	case friends.OutcomeRequestCreated, friends.OutcomeBecameFriends:
		status = http.StatusCreated
	}
	respondSuccess(ctx, w, status, string(outcome), outcome.Message(), nil)
}

type sendRequest struct {
	Applicant string `json:"applicant"`
}

type respondRequest struct {
	Accept *bool `json:"accept"`
}

type applicationView struct {
	ID        string    `json:"id"`
	User      string    `json:"user"`
	Applicant string    `json:"applicant"`
	CreatedAt time.Time `json:"created_at"`
}
