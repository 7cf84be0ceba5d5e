package handlers

import (
	"net/http"

	"github.com/friendgraph/backend/internal/logging"
)

// FriendHandler provides friend listing, unfriend and status endpoints.
type FriendHandler struct {
	Friends FriendService
}

// List handles GET /api/v1/friends requests.
func (h FriendHandler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	usernames, err := h.Friends.ListFriends(ctx, identity.UserID)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}
	respondSuccess(ctx, w, http.StatusOK, "", "", usernames)
}

// Unfriend handles PUT /api/v1/friends/{username}.
func (h FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	outcome, err := h.Friends.Unfriend(ctx, identity.UserID, r.PathValue("username"))
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}
	respondOutcome(ctx, w, outcome)
}

// Status handles GET /api/v1/status/{username}.
func (h FriendHandler) Status(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	identity, ok := identityFrom(w, r)
	if !ok {
		return
	}

	username := r.PathValue("username")
	status, err := h.Friends.Status(ctx, identity.UserID, username)
	if err != nil {
		respondDomainError(ctx, w, err)
		return
	}

	logging.FromContext(ctx).Debug("relationship resolved", "username", username, "status", string(status))
	respondSuccess(ctx, w, http.StatusOK, string(status), status.Description(), nil)
}
