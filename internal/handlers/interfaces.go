package handlers

import (
	"context"

	"github.com/friendgraph/backend/internal/auth"
	"github.com/friendgraph/backend/internal/friends"
	"github.com/friendgraph/backend/internal/models"
)

// AccountService registers users and checks their credentials.
type AccountService interface {
	Register(ctx context.Context, username, password string) (models.User, error)
	Verify(ctx context.Context, username, password string) (auth.Identity, error)
}

// SessionManager issues, refreshes and validates authentication tokens.
type SessionManager interface {
	Issue(ctx context.Context, identity auth.Identity) (models.SessionTokens, error)
	Refresh(ctx context.Context, refreshToken string) (models.SessionTokens, error)
	Authenticate(accessToken string) (auth.Identity, error)
}

// FriendService captures the friend graph operations exposed over HTTP.
type FriendService interface {
	SendRequest(ctx context.Context, requesterID, targetUsername string) (friends.Outcome, error)
	RespondToRequest(ctx context.Context, responderID, requesterUsername string, accept bool) (friends.Outcome, error)
	Unfriend(ctx context.Context, subjectID, otherUsername string) (friends.Outcome, error)
	Status(ctx context.Context, subjectID, otherUsername string) (friends.RelationshipStatus, error)
	ListIncoming(ctx context.Context, subjectID string) ([]models.FriendRequest, error)
	ListOutgoing(ctx context.Context, subjectID string) ([]models.FriendRequest, error)
	ListFriends(ctx context.Context, subjectID string) ([]string, error)
}
