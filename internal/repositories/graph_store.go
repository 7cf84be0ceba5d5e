package repositories

import (
	"context"

	"github.com/friendgraph/backend/internal/models"
)

// RequestFilter narrows a friend request listing. Empty fields are unconstrained.
type RequestFilter struct {
	UserID      string
	ApplicantID string
}

// GraphTx exposes the friend graph tables inside a single transaction.
//
// Lookups return ErrNotFound when no row matches. Creates return ErrConflict
// when a uniqueness constraint rejects the row and ErrNotFound when a
// referenced user does not exist.
type GraphTx interface {
	FindUserByUsername(ctx context.Context, username string) (models.User, error)
	ListUsers(ctx context.Context) ([]models.User, error)

	CreateFriendRequest(ctx context.Context, requesterID, targetID string) (models.FriendRequest, error)
	FindFriendRequest(ctx context.Context, requesterID, targetID string) (models.FriendRequest, error)
	DeleteFriendRequest(ctx context.Context, id string) error
	ListFriendRequests(ctx context.Context, filter RequestFilter) ([]models.FriendRequest, error)

	// CreateFriendship stores the pair in canonical order regardless of argument order.
	CreateFriendship(ctx context.Context, a, b string) (models.Friendship, error)
	FindFriendship(ctx context.Context, a, b string) (models.Friendship, error)
	// ListFriendships returns friendships touching userID, or every friendship when userID is empty.
	ListFriendships(ctx context.Context, userID string) ([]models.Friendship, error)
	DeleteFriendship(ctx context.Context, id string) error
}

// GraphStore runs fn inside a transaction. If fn returns an error the
// transaction is rolled back and the error is returned unchanged.
type GraphStore interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context, tx GraphTx) error) error
}
