package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/friendgraph/backend/internal/models"
	"github.com/friendgraph/backend/internal/repositories"
)

// RelationshipStatus describes how one user relates to another, from the
// subject's point of view.
type RelationshipStatus string

const (
	StatusNone     RelationshipStatus = "none"
	StatusOutgoing RelationshipStatus = "outgoing_request"
	StatusIncoming RelationshipStatus = "incoming_request"
	StatusFriends  RelationshipStatus = "friends"
	StatusSelf     RelationshipStatus = "self"
)

// Description returns a human readable label for the status.
func (s RelationshipStatus) Description() string {
	switch s {
	case StatusOutgoing:
		return "Outgoing request"
	case StatusIncoming:
		return "Incoming request"
	case StatusFriends:
		return "Already friends"
	case StatusSelf:
		return "It's you!"
	default:
		return "Nothing"
	}
}

// Outcome is the successful result of a mutation.
type Outcome string

const (
	OutcomeRequestCreated  Outcome = "request_created"
	OutcomeBecameFriends   Outcome = "became_friends"
	OutcomeRequestRejected Outcome = "request_rejected"
	OutcomeUnfriended      Outcome = "unfriended"
)

// Message returns a human readable confirmation for the outcome.
func (o Outcome) Message() string {
	switch o {
	case OutcomeRequestCreated:
		return "friend request sent"
	case OutcomeBecameFriends:
		return "you are now friends"
	case OutcomeRequestRejected:
		return "friend request rejected"
	case OutcomeUnfriended:
		return "you are no longer friends"
	default:
		return ""
	}
}

// RelationshipReader is the subset of the graph store needed to resolve a status.
type RelationshipReader interface {
	FindFriendship(ctx context.Context, a, b string) (models.Friendship, error)
	FindFriendRequest(ctx context.Context, requesterID, targetID string) (models.FriendRequest, error)
}

// Resolve computes the relationship between subjectID and otherID. Checks run
// in a fixed order so that a friendship dominates any leftover request rows:
// friends, self, incoming, outgoing, none.
//
// Incoming means other sent a request to subject; outgoing means subject sent
// one to other. This matches ListIncoming and ListOutgoing.
func Resolve(ctx context.Context, r RelationshipReader, subjectID, otherID string) (RelationshipStatus, error) {
	ok, err := exists(r.FindFriendship(ctx, subjectID, otherID))
	if err != nil {
		return "", fmt.Errorf("find friendship: %w", err)
	}
	if ok {
		return StatusFriends, nil
	}

	if subjectID == otherID {
		return StatusSelf, nil
	}

	ok, err = exists(r.FindFriendRequest(ctx, otherID, subjectID))
	if err != nil {
		return "", fmt.Errorf("find incoming request: %w", err)
	}
	if ok {
		return StatusIncoming, nil
	}

	ok, err = exists(r.FindFriendRequest(ctx, subjectID, otherID))
	if err != nil {
		return "", fmt.Errorf("find outgoing request: %w", err)
	}
	if ok {
		return StatusOutgoing, nil
	}

	return StatusNone, nil
}

func exists[T any](_ T, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, repositories.ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}
