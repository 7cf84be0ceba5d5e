package friends

import (
	"context"
	"errors"
	"fmt"

	"github.com/friendgraph/backend/internal/logging"
	"github.com/friendgraph/backend/internal/models"
	"github.com/friendgraph/backend/internal/repositories"
)

// OutcomeRecorder receives the result of every friend graph operation.
type OutcomeRecorder interface {
	ObserveOutcome(operation, outcome string)
}

// Service owns the friend request lifecycle. Every operation runs inside a
// single store transaction, and constraint violations raised by the store are
// translated into domain errors.
type Service struct {
	store    repositories.GraphStore
	recorder OutcomeRecorder
}

// NewService constructs a Service. recorder may be nil.
func NewService(store repositories.GraphStore, recorder OutcomeRecorder) *Service {
	if store == nil {
		panic("friends: graph store must not be nil")
	}
	return &Service{store: store, recorder: recorder}
}

// SendRequest offers friendship from requesterID to the user named
// targetUsername. If the target already asked the requester, the two become
// friends instead.
func (s *Service) SendRequest(ctx context.Context, requesterID, targetUsername string) (Outcome, error) {
	ctx, span := logging.StartSpan(ctx, "friends.send_request")
	defer span.End()

	var outcome Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		target, err := findUser(ctx, tx, targetUsername)
		if err != nil {
			return err
		}

		if target.ID == requesterID {
			return ErrSelfFriend
		}

		reverse, err := tx.FindFriendRequest(ctx, target.ID, requesterID)
		switch {
		case err == nil:
			if err := promote(ctx, tx, reverse); err != nil {
				return err
			}
			outcome = OutcomeBecameFriends
			return nil
		case !errors.Is(err, repositories.ErrNotFound):
			return fmt.Errorf("find reverse request: %w", err)
		}

		ok, err := exists(tx.FindFriendRequest(ctx, requesterID, target.ID))
		if err != nil {
			return fmt.Errorf("find forward request: %w", err)
		}
		if ok {
			return ErrDuplicateRequest
		}

		ok, err = exists(tx.FindFriendship(ctx, requesterID, target.ID))
		if err != nil {
			return fmt.Errorf("find friendship: %w", err)
		}
		if ok {
			return ErrAlreadyFriends
		}

		if _, err := tx.CreateFriendRequest(ctx, requesterID, target.ID); err != nil {
			switch {
			case errors.Is(err, repositories.ErrConflict):
				return ErrDuplicateRequest
			case errors.Is(err, repositories.ErrNotFound):
				return ErrUserNotFound
			}
			return fmt.Errorf("create friend request: %w", err)
		}
		outcome = OutcomeRequestCreated
		return nil
	})

	return s.finish(ctx, "send_request", outcome, err)
}

// RespondToRequest accepts or rejects the pending request that the user named
// requesterUsername sent to responderID.
func (s *Service) RespondToRequest(ctx context.Context, responderID, requesterUsername string, accept bool) (Outcome, error) {
	ctx, span := logging.StartSpan(ctx, "friends.respond_to_request")
	defer span.End()

	var outcome Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		requester, err := findUser(ctx, tx, requesterUsername)
		if err != nil {
			return err
		}

		request, err := tx.FindFriendRequest(ctx, requester.ID, responderID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrNoPendingRequest
			}
			return fmt.Errorf("find pending request: %w", err)
		}

		if accept {
			if err := promote(ctx, tx, request); err != nil {
				return err
			}
			outcome = OutcomeBecameFriends
			return nil
		}

		if err := tx.DeleteFriendRequest(ctx, request.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrNoPendingRequest
			}
			return fmt.Errorf("delete friend request: %w", err)
		}
		outcome = OutcomeRequestRejected
		return nil
	})

	return s.finish(ctx, "respond_to_request", outcome, err)
}

// Unfriend removes the friendship between subjectID and the user named otherUsername.
func (s *Service) Unfriend(ctx context.Context, subjectID, otherUsername string) (Outcome, error) {
	ctx, span := logging.StartSpan(ctx, "friends.unfriend")
	defer span.End()

	var outcome Outcome
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		other, err := findUser(ctx, tx, otherUsername)
		if err != nil {
			return err
		}

		friendship, err := tx.FindFriendship(ctx, subjectID, other.ID)
		if err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrNotFriends
			}
			return fmt.Errorf("find friendship: %w", err)
		}

		if err := tx.DeleteFriendship(ctx, friendship.ID); err != nil {
			if errors.Is(err, repositories.ErrNotFound) {
				return ErrNotFriends
			}
			return fmt.Errorf("delete friendship: %w", err)
		}
		outcome = OutcomeUnfriended
		return nil
	})

	return s.finish(ctx, "unfriend", outcome, err)
}

// Status resolves how subjectID relates to the user named otherUsername.
func (s *Service) Status(ctx context.Context, subjectID, otherUsername string) (RelationshipStatus, error) {
	ctx, span := logging.StartSpan(ctx, "friends.status")
	defer span.End()

	var status RelationshipStatus
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		other, err := findUser(ctx, tx, otherUsername)
		if err != nil {
			return err
		}

		status, err = Resolve(ctx, tx, subjectID, other.ID)
		return err
	})
	if err != nil {
		s.observe("status", Tag(err))
		return "", err
	}

	s.observe("status", string(status))
	return status, nil
}

// ListIncoming returns requests other users sent to subjectID, newest first.
func (s *Service) ListIncoming(ctx context.Context, subjectID string) ([]models.FriendRequest, error) {
	return s.listRequests(ctx, repositories.RequestFilter{ApplicantID: subjectID})
}

// ListOutgoing returns requests subjectID sent to other users, newest first.
func (s *Service) ListOutgoing(ctx context.Context, subjectID string) ([]models.FriendRequest, error) {
	return s.listRequests(ctx, repositories.RequestFilter{UserID: subjectID})
}

// ListFriends returns the usernames of subjectID's friends, newest friendship first.
func (s *Service) ListFriends(ctx context.Context, subjectID string) ([]string, error) {
	var friendships []models.Friendship
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		var err error
		friendships, err = tx.ListFriendships(ctx, subjectID)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list friendships: %w", err)
	}

	usernames := make([]string, 0, len(friendships))
	for _, friendship := range friendships {
		_, username := friendship.Other(subjectID)
		usernames = append(usernames, username)
	}
	return usernames, nil
}

func (s *Service) listRequests(ctx context.Context, filter repositories.RequestFilter) ([]models.FriendRequest, error) {
	var requests []models.FriendRequest
	err := s.store.WithinTx(ctx, func(ctx context.Context, tx repositories.GraphTx) error {
		var err error
		requests, err = tx.ListFriendRequests(ctx, filter)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("list friend requests: %w", err)
	}
	if requests == nil {
		requests = []models.FriendRequest{}
	}
	return requests, nil
}

// promote replaces a pending request with a friendship between its two sides.
func promote(ctx context.Context, tx repositories.GraphTx, request models.FriendRequest) error {
	if err := tx.DeleteFriendRequest(ctx, request.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return ErrNoPendingRequest
		}
		return fmt.Errorf("delete friend request: %w", err)
	}

	if _, err := tx.CreateFriendship(ctx, request.UserID, request.ApplicantID); err != nil {
		switch {
		case errors.Is(err, repositories.ErrConflict):
			return ErrAlreadyFriends
		case errors.Is(err, repositories.ErrNotFound):
			return ErrUserNotFound
		}
		return fmt.Errorf("create friendship: %w", err)
	}
	return nil
}

func findUser(ctx context.Context, tx repositories.GraphTx, username string) (models.User, error) {
	user, err := tx.FindUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, fmt.Errorf("find user %q: %w", username, err)
	}
	return user, nil
}

func (s *Service) finish(ctx context.Context, operation string, outcome Outcome, err error) (Outcome, error) {
	logger := logging.FromContext(ctx)
	if err != nil {
		s.observe(operation, Tag(err))
		if IsDomainError(err) {
			logger.Info("friend operation rejected", "operation", operation, "outcome", Tag(err))
		} else {
			logger.Error("friend operation failed", "operation", operation, "error", err)
		}
		return "", err
	}

	s.observe(operation, string(outcome))
	logger.Info("friend operation completed", "operation", operation, "outcome", string(outcome))
	return outcome, nil
}

func (s *Service) observe(operation, outcome string) {
	if s.recorder != nil {
		s.recorder.ObserveOutcome(operation, outcome)
	}
}
