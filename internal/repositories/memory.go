package repositories

import (
	"context"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/friendgraph/backend/internal/models"
)

// InMemoryStore implements UserRepository and GraphStore on top of maps. A
// single mutex is held for the duration of each transaction, which makes every
// transaction serializable. It backs tests and local development.
type InMemoryStore struct {
	mu          sync.Mutex
	users       map[string]models.User
	requests    map[string]models.FriendRequest
	friendships map[string]models.Friendship
	now         func() time.Time
}

// NewInMemoryStore returns an empty in-memory store.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		users:       make(map[string]models.User),
		requests:    make(map[string]models.FriendRequest),
		friendships: make(map[string]models.Friendship),
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Create persists a new user record. Usernames are unique.
func (s *InMemoryStore) Create(_ context.Context, user models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[user.ID]; ok {
		return ErrConflict
	}
	if _, err := s.userByUsernameLocked(user.Username); err == nil {
		return ErrConflict
	}
	s.users[user.ID] = user
	return nil
}

// FindByUsername fetches a user by username.
func (s *InMemoryStore) FindByUsername(_ context.Context, username string) (models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.userByUsernameLocked(username)
}

// DeleteUser removes a user and every request or friendship referencing it.
func (s *InMemoryStore) DeleteUser(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.users[id]; !ok {
		return ErrNotFound
	}
	delete(s.users, id)
	maps.DeleteFunc(s.requests, func(_ string, r models.FriendRequest) bool {
		return r.UserID == id || r.ApplicantID == id
	})
	maps.DeleteFunc(s.friendships, func(_ string, f models.Friendship) bool {
		return f.Touches(id)
	})
	return nil
}

// WithinTx runs fn while holding the store lock. Changes made by fn are
// discarded when it returns an error.
func (s *InMemoryStore) WithinTx(ctx context.Context, fn func(ctx context.Context, tx GraphTx) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	requests := maps.Clone(s.requests)
	friendships := maps.Clone(s.friendships)

	if err := fn(ctx, &memGraphTx{s: s}); err != nil {
		s.requests = requests
		s.friendships = friendships
		return err
	}
	return nil
}

// Counts reports the number of stored requests and friendships.
func (s *InMemoryStore) Counts() (requests, friendships int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests), len(s.friendships)
}

func (s *InMemoryStore) userByUsernameLocked(username string) (models.User, error) {
	for _, user := range s.users {
		if user.Username == username {
			return user, nil
		}
	}
	return models.User{}, ErrNotFound
}

// memGraphTx must only be used while the owning store's lock is held.
type memGraphTx struct {
	s *InMemoryStore
}

func (t *memGraphTx) FindUserByUsername(_ context.Context, username string) (models.User, error) {
	return t.s.userByUsernameLocked(username)
}

func (t *memGraphTx) ListUsers(context.Context) ([]models.User, error) {
	users := slices.Collect(maps.Values(t.s.users))
	slices.SortFunc(users, func(a, b models.User) int { return strings.Compare(b.ID, a.ID) })
	return users, nil
}

func (t *memGraphTx) CreateFriendRequest(_ context.Context, requesterID, targetID string) (models.FriendRequest, error) {
	if !t.userExists(requesterID) || !t.userExists(targetID) {
		return models.FriendRequest{}, ErrNotFound
	}
	if _, err := t.FindFriendRequest(context.Background(), requesterID, targetID); err == nil {
		return models.FriendRequest{}, ErrConflict
	}

	request := models.FriendRequest{
		ID:          models.NewID(),
		UserID:      requesterID,
		ApplicantID: targetID,
		CreatedAt:   t.s.now(),
	}
	t.s.requests[request.ID] = request
	return request, nil
}

func (t *memGraphTx) FindFriendRequest(_ context.Context, requesterID, targetID string) (models.FriendRequest, error) {
	for _, request := range t.s.requests {
		if request.UserID == requesterID && request.ApplicantID == targetID {
			return request, nil
		}
	}
	return models.FriendRequest{}, ErrNotFound
}

func (t *memGraphTx) DeleteFriendRequest(_ context.Context, id string) error {
	if _, ok := t.s.requests[id]; !ok {
		return ErrNotFound
	}
	delete(t.s.requests, id)
	return nil
}

func (t *memGraphTx) ListFriendRequests(_ context.Context, filter RequestFilter) ([]models.FriendRequest, error) {
	var out []models.FriendRequest
	for _, request := range t.s.requests {
		if filter.UserID != "" && request.UserID != filter.UserID {
			continue
		}
		if filter.ApplicantID != "" && request.ApplicantID != filter.ApplicantID {
			continue
		}
		request.Username = t.s.users[request.UserID].Username
		request.ApplicantUsername = t.s.users[request.ApplicantID].Username
		out = append(out, request)
	}
	slices.SortFunc(out, func(a, b models.FriendRequest) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

func (t *memGraphTx) CreateFriendship(ctx context.Context, a, b string) (models.Friendship, error) {
	if !t.userExists(a) || !t.userExists(b) {
		return models.Friendship{}, ErrNotFound
	}
	if _, err := t.FindFriendship(ctx, a, b); err == nil {
		return models.Friendship{}, ErrConflict
	}

	low, high := models.CanonicalPair(a, b)
	friendship := models.Friendship{
		ID:        models.NewID(),
		UserLow:   low,
		UserHigh:  high,
		CreatedAt: t.s.now(),
	}
	t.s.friendships[friendship.ID] = friendship
	return friendship, nil
}

func (t *memGraphTx) FindFriendship(_ context.Context, a, b string) (models.Friendship, error) {
	low, high := models.CanonicalPair(a, b)
	for _, friendship := range t.s.friendships {
		if friendship.UserLow == low && friendship.UserHigh == high {
			return friendship, nil
		}
	}
	return models.Friendship{}, ErrNotFound
}

func (t *memGraphTx) ListFriendships(_ context.Context, userID string) ([]models.Friendship, error) {
	var out []models.Friendship
	for _, friendship := range t.s.friendships {
		if userID != "" && !friendship.Touches(userID) {
			continue
		}
		friendship.LowUsername = t.s.users[friendship.UserLow].Username
		friendship.HighUsername = t.s.users[friendship.UserHigh].Username
		out = append(out, friendship)
	}
	slices.SortFunc(out, func(a, b models.Friendship) int { return strings.Compare(b.ID, a.ID) })
	return out, nil
}

func (t *memGraphTx) DeleteFriendship(_ context.Context, id string) error {
	if _, ok := t.s.friendships[id]; !ok {
		return ErrNotFound
	}
	delete(t.s.friendships, id)
	return nil
}

func (t *memGraphTx) userExists(id string) bool {
	_, ok := t.s.users[id]
	return ok
}

var _ UserRepository = (*InMemoryStore)(nil)
var _ GraphStore = (*InMemoryStore)(nil)
var _ GraphTx = (*memGraphTx)(nil)
