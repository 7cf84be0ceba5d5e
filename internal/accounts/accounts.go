package accounts

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/friendgraph/backend/internal/auth"
	"github.com/friendgraph/backend/internal/models"
	"github.com/friendgraph/backend/internal/repositories"
)

var (
	// ErrUsernameTaken indicates another account already uses the username.
	ErrUsernameTaken = errors.New("username already taken")
	// ErrInvalidUsername indicates the username does not satisfy the naming rules.
	ErrInvalidUsername = errors.New("username must be 1-150 characters of letters, digits and @.+-_")
	// ErrWeakPassword indicates the password is too short.
	ErrWeakPassword = errors.New("password must be at least 8 characters")
	// ErrInvalidCredentials indicates the username or password did not match.
	ErrInvalidCredentials = errors.New("invalid credentials")
)

const minPasswordLength = 8

var usernamePattern = regexp.MustCompile(`^[\p{L}\p{N}@.+\-_]{1,150}$`)

// Accounts registers users and checks their credentials.
type Accounts struct {
	users repositories.UserRepository
	cost  int
	now   func() time.Time
}

// NewAccounts constructs Accounts backed by users.
func NewAccounts(users repositories.UserRepository) *Accounts {
	if users == nil {
		panic("auth: user repository must not be nil")
	}
	return &Accounts{
		users: users,
		cost:  bcrypt.DefaultCost,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// Register creates a user with a bcrypt hash of password.
func (a *Accounts) Register(ctx context.Context, username, password string) (models.User, error) {
	username = strings.TrimSpace(username)
	if !usernamePattern.MatchString(username) {
		return models.User{}, ErrInvalidUsername
	}
	if len(password) < minPasswordLength {
		return models.User{}, ErrWeakPassword
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), a.cost)
	if err != nil {
		return models.User{}, fmt.Errorf("hash password: %w", err)
	}

	now := a.now()
	user := models.User{
		ID:        models.NewID(),
		Username:  username,
		Password:  string(hashed),
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := a.users.Create(ctx, user); err != nil {
		if errors.Is(err, repositories.ErrConflict) {
			return models.User{}, ErrUsernameTaken
		}
		return models.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Verify returns the identity for username when password matches its hash.
func (a *Accounts) Verify(ctx context.Context, username, password string) (auth.Identity, error) {
	user, err := a.users.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return auth.Identity{}, ErrInvalidCredentials
		}
		return auth.Identity{}, fmt.Errorf("find user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return auth.Identity{}, ErrInvalidCredentials
	}
	return auth.Identity{UserID: user.ID, Username: user.Username}, nil
}
