package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalidToken indicates an access token is malformed, forged or expired.
var ErrInvalidToken = errors.New("invalid access token")

const tokenIssuer = "friendgraph"

// Identity is the authenticated caller extracted from an access token.
type Identity struct {
	UserID   string
	Username string
}

type accessClaims struct {
	Username string `json:"username"`
	jwt.RegisteredClaims
}

// TokenSigner signs and verifies HS256 access tokens.
type TokenSigner struct {
	secret []byte
	now    func() time.Time
}

// NewTokenSigner returns a signer using the provided shared secret.
func NewTokenSigner(secret string) *TokenSigner {
	if secret == "" {
		panic("auth: token secret must not be empty")
	}
	return &TokenSigner{secret: []byte(secret), now: time.Now}
}

// Sign issues an access token for identity that expires at expiresAt.
func (s *TokenSigner) Sign(identity Identity, expiresAt time.Time) (string, error) {
	claims := accessClaims{
		Username: identity.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   identity.UserID,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(s.now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("sign access token: %w", err)
	}
	return signed, nil
}

// Verify parses an access token and returns the identity it was issued for.
func (s *TokenSigner) Verify(token string) (Identity, error) {
	var claims accessClaims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return s.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return Identity{}, ErrInvalidToken
	}
	if claims.Subject == "" || claims.Username == "" {
		return Identity{}, ErrInvalidToken
	}

	return Identity{UserID: claims.Subject, Username: claims.Username}, nil
}
