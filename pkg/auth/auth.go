// Package auth verifies bearer tokens and resolves the calling user.
// Identity records live outside the engine; UserStore is the read-only
// oracle the verifier consults.
package auth

import (
	"context"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	apperrors "github.com/bpmflow/bpmflow/pkg/errors"
	"github.com/bpmflow/bpmflow/pkg/models"
)

// Claims is the token payload
type Claims struct {
	UserID int64 `json:"user_id"`
	RoleID int64 `json:"role_id"`
	jwt.RegisteredClaims
}

// UserStore loads user records for verification
type UserStore interface {
	GetUser(ctx context.Context, id int64) (*models.User, error)
}

// Verifier validates HMAC-signed bearer tokens and checks the subject is
// still an active user
type Verifier struct {
	secret []byte
	users  UserStore
	ttl    time.Duration
}

// NewVerifier creates a token verifier
func NewVerifier(secret string, users UserStore, ttl time.Duration) *Verifier {
	return &Verifier{secret: []byte(secret), users: users, ttl: ttl}
}

// IssueToken mints a token for a user. Exposed for service-to-service use
// and tests; interactive login lives outside the engine.
func (v *Verifier) IssueToken(userID, roleID int64) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RoleID: roleID,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(v.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// Verify parses a bearer token and returns the active user it names.
// Expired or tampered tokens, unknown users and inactive accounts all
// fail with an auth error.
func (v *Verifier) Verify(ctx context.Context, header string) (*models.User, error) {
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, apperrors.Auth("missing bearer token")
	}
	raw := strings.TrimPrefix(header, "Bearer ")
	if raw == "" {
		return nil, apperrors.Auth("missing bearer token")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, apperrors.Auth("unexpected signing method")
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return nil, apperrors.Auth("invalid token")
	}

	user, err := v.users.GetUser(ctx, claims.UserID)
	if err != nil {
		return nil, apperrors.Auth("unknown user")
	}
	if !user.IsActive() {
		return nil, apperrors.Auth("user is not active")
	}
	return user, nil
}
