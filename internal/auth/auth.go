package auth

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const issuer = "maptss"

// Claims represents JWT claims carried by session tokens. The token ID is the
// session ID.
type Claims struct {
	Role Role `json:"role"`
	jwt.RegisteredClaims
}

func signToken(secret []byte, sess Session) (string, error) {
	claims := Claims{
		Role: sess.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   sess.UserID,
			IssuedAt:  jwt.NewNumericDate(sess.LoginTime),
			ExpiresAt: jwt.NewNumericDate(sess.ExpiresAt),
			ID:        sess.ID,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// parseToken verifies signature and claims against now.
func parseToken(secret []byte, token string, now time.Time) (*Claims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}
	parsed, err := jwt.ParseWithClaims(token, &Claims{}, func(t *jwt.Token) (any, error) {
		if t.Method != jwt.SigningMethodHS256 {
			return nil, ErrInvalidToken
		}
		return secret, nil
	}, jwt.WithTimeFunc(func() time.Time { return now }), jwt.WithIssuer(issuer), jwt.WithExpirationRequired())
	if errors.Is(err, jwt.ErrTokenExpired) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || strings.TrimSpace(claims.Subject) == "" || claims.ID == "" {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

type ctxKey string

const (
	userIDKey ctxKey = "auth_user_id"
	roleKey   ctxKey = "auth_role"
)

// ContextWithUser stores user identity in the context.
func ContextWithUser(ctx context.Context, userID string, role Role) context.Context {
	ctx = context.WithValue(ctx, userIDKey, strings.TrimSpace(userID))
	if role != "" {
		ctx = context.WithValue(ctx, roleKey, role)
	}
	return ctx
}

// UserIDFromContext extracts the authenticated user ID from context.
func UserIDFromContext(ctx context.Context) (string, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(userIDKey).(string)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return v, true
}

// RoleFromContext returns the role stored in context.
func RoleFromContext(ctx context.Context) (Role, bool) {
	if ctx == nil {
		return "", false
	}
	v, ok := ctx.Value(roleKey).(Role)
	return v, ok && v != ""
}
