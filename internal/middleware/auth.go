package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/forgo/muster/internal/model"
	"github.com/forgo/muster/pkg/jwt"
)

// TokenValidator defines the interface for token validation
type TokenValidator interface {
	Validate(token string) (*jwt.Claims, error)
}

const (
	// ClaimsKey is the context key for JWT claims
	ClaimsKey contextKey = "claims"
	// MemberKey is the context key for the authenticated roster member
	MemberKey contextKey = "member"
)

// Auth returns a middleware that requires a valid bearer token
func Auth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				model.NewUnauthorizedError("missing or malformed authorization header").WriteJSON(w)
				return
			}

			claims, err := validator.Validate(token)
			if err != nil {
				switch {
				case errors.Is(err, jwt.ErrTokenExpired):
					model.NewUnauthorizedError("token expired").WithCode(model.ErrCodeTokenExpired).WriteJSON(w)
				case errors.Is(err, jwt.ErrInvalidSignature):
					model.NewUnauthorizedError("invalid token signature").WithCode(model.ErrCodeTokenInvalid).WriteJSON(w)
				default:
					model.NewUnauthorizedError("invalid token").WithCode(model.ErrCodeTokenInvalid).WriteJSON(w)
				}
				return
			}

			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// OptionalAuth is like Auth but doesn't require authentication
// It will set user info in context if token is present and valid
func OptionalAuth(validator TokenValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				next.ServeHTTP(w, r)
				return
			}
			claims, err := validator.Validate(token)
			if err != nil {
				next.ServeHTTP(w, r)
				return
			}
			next.ServeHTTP(w, r.WithContext(withClaims(r.Context(), claims)))
		})
	}
}

// GetMember returns the authenticated member; ok is false for anonymous requests
func GetMember(ctx context.Context) (model.Member, bool) {
	m, ok := ctx.Value(MemberKey).(model.Member)
	return m, ok
}

// GetUserID extracts the user ID from context
func GetUserID(ctx context.Context) string {
	m, _ := GetMember(ctx)
	return m.UserID
}

// GetClaims extracts the JWT claims from context
func GetClaims(ctx context.Context) *jwt.Claims {
	if claims, ok := ctx.Value(ClaimsKey).(*jwt.Claims); ok {
		return claims
	}
	return nil
}

// WithMember stores m as the authenticated member. Used by Auth and tests.
func WithMember(ctx context.Context, m model.Member) context.Context {
	return context.WithValue(ctx, MemberKey, m)
}

func withClaims(ctx context.Context, claims *jwt.Claims) context.Context {
	ctx = context.WithValue(ctx, ClaimsKey, claims)
	return WithMember(ctx, model.Member{
		UserID:      claims.UserID,
		DisplayName: claims.DisplayName,
		Email:       claims.Email,
	})
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return "", false
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") || strings.TrimSpace(parts[1]) == "" {
		return "", false
	}
	return strings.TrimSpace(parts[1]), true
}
