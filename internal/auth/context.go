package auth

import (
	"context"

	"example.com/fieldactivity/internal/domain"
)

type contextKey string

const claimsKey contextKey = "field-activity-auth-claims"

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// FromContext retrieves claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// PrincipalFromContext returns the caller, or false when unauthenticated.
func PrincipalFromContext(ctx context.Context) (domain.Principal, bool) {
	claims, ok := FromContext(ctx)
	if !ok {
		return domain.Principal{}, false
	}
	return claims.Principal(), true
}
