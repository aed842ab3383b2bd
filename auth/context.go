package auth

import "context"

type contextKey string

const claimsKey contextKey = "carbon-auth-claims"

// WithClaims stores claims on the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// FromContext retrieves claims stored by WithClaims.
func FromContext(ctx context.Context) (*Claims, bool) {
	claims, ok := ctx.Value(claimsKey).(*Claims)
	return claims, ok && claims != nil
}

// UserID returns the authenticated user's id, or false when unauthenticated.
func UserID(ctx context.Context) (uint, bool) {
	claims, ok := FromContext(ctx)
	if !ok {
		return 0, false
	}
	return claims.UserID, true
}
