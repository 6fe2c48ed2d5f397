package middleware

import "context"

// Context key type to avoid collisions
type contextKey string

const claimsKey contextKey = "claims"

// WithClaims stores parsed JWT claims in the context.
func WithClaims(ctx context.Context, claims *Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

// GetClaimsFromContext retrieves claims stored by RequireAdmin, or nil.
func GetClaimsFromContext(ctx context.Context) *Claims {
	if val := ctx.Value(claimsKey); val != nil {
		if claims, ok := val.(*Claims); ok {
			return claims
		}
	}
	return nil
}
