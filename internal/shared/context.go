package shared

import "context"

type ownerContextKey struct{}

// ContextWithOwner stores the authenticated user id in context.
func ContextWithOwner(ctx context.Context, userID int64) context.Context {
	return context.WithValue(ctx, ownerContextKey{}, userID)
}

// OwnerFromContext extracts the authenticated user id from context.
// The second return value is false when no user is attached.
func OwnerFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(ownerContextKey{}).(int64)
	return id, ok
}
