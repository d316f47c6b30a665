package identity

import "context"

type userCtxKey string

const ContextUserKey userCtxKey = "auth_user"

// UserFromContext reads the authenticated user the auth middleware stored on
// the request context.
func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
