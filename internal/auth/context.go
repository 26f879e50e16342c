package auth

import "context"

type contextKey struct{}

// AuthContext identifies the caller of a request. FamilyID is the family the
// client explicitly selected and is only set after membership was verified.
type AuthContext struct {
	UserID    string
	Email     string
	SessionID string
	FamilyID  string
}

func WithAuth(ctx context.Context, ac AuthContext) context.Context {
	return context.WithValue(ctx, contextKey{}, ac)
}

func FromContext(ctx context.Context) (AuthContext, bool) {
	ac, ok := ctx.Value(contextKey{}).(AuthContext)
	return ac, ok
}

func UserID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.UserID
}

func FamilyID(ctx context.Context) string {
	ac, ok := FromContext(ctx)
	if !ok {
		return ""
	}
	return ac.FamilyID
}
