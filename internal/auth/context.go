package auth

import "context"

type sessionContextKey struct{}

// ContextWithSession attaches the session and its user identity to ctx.
func ContextWithSession(ctx context.Context, sess Session) context.Context {
	ctx = ContextWithUser(ctx, sess.UserID, sess.Role)
	return context.WithValue(ctx, sessionContextKey{}, &sess)
}

// SessionFromContext extracts a session previously attached with ContextWithSession.
func SessionFromContext(ctx context.Context) (Session, bool) {
	if ctx == nil {
		return Session{}, false
	}
	v, ok := ctx.Value(sessionContextKey{}).(*Session)
	if !ok || v == nil {
		return Session{}, false
	}
	return *v, true
}
