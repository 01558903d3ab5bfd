package auth

import "context"

// ClaimsProvider resolves the calling user from claims previously attached to
// the request context by Middleware. It satisfies domain.AuthProvider.
type ClaimsProvider struct{}

// CurrentUserID returns the authenticated user id, if any.
func (ClaimsProvider) CurrentUserID(ctx context.Context) (string, bool) {
	claims, ok := FromContext(ctx)
	if !ok || claims.Subject == "" {
		return "", false
	}
	return claims.Subject, true
}

// IsAuthenticated reports whether the context carries a signed-in user.
func (p ClaimsProvider) IsAuthenticated(ctx context.Context) bool {
	_, ok := p.CurrentUserID(ctx)
	return ok
}
