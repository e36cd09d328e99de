package testutil

import (
	"net/http"

	id "curio/pkg/domain"
	"curio/pkg/requestcontext"
)

// WithUserID adds a user ID to the request context, simulating what the
// auth middleware does for authenticated requests. An invalid UUID is
// silently ignored.
func WithUserID(req *http.Request, userID string) *http.Request {
	parsed, err := id.ParseUserID(userID)
	if err != nil {
		return req
	}
	return req.WithContext(requestcontext.WithUserID(req.Context(), parsed))
}

// WithUser adds a typed user ID to the request context.
func WithUser(req *http.Request, userID id.UserID) *http.Request {
	return req.WithContext(requestcontext.WithUserID(req.Context(), userID))
}
