package testutil

import (
	"net/http"

	"spyral/internal/platform/middleware"
)

// WithHolder adds an authenticated holder to the request context,
// simulating what the auth middleware does for authenticated requests.
func WithHolder(req *http.Request, holder string) *http.Request {
	return req.WithContext(middleware.WithHolder(req.Context(), holder))
}
