// Package authenticator declares the middleware contract the router needs
// from the authentication layer, so tests can swap in a pass-through.
package authenticator

import "net/http"

// Authenticator guards protected routes.
type Authenticator interface {
	AuthenticateUser(h http.Handler) http.Handler
}
