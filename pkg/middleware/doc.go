// Package middleware provides the request authentication layer: bearer
// token extraction, verification, and identity propagation via the
// request context.
package middleware
