// Package httputil provides HTTP handler utilities: JSON encoding and
// decoding, request validation, the error-body translation boundary, and
// generic middleware (logging, recovery, request IDs, CORS, body limits).
package httputil
