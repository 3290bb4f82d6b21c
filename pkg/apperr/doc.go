// Package apperr defines the application error taxonomy shared by services,
// authorization guards, and the HTTP boundary.
//
// Each error carries a Kind that maps to an HTTP status (400/401/404/409/500)
// and an optional list of field-level issues. Code below the HTTP layer
// returns *apperr.Error values; the single translation point in pkg/httputil
// renders them as the wire error body. Untyped errors are masked as
// InternalServerError so internal detail never reaches a client.
package apperr
