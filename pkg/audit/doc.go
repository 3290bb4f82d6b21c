// Package audit records an activity trail of mutating API requests.
// Events are captured by HTTP middleware after the response is written,
// fanned out to one or more sinks (Postgres, NDJSON file), and queried
// back per workspace through an admin-gated endpoint.
package audit
