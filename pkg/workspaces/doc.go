// Package workspaces implements the workspace domain: workspace CRUD with
// by-url lookup, membership management, and the invitation lifecycle.
// Invitations are single rows deleted on every terminal transition; claim
// operations run in a transaction with the row locked so concurrent claims
// serialize.
package workspaces
