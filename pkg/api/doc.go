// Package api exposes the HTTP surface: auth, user profile, workspace,
// member, invitation, and team endpoints. Handlers hold their service
// dependencies and register routes on a gorilla/mux router; authorization
// guards are applied per route as middleware.
package api
