// Package rbac implements the resource-scoped authorization guards and
// their HTTP middleware adapters. Guards are read-only predicates over
// membership rows; they never mutate storage, and they compose so a route
// can require several of them at once.
package rbac
