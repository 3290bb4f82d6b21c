// Package postgres owns the database connection pool and the ordered schema
// migrations. The unique constraints created here (workspace membership,
// pending invitations, team identifiers) are the concurrency backstop for
// the application-level checks above them.
package postgres
