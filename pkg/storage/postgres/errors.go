package postgres

import (
	"errors"

	"github.com/lib/pq"
)

// Postgres error codes for constraint violations.
const (
	uniqueViolation     = "23505"
	foreignKeyViolation = "23503"
)

// IsUniqueViolation reports whether err is a unique constraint violation.
// Stores map these to ConflictError so check-then-insert races surface as
// conflicts rather than 500s.
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation
}

// IsForeignKeyViolation reports whether err is a foreign key violation.
// Stores map these to NotFoundError when an insert references a row that
// does not exist.
func IsForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == foreignKeyViolation
}
