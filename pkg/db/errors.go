package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err is a unique constraint violation from
// Postgres (pgx or lib/pq) or SQLite. A non-empty constraintName must match
// the violated constraint; SQLite only exposes it inside the message.
func IsUniqueViolation(err error, constraintName string) bool {
	constraint, message, ok := uniqueViolation(err)
	switch {
	case !ok:
		return false
	case constraintName == "":
		return true
	case constraint != "":
		return constraint == constraintName
	default:
		return strings.Contains(message, constraintName)
	}
}

// IsUniqueViolationOn is IsUniqueViolation over several accepted names.
func IsUniqueViolationOn(err error, names ...string) bool {
	for _, name := range names {
		if IsUniqueViolation(err, name) {
			return true
		}
	}
	return false
}

func uniqueViolation(err error) (constraint, message string, ok bool) {
	if err == nil {
		return "", "", false
	}
	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		return pgxErr.ConstraintName, pgxErr.Message, pgxErr.Code == pgUniqueViolation
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Constraint, pqErr.Message, string(pqErr.Code) == pgUniqueViolation
	}
	message = err.Error()
	return "", message, strings.Contains(message, "duplicate key value") || strings.Contains(message, "UNIQUE constraint failed")
}
