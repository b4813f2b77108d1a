package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

const pgUniqueViolation = "23505"

// Unique indexes enforced by the schema, paired with the column path
// sqlite reports for the same constraint so the test databases match.
const (
	ConstraintUsersProviderUID = "uq_users_provider_uid"
	ConstraintUsersEmail       = "uq_users_email"
	ConstraintUserRolesPair    = "uq_user_roles_user_role"
)

// IsProviderUIDConflict reports whether err is a unique violation on the
// users provider_uid index.
func IsProviderUIDConflict(err error) bool {
	return IsUniqueViolation(err, ConstraintUsersProviderUID, "users.provider_uid")
}

// IsEmailConflict reports whether err is a unique violation on the users
// email index.
func IsEmailConflict(err error) bool {
	return IsUniqueViolation(err, ConstraintUsersEmail, "users.email")
}

// IsUniqueViolation reports whether the provided error is a unique-constraint
// violation. It understands pgx and lib/pq typed errors and falls back to
// message sniffing so the sqlite-backed test databases behave the same way.
// With no constraint names every unique violation matches; with names the
// match narrows to violations of one of those constraints (pass both the
// postgres index name and the sqlite column path to cover both backends).
func IsUniqueViolation(err error, constraints ...string) bool {
	if err == nil {
		return false
	}

	var pgxErr *pgconn.PgError
	if errors.As(err, &pgxErr) {
		if pgxErr.Code != pgUniqueViolation {
			return false
		}
		return matchesConstraint(pgxErr.ConstraintName, constraints)
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if string(pqErr.Code) != pgUniqueViolation {
			return false
		}
		return matchesConstraint(pqErr.Constraint, constraints)
	}

	msg := err.Error()
	if !strings.Contains(msg, "duplicate key value") &&
		!strings.Contains(msg, "UNIQUE constraint failed") {
		return false
	}
	if len(constraints) == 0 {
		return true
	}
	for _, name := range constraints {
		if strings.Contains(msg, name) {
			return true
		}
	}
	return false
}

func matchesConstraint(name string, constraints []string) bool {
	if len(constraints) == 0 {
		return true
	}
	for _, c := range constraints {
		if name == c {
			return true
		}
	}
	return false
}
