package apperr

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

const pgUniqueViolation = "23505"

// IsUniqueViolation reports whether err comes from a unique constraint.
func IsUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// FromDB translates a gorm error. notFound is the message used for a missing row.
func FromDB(err error, notFound string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		return NotFound(notFound)
	case IsUniqueViolation(err):
		return Wrap(KindConflict, "Duplicate field value, please use another value", err)
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal("database error", err)
}
