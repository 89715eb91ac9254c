package repository

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// ErrDuplicateChunk is returned when a chunk index already exists for its
// document.
var ErrDuplicateChunk = errors.New("duplicate chunk index for document")

const uniqueViolation = "23505"

// isUniqueViolation reports whether Postgres rejected a write on a unique index.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == uniqueViolation
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}
