package repo

import (
	"errors"

	"github.com/jackc/pgx/v5/pgconn"
)

// Ошибки репозиториев.
var (
	// ErrNotFound — задача или run не найдены.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists — run с таким execution id уже сохранён.
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidState — статус задачи не допускает операцию.
	ErrInvalidState = errors.New("invalid state")
)

// codeUniqueViolation — SQLSTATE unique_violation.
const codeUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == codeUniqueViolation
}
