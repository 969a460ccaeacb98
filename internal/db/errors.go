package db

import (
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// pgUniqueViolation はPostgreSQLの一意制約違反のSQLSTATE。
const pgUniqueViolation = "23505"

// UniqueViolation はerrが一意制約違反であれば、違反した制約の対象を返す。
// SQLiteでは"users.email"のような列名、PostgreSQLでは"users_email_key"のような制約名になる。
func UniqueViolation(err error) (string, bool) {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if pgErr.Code != pgUniqueViolation {
			return "", false
		}
		return pgErr.ConstraintName, true
	}

	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if liteErr.Code() != sqlite3.SQLITE_CONSTRAINT_UNIQUE {
			return "", false
		}
		// 例: "constraint failed: UNIQUE constraint failed: users.email (2067)"
		_, target, found := strings.Cut(liteErr.Error(), "UNIQUE constraint failed: ")
		if !found {
			return "", true
		}
		target, _, _ = strings.Cut(target, " ")
		return target, true
	}
	return "", false
}
