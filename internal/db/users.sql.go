package db

import (
	"context"
	"database/sql"
	"time"
)

const userColumns = `id, username, email, password, first_name, middle_name, last_name,
    is_superuser, is_active, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (User, error) {
	var u User
	err := row.Scan(
		&u.ID,
		&u.Username,
		&u.Email,
		&u.Password,
		&u.FirstName,
		&u.MiddleName,
		&u.LastName,
		&u.IsSuperuser,
		&u.IsActive,
		&u.CreatedAt,
		&u.UpdatedAt,
	)
	return u, err
}

const createUser = `INSERT INTO users (
    username, email, password, first_name, middle_name, last_name,
    is_superuser, is_active, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $9)
RETURNING ` + userColumns

// CreateUserParams はCreateUserの引数。
type CreateUserParams struct {
	Username    string
	Email       string
	Password    string
	FirstName   string
	MiddleName  sql.NullString
	LastName    string
	IsSuperuser bool
	IsActive    bool
	CreatedAt   time.Time
}

// CreateUser はユーザーを作成する。
func (q *Queries) CreateUser(ctx context.Context, arg CreateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, createUser,
		arg.Username,
		arg.Email,
		arg.Password,
		arg.FirstName,
		arg.MiddleName,
		arg.LastName,
		arg.IsSuperuser,
		arg.IsActive,
		arg.CreatedAt,
	)
	return scanUser(row)
}

const getUserByID = `SELECT ` + userColumns + ` FROM users WHERE id = $1`

// GetUserByID はIDでユーザーを取得する。
func (q *Queries) GetUserByID(ctx context.Context, id int64) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByID, id))
}

const getUserByEmail = `SELECT ` + userColumns + ` FROM users WHERE email = $1`

// GetUserByEmail はメールアドレスでユーザーを取得する。
func (q *Queries) GetUserByEmail(ctx context.Context, email string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByEmail, email))
}

const getUserByUsername = `SELECT ` + userColumns + ` FROM users WHERE username = $1`

// GetUserByUsername はユーザー名でユーザーを取得する。
func (q *Queries) GetUserByUsername(ctx context.Context, username string) (User, error) {
	return scanUser(q.db.QueryRowContext(ctx, getUserByUsername, username))
}

// UserFilter はユーザー一覧の絞り込み条件。
type UserFilter struct {
	// Search はユーザー名・メール・氏名に対する部分一致（大文字小文字を区別しない）。
	Search string
	// IsActive は有効フラグでの絞り込み。nilの場合は絞り込まない。
	IsActive *bool
	// IsSuperuser は管理者フラグでの絞り込み。nilの場合は絞り込まない。
	IsSuperuser *bool
}

func (f UserFilter) where() *whereBuilder {
	w := &whereBuilder{}
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(LOWER(username) LIKE ? ESCAPE '\' OR LOWER(email) LIKE ? ESCAPE '\'
    OR LOWER(first_name) LIKE ? ESCAPE '\' OR LOWER(last_name) LIKE ? ESCAPE '\')`, p, p, p, p)
	}
	if f.IsActive != nil {
		w.add("is_active = ?", *f.IsActive)
	}
	if f.IsSuperuser != nil {
		w.add("is_superuser = ?", *f.IsSuperuser)
	}
	return w
}

// ListUsers は条件に一致するユーザーを作成日時の新しい順に取得する。
func (q *Queries) ListUsers(ctx context.Context, f UserFilter, limit, offset int) ([]User, error) {
	w := f.where()
	query := `SELECT ` + userColumns + ` FROM users` + w.String() +
		` ORDER BY created_at DESC, id DESC LIMIT ` + w.next(limit) + ` OFFSET ` + w.next(offset)

	rows, err := q.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var users []User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CountUsers は条件に一致するユーザー数を返す。
func (q *Queries) CountUsers(ctx context.Context, f UserFilter) (int64, error) {
	w := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM users`+w.String(), w.args...).Scan(&n)
	return n, err
}

const updateUser = `UPDATE users SET
    username = $2,
    email = $3,
    first_name = $4,
    middle_name = $5,
    last_name = $6,
    is_superuser = $7,
    is_active = $8,
    updated_at = $9
WHERE id = $1
RETURNING ` + userColumns

// UpdateUserParams はUpdateUserの引数。パスワード以外の全列を上書きする。
type UpdateUserParams struct {
	ID          int64
	Username    string
	Email       string
	FirstName   string
	MiddleName  sql.NullString
	LastName    string
	IsSuperuser bool
	IsActive    bool
	UpdatedAt   time.Time
}

// UpdateUser はユーザーを更新する。
func (q *Queries) UpdateUser(ctx context.Context, arg UpdateUserParams) (User, error) {
	row := q.db.QueryRowContext(ctx, updateUser,
		arg.ID,
		arg.Username,
		arg.Email,
		arg.FirstName,
		arg.MiddleName,
		arg.LastName,
		arg.IsSuperuser,
		arg.IsActive,
		arg.UpdatedAt,
	)
	return scanUser(row)
}

const updateUserPassword = `UPDATE users SET password = $2, updated_at = $3 WHERE id = $1`

// UpdateUserPassword はパスワードハッシュを更新する。
func (q *Queries) UpdateUserPassword(ctx context.Context, id int64, password string, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, updateUserPassword, id, password, updatedAt)
	return err
}

const setUserActive = `UPDATE users SET is_active = $2, updated_at = $3 WHERE id = $1`

// SetUserActive は有効フラグを更新する。更新件数を返す。
func (q *Queries) SetUserActive(ctx context.Context, id int64, active bool, updatedAt time.Time) (int64, error) {
	res, err := q.db.ExecContext(ctx, setUserActive, id, active, updatedAt)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
