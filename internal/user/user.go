package user

import (
	"database/sql"
	"time"

	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/db"
)

// User はAPIで返すユーザー情報。パスワードハッシュは含まない。
type User struct {
	ID          int64     `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	FirstName   string    `json:"first_name"`
	MiddleName  *string   `json:"middle_name,omitempty"`
	LastName    string    `json:"last_name"`
	IsSuperuser bool      `json:"is_superuser"`
	IsActive    bool      `json:"is_active"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Principal はUserをAuth Gateの主体に変換する。
func (u User) Principal() auth.Principal {
	return auth.Principal{
		ID:          u.ID,
		Username:    u.Username,
		Email:       u.Email,
		FirstName:   u.FirstName,
		MiddleName:  u.MiddleName,
		LastName:    u.LastName,
		IsSuperuser: u.IsSuperuser,
		IsActive:    u.IsActive,
	}
}

func fromRow(r db.User) User {
	return User{
		ID:          r.ID,
		Username:    r.Username,
		Email:       r.Email,
		FirstName:   r.FirstName,
		MiddleName:  nullStringPtr(r.MiddleName),
		LastName:    r.LastName,
		IsSuperuser: r.IsSuperuser,
		IsActive:    r.IsActive,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

// nullStringPtr は空文字列もNULLと同様に未設定として扱う。
func nullStringPtr(s sql.NullString) *string {
	if !s.Valid || s.String == "" {
		return nil
	}
	v := s.String
	return &v
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}
