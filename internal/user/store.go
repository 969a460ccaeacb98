package user

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/db"
)

// Store はusersテーブルへのアクセスを提供する。
type Store struct {
	db *sql.DB
	q  *db.Queries
}

// NewStore は新しいStoreを生成する。
func NewStore(sqlDB *sql.DB) *Store {
	return &Store{db: sqlDB, q: db.New(sqlDB)}
}

// withTx はfnを1つのトランザクション内で実行する。fnがエラーを返した場合はロールバックする。
func (s *Store) withTx(ctx context.Context, fn func(q *db.Queries) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("トランザクションの開始に失敗: %w", err)
	}
	if err := fn(s.q.WithTx(tx)); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("トランザクションのコミットに失敗: %w", err)
	}
	return nil
}

// FindByID はIDでユーザーを取得する。該当なしはErrNotFound。
func (s *Store) FindByID(ctx context.Context, id int64) (db.User, error) {
	u, err := s.q.GetUserByID(ctx, id)
	if err != nil {
		return db.User{}, notFound(err, "ID %d", id)
	}
	return u, nil
}

// FindByEmail はメールアドレスでユーザーを取得する。該当なしはErrNotFound。
func (s *Store) FindByEmail(ctx context.Context, email string) (db.User, error) {
	u, err := s.q.GetUserByEmail(ctx, email)
	if err != nil {
		return db.User{}, notFound(err, "メールアドレス %q", email)
	}
	return u, nil
}

// FindByUsername はユーザー名でユーザーを取得する。該当なしはErrNotFound。
func (s *Store) FindByUsername(ctx context.Context, username string) (db.User, error) {
	u, err := s.q.GetUserByUsername(ctx, username)
	if err != nil {
		return db.User{}, notFound(err, "ユーザー名 %q", username)
	}
	return u, nil
}

// FindPrincipalByID はauth.PrincipalFinderを実装する。
// 無効化済みのユーザーもそのまま返し、判定はGateに任せる。
func (s *Store) FindPrincipalByID(ctx context.Context, id int64) (auth.Principal, error) {
	u, err := s.q.GetUserByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return auth.Principal{}, fmt.Errorf("ID %d: %w", id, auth.ErrPrincipalNotFound)
		}
		return auth.Principal{}, fmt.Errorf("ユーザーの取得に失敗: %w", err)
	}
	return fromRow(u).Principal(), nil
}

// emailTaken はメールアドレスが登録済みかを返す。
func (s *Store) emailTaken(ctx context.Context, email string) (bool, error) {
	return exists(s.FindByEmail(ctx, email))
}

// usernameTaken はユーザー名が使用済みかを返す。
func (s *Store) usernameTaken(ctx context.Context, username string) (bool, error) {
	return exists(s.FindByUsername(ctx, username))
}

func exists(_ db.User, err error) (bool, error) {
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, ErrNotFound):
		return false, nil
	default:
		return false, err
	}
}

func notFound(err error, format string, args ...any) error {
	if db.IsNotFound(err) {
		return fmt.Errorf(format+": %w", append(args, ErrNotFound)...)
	}
	return fmt.Errorf("ユーザーの取得に失敗: %w", err)
}

// conflict は一意制約違反を重複エラーに変換する。それ以外のエラーはnilを返す。
// 事前の重複確認をすり抜けた同時登録はここで検出する。
func conflict(err error) error {
	target, ok := db.UniqueViolation(err)
	if !ok {
		return nil
	}
	switch {
	case strings.Contains(target, "email"):
		return ErrEmailTaken
	case strings.Contains(target, "username"):
		return ErrUsernameTaken
	}
	return fmt.Errorf("%w: %s", ErrValidation, target)
}
