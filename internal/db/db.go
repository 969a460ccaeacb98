package db

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"strings"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "modernc.org/sqlite"
)

// Dialect はデータベースの種類。
type Dialect string

const (
	// DialectSQLite はmodernc.org/sqliteによるSQLite。
	DialectSQLite Dialect = "sqlite"
	// DialectPostgres はpgxによるPostgreSQL。
	DialectPostgres Dialect = "postgres"
)

//go:embed migrations
var migrationFS embed.FS

// DBTX は*sql.DBと*sql.Txの共通インターフェース。
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries はクエリ実行オブジェクト。
type Queries struct {
	db DBTX
}

// New は新しいQueriesを生成する。
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx はトランザクション内でクエリを実行するQueriesを返す。
func (q *Queries) WithTx(tx *sql.Tx) *Queries {
	return &Queries{db: tx}
}

// ParseDialect は文字列からDialectを返す。
func ParseDialect(s string) (Dialect, error) {
	switch Dialect(strings.ToLower(strings.TrimSpace(s))) {
	case DialectSQLite, "":
		return DialectSQLite, nil
	case DialectPostgres, "postgresql", "pgx":
		return DialectPostgres, nil
	default:
		return "", fmt.Errorf("未対応のデータベースドライバです: %q", s)
	}
}

// driverName はdatabase/sqlに登録されたドライバ名を返す。
func (d Dialect) driverName() string {
	if d == DialectPostgres {
		return "pgx"
	}
	return "sqlite"
}

// Open はデータベースに接続し、疎通を確認する。
func Open(ctx context.Context, d Dialect, dsn string) (*sql.DB, error) {
	sqlDB, err := sql.Open(d.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("データベース接続に失敗: %w", err)
	}

	if d == DialectSQLite {
		// SQLiteは書き込みを直列化しないとSQLITE_BUSYになりやすい
		sqlDB.SetMaxOpenConns(1)
		if _, err := sqlDB.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("外部キー制約の有効化に失敗: %w", err)
		}
	}

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("データベースへの疎通確認に失敗: %w", err)
	}
	return sqlDB, nil
}

// Migrations は方言に対応するマイグレーションファイルのファイルシステムとディレクトリを返す。
func Migrations(d Dialect) (fs.FS, string) {
	return migrationFS, "migrations/" + string(d)
}

// IsNotFound はerrが該当行なしを表すかを返す。
func IsNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

// whereBuilder は動的なWHERE句を$N形式のプレースホルダで組み立てる。
type whereBuilder struct {
	conds []string
	args  []any
}

// add は条件を追加する。条件中の"?"は順に$Nへ置き換える。
func (w *whereBuilder) add(cond string, args ...any) {
	for _, a := range args {
		w.args = append(w.args, a)
		cond = strings.Replace(cond, "?", fmt.Sprintf("$%d", len(w.args)), 1)
	}
	w.conds = append(w.conds, cond)
}

// next は次に使うプレースホルダを返し、引数を追加する。
func (w *whereBuilder) next(arg any) string {
	w.args = append(w.args, arg)
	return fmt.Sprintf("$%d", len(w.args))
}

func (w *whereBuilder) String() string {
	if len(w.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(w.conds, " AND ")
}

// likePattern は部分一致検索用のLIKEパターンを生成する。
// ワイルドカード文字はエスケープし、大文字小文字を区別しないよう小文字化する。
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(strings.ToLower(s)) + "%"
}
