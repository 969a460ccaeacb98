// Package dbtest はテスト用にマイグレーション済みのインメモリSQLiteを提供する。
package dbtest

import (
	"database/sql"
	"testing"

	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/pkg/migration"
)

// New はマイグレーション済みのインメモリSQLiteを開き、テスト終了時に閉じる。
func New(t *testing.T) *sql.DB {
	t.Helper()

	sqlDB, err := db.Open(t.Context(), db.DialectSQLite, ":memory:")
	if err != nil {
		t.Fatalf("インメモリDBの作成に失敗: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })

	fsys, dir := db.Migrations(db.DialectSQLite)
	if _, err := migration.Run(t.Context(), sqlDB, fsys, dir); err != nil {
		t.Fatalf("マイグレーションに失敗: %v", err)
	}
	return sqlDB
}
