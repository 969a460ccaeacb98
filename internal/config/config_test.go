package config

import (
	"reflect"
	"testing"
	"time"

	"github.com/nao1215/projecthub/internal/db"
)

// TestParse はParse関数を検証する。
func TestParse(t *testing.T) {
	t.Parallel()

	t.Run("未設定の場合は既定値が使われること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Parse(nil)
		if err != nil {
			t.Fatalf("Parse()でエラーが発生: %v", err)
		}
		if cfg.Port != "8080" {
			t.Errorf("Port = %q, want %q", cfg.Port, "8080")
		}
		if cfg.Dialect() != db.DialectSQLite {
			t.Errorf("Dialect() = %q, want %q", cfg.Dialect(), db.DialectSQLite)
		}
		if cfg.JWTAccessTTL != 24*time.Hour || cfg.JWTRefreshTTL != 168*time.Hour {
			t.Errorf("TTL = %v / %v, want 24h / 168h", cfg.JWTAccessTTL, cfg.JWTRefreshTTL)
		}
		if cfg.JWTSecret != "" {
			t.Errorf("JWTSecret = %q, want empty", cfg.JWTSecret)
		}
		if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"http://localhost:3000"}) {
			t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
		}
	})

	t.Run("環境変数の値が反映されること", func(t *testing.T) {
		t.Parallel()

		cfg, err := Parse(map[string]string{
			"PORT":                 "9090",
			"DATABASE_DRIVER":      "postgresql",
			"DATABASE_URL":         "postgres://localhost/projecthub",
			"JWT_SECRET":           "access",
			"JWT_REFRESH_SECRET":   "refresh",
			"JWT_ACCESS_TTL":       "15m",
			"CORS_ALLOWED_ORIGINS": "https://a.example, https://b.example,,",
			"LOG_FORMAT":           "text",
		})
		if err != nil {
			t.Fatalf("Parse()でエラーが発生: %v", err)
		}
		if cfg.Port != "9090" || cfg.LogFormat != "text" {
			t.Errorf("Port = %q, LogFormat = %q", cfg.Port, cfg.LogFormat)
		}
		if cfg.Dialect() != db.DialectPostgres {
			t.Errorf("Dialect() = %q, want %q", cfg.Dialect(), db.DialectPostgres)
		}
		if !reflect.DeepEqual(cfg.CORSAllowedOrigins, []string{"https://a.example", "https://b.example"}) {
			t.Errorf("CORSAllowedOrigins = %v", cfg.CORSAllowedOrigins)
		}

		tc := cfg.TokenConfig()
		if tc.AccessSecret != "access" || tc.RefreshSecret != "refresh" || tc.AccessTTL != 15*time.Minute {
			t.Errorf("TokenConfig() = %+v", tc)
		}
	})

	t.Run("未対応のドライバはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := Parse(map[string]string{"DATABASE_DRIVER": "mysql"}); err == nil {
			t.Error("未対応のドライバでエラーが返るべき")
		}
	})

	t.Run("不正な期間はエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := Parse(map[string]string{"JWT_ACCESS_TTL": "soon"}); err == nil {
			t.Error("解析できない期間でエラーが返るべき")
		}
		if _, err := Parse(map[string]string{"JWT_REFRESH_TTL": "-1h"}); err == nil {
			t.Error("負の期間でエラーが返るべき")
		}
	})

	t.Run("未知のGIN_MODEはエラーになること", func(t *testing.T) {
		t.Parallel()

		if _, err := Parse(map[string]string{"GIN_MODE": "prod"}); err == nil {
			t.Error("未知のGIN_MODEでエラーが返るべき")
		}
		cfg, err := Parse(map[string]string{"GIN_MODE": " Debug "})
		if err != nil {
			t.Fatalf("Parse()でエラーが発生: %v", err)
		}
		if cfg.GinMode != "debug" {
			t.Errorf("GinMode = %q, want debug", cfg.GinMode)
		}
	})
}
