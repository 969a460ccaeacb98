// Package config はプロセス環境変数からアプリケーション設定を読み込む。
// 設定はCLIの起動時に一度だけ読み込み、各コンポーネントへ注入する。
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/db"
)

// Config はアプリケーション全体の設定。
type Config struct {
	// Port はHTTPサーバーのリッスンポート。
	Port string `env:"PORT" envDefault:"8080"`
	// DatabaseDriver は"sqlite"または"postgres"。
	DatabaseDriver string `env:"DATABASE_DRIVER" envDefault:"sqlite"`
	// DatabaseURL はドライバに渡す接続文字列。
	DatabaseURL string `env:"DATABASE_URL" envDefault:"file:projecthub.db?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"`

	// JWTSecret はアクセストークンの署名用シークレット。
	// 空のままでも起動はできるが、認証は全てconfiguration_errorになる。
	JWTSecret string `env:"JWT_SECRET"`
	// JWTRefreshSecret はリフレッシュトークンの署名用シークレット。空ならJWTSecretを使う。
	JWTRefreshSecret string        `env:"JWT_REFRESH_SECRET"`
	JWTAccessTTL     time.Duration `env:"JWT_ACCESS_TTL" envDefault:"24h"`
	JWTRefreshTTL    time.Duration `env:"JWT_REFRESH_TTL" envDefault:"168h"`
	JWTIssuer        string        `env:"JWT_ISSUER" envDefault:"projecthub"`

	// CORSAllowedOrigins はカンマ区切りの許可オリジン。"*"で全て許可する。
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:3000" envSeparator:","`

	LogFormat string `env:"LOG_FORMAT" envDefault:"json"`
	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	// GinMode はgin.SetModeに渡す値。
	GinMode string `env:"GIN_MODE" envDefault:"release"`
}

// Load はカレントディレクトリの.envを読み込んだうえで、環境変数から設定を構築する。
// .envが存在しない場合は無視する。
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil {
		var pathErr *os.PathError
		if !errors.As(err, &pathErr) {
			return Config{}, fmt.Errorf(".envの読み込みに失敗: %w", err)
		}
	}
	return parse(env.Options{})
}

// Parse は与えられた環境変数のマップから設定を構築する。
// プロセスの環境変数は参照しない。
func Parse(environ map[string]string) (Config, error) {
	if environ == nil {
		environ = map[string]string{}
	}
	return parse(env.Options{Environment: environ})
}

func parse(opts env.Options) (Config, error) {
	var cfg Config
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("環境変数の解析に失敗: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if _, err := db.ParseDialect(c.DatabaseDriver); err != nil {
		return err
	}
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return errors.New("DATABASE_URLが空です")
	}
	if c.JWTAccessTTL <= 0 || c.JWTRefreshTTL <= 0 {
		return errors.New("JWT_ACCESS_TTLとJWT_REFRESH_TTLは正の値である必要があります")
	}

	// gin.SetModeは未知の値でpanicするため起動前に弾く
	c.GinMode = strings.ToLower(strings.TrimSpace(c.GinMode))
	switch c.GinMode {
	case gin.DebugMode, gin.ReleaseMode, gin.TestMode:
	default:
		return fmt.Errorf("GIN_MODEはdebug、release、testのいずれかである必要があります: %q", c.GinMode)
	}

	origins := c.CORSAllowedOrigins[:0]
	for _, o := range c.CORSAllowedOrigins {
		if o = strings.TrimSpace(o); o != "" {
			origins = append(origins, o)
		}
	}
	c.CORSAllowedOrigins = origins
	return nil
}

// Dialect はDatabaseDriverに対応するDialectを返す。
func (c Config) Dialect() db.Dialect {
	d, err := db.ParseDialect(c.DatabaseDriver)
	if err != nil {
		return db.DialectSQLite
	}
	return d
}

// TokenConfig はトークン発行に必要な設定を返す。
func (c Config) TokenConfig() auth.TokenConfig {
	return auth.TokenConfig{
		AccessSecret:  c.JWTSecret,
		RefreshSecret: c.JWTRefreshSecret,
		AccessTTL:     c.JWTAccessTTL,
		RefreshTTL:    c.JWTRefreshTTL,
	}
}
