// projecthubのエントリポイント。
// プロジェクト管理APIの起動(serve)、マイグレーション(migrate)、初期データ投入(seed)を提供する。
package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"

	"github.com/nao1215/projecthub/internal/config"
	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/internal/logging"
	"github.com/spf13/cobra"
)

func main() {
	if err := newRootCmd(config.Load).Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "エラー: %s\n", err)
		os.Exit(1)
	}
}

// configLoader は設定の読み込み方法。テストでは環境変数を参照しない実装に差し替える。
type configLoader func() (config.Config, error)

func newRootCmd(load configLoader) *cobra.Command {
	root := &cobra.Command{
		Use:           "projecthub",
		Short:         "プロジェクト管理APIサーバー",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.AddCommand(
		serveCmd(load),
		migrateCmd(load),
		seedCmd(load),
	)
	return root
}

// env はサブコマンドが共有する実行環境。
type env struct {
	cfg    config.Config
	logger *slog.Logger
	db     *sql.DB
}

// setup は設定を読み込み、ロガーを設定してDBに接続する。
func setup(ctx context.Context, cmd *cobra.Command, load configLoader) (*env, error) {
	cfg, err := load()
	if err != nil {
		return nil, err
	}

	logger, err := logging.Setup(logging.Options{
		Format:  cfg.LogFormat,
		Level:   cfg.LogLevel,
		Writer:  cmd.ErrOrStderr(),
		Command: cmd.Name(),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.Open(ctx, cfg.Dialect(), cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return &env{cfg: cfg, logger: logger, db: sqlDB}, nil
}
