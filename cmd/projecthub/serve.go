package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/nao1215/projecthub/internal/api"
	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/pkg/migration"
	"github.com/spf13/cobra"
)

func serveCmd(load configLoader) *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "HTTPサーバーを起動する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			e, err := setup(ctx, cmd, load)
			if err != nil {
				return err
			}
			defer e.db.Close()

			if e.cfg.JWTSecret == "" {
				e.logger.Warn("JWT_SECRETが設定されていません。認証が必要なリクエストは全て失敗します")
			}

			if migrate {
				fsys, dir := db.Migrations(e.cfg.Dialect())
				if _, err := migration.Run(ctx, e.db, fsys, dir); err != nil {
					return fmt.Errorf("マイグレーションに失敗: %w", err)
				}
			}

			gin.SetMode(e.cfg.GinMode)
			server, err := api.NewServer(e.cfg, e.db, api.WithLogger(e.logger))
			if err != nil {
				return fmt.Errorf("サーバーの初期化に失敗: %w", err)
			}
			return server.Run(ctx)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "起動前に未適用のマイグレーションを適用する")
	return cmd
}
