package main

import (
	"fmt"

	"github.com/nao1215/projecthub/internal/auth"
	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/internal/project"
	"github.com/nao1215/projecthub/internal/seed"
	"github.com/nao1215/projecthub/internal/user"
	"github.com/nao1215/projecthub/pkg/migration"
	"github.com/spf13/cobra"
)

func seedCmd(load configLoader) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "管理者ユーザーとサンプルプロジェクトを作成する",
		Long:  "管理者ユーザー(" + seed.AdminEmail + ")とサンプルプロジェクトを作成する。管理者が既に存在する場合は何もしない。",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			e, err := setup(ctx, cmd, load)
			if err != nil {
				return err
			}
			defer e.db.Close()

			fsys, dir := db.Migrations(e.cfg.Dialect())
			if _, err := migration.Run(ctx, e.db, fsys, dir); err != nil {
				return fmt.Errorf("マイグレーションに失敗: %w", err)
			}

			q := db.New(e.db)
			store := user.NewStore(e.db)
			tokens := auth.NewTokenIssuer(auth.NewCodec(e.cfg.JWTIssuer), e.cfg.TokenConfig())
			res, err := seed.Run(ctx, store, user.NewService(store, tokens), project.NewService(q))
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if res.Skipped {
				fmt.Fprintln(out, "管理者ユーザーが既に存在するため、初期データの投入をスキップしました")
				return nil
			}
			fmt.Fprintf(out, "管理者ユーザーを作成しました: %s / %s\n", seed.AdminEmail, seed.AdminPassword)
			fmt.Fprintf(out, "サンプルプロジェクトを%d件作成しました\n", len(res.Projects))
			return nil
		},
	}
}
