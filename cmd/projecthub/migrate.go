package main

import (
	"fmt"

	"github.com/nao1215/projecthub/internal/db"
	"github.com/nao1215/projecthub/pkg/migration"
	"github.com/spf13/cobra"
)

func migrateCmd(load configLoader) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "未適用のマイグレーションを適用する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd.Context(), cmd, load)
			if err != nil {
				return err
			}
			defer e.db.Close()

			fsys, dir := db.Migrations(e.cfg.Dialect())
			n, err := migration.Run(cmd.Context(), e.db, fsys, dir)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%d件のマイグレーションを適用しました\n", n)
			return nil
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "マイグレーションの適用状態を表示する",
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := setup(cmd.Context(), cmd, load)
			if err != nil {
				return err
			}
			defer e.db.Close()

			fsys, dir := db.Migrations(e.cfg.Dialect())
			migrations, err := migration.Status(cmd.Context(), e.db, fsys, dir)
			if err != nil {
				return err
			}
			for _, m := range migrations {
				state := "pending"
				if m.Applied {
					state = "applied"
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%06d %-40s %s\n", m.Version, m.Name, state)
			}
			return nil
		},
	})
	return cmd
}
