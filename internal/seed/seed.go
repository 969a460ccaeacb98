// Package seed は開発用の初期データを投入する。
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nao1215/projecthub/internal/project"
	"github.com/nao1215/projecthub/internal/user"
)

// 初期管理者の認証情報。
const (
	AdminUsername = "admin"
	AdminEmail    = "admin@example.com"
	AdminPassword = "admin123"
)

// Result は投入結果。
type Result struct {
	// Skipped は管理者が既に存在したため何もしなかったことを表す。
	Skipped  bool
	Admin    user.User
	Projects []project.Project
}

// Run は管理者ユーザーとサンプルプロジェクトを作成する。
// 管理者のメールアドレスかユーザー名のどちらかが既に使われている場合は何もしない。
func Run(ctx context.Context, store *user.Store, users *user.Service, projects *project.Service) (Result, error) {
	exists, err := adminExists(ctx, store)
	if err != nil {
		return Result{}, err
	}
	if exists {
		slog.InfoContext(ctx, "管理者ユーザーが既に存在するため初期データの投入をスキップします",
			"email", AdminEmail, "username", AdminUsername)
		return Result{Skipped: true}, nil
	}

	admin, err := users.CreateSuperuser(ctx, user.RegisterInput{
		Username:  AdminUsername,
		Email:     AdminEmail,
		Password:  AdminPassword,
		FirstName: "Admin",
		LastName:  "User",
	})
	if err != nil {
		return Result{}, fmt.Errorf("管理者ユーザーの作成に失敗: %w", err)
	}

	res := Result{Admin: admin}
	for _, in := range sampleProjects() {
		p, err := projects.Create(ctx, admin.ID, in)
		if err != nil {
			return Result{}, fmt.Errorf("サンプルプロジェクト%qの作成に失敗: %w", in.Name, err)
		}
		res.Projects = append(res.Projects, p)
	}

	slog.InfoContext(ctx, "初期データを投入しました", "admin_id", admin.ID, "projects", len(res.Projects))
	return res, nil
}

// adminExists は管理者のメールアドレスまたはユーザー名を持つユーザーがいるかを返す。
func adminExists(ctx context.Context, store *user.Store) (bool, error) {
	if _, err := store.FindByEmail(ctx, AdminEmail); err == nil {
		return true, nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return false, fmt.Errorf("管理者ユーザーの確認に失敗: %w", err)
	}
	if _, err := store.FindByUsername(ctx, AdminUsername); err == nil {
		return true, nil
	} else if !errors.Is(err, user.ErrNotFound) {
		return false, fmt.Errorf("管理者ユーザーの確認に失敗: %w", err)
	}
	return false, nil
}

func sampleProjects() []project.CreateInput {
	desc1 := "This is a sample project for testing purposes"
	desc2 := "Another sample project for demonstration"
	budget1, budget2 := 10000.0, 5000.0
	return []project.CreateInput{
		{
			Name:        "Sample Project 1",
			Description: &desc1,
			Status:      project.StatusActive,
			Budget:      &budget1,
			StartDate:   date(2024, time.January, 1),
			EndDate:     date(2024, time.December, 31),
		},
		{
			Name:        "Sample Project 2",
			Description: &desc2,
			Status:      project.StatusCompleted,
			Budget:      &budget2,
			StartDate:   date(2024, time.February, 1),
			EndDate:     date(2024, time.June, 30),
		},
	}
}

func date(year int, month time.Month, day int) *project.Date {
	return project.NewDate(time.Date(year, month, day, 0, 0, 0, 0, time.UTC))
}
