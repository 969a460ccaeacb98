package project

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nao1215/projecthub/internal/db"
	"golang.org/x/sync/errgroup"
)

// CreateInput はプロジェクト作成の入力。
type CreateInput struct {
	Name        string   `json:"name" binding:"required,max=255"`
	Description *string  `json:"description"`
	Status      Status   `json:"status" binding:"omitempty,project_status"`
	Budget      *float64 `json:"budget" binding:"omitempty,gte=0"`
	StartDate   *Date    `json:"start_date"`
	EndDate     *Date    `json:"end_date"`
	// OwnerID が未指定の場合は作成者がオーナーになる。
	OwnerID *int64 `json:"owner_id" binding:"omitempty,gt=0"`
}

// UpdateInput はプロジェクト更新の入力。nilの項目は変更しない。
// descriptionに空文字列を指定すると削除する。
type UpdateInput struct {
	Name        *string  `json:"name" binding:"omitempty,min=1,max=255"`
	Description *string  `json:"description"`
	Status      *Status  `json:"status" binding:"omitempty,project_status"`
	Budget      *float64 `json:"budget" binding:"omitempty,gte=0"`
	StartDate   *Date    `json:"start_date"`
	EndDate     *Date    `json:"end_date"`
	OwnerID     *int64   `json:"owner_id" binding:"omitempty,gt=0"`
}

// ListParams はプロジェクト一覧の検索条件。
type ListParams struct {
	Skip    int
	Limit   int
	Search  string
	Status  Status
	OwnerID int64
}

// ListResult はプロジェクト一覧の結果。
type ListResult struct {
	Projects []Project
	Total    int64
	Page     db.Page
}

// Overview は全体の集計と、ログイン中であれば本人の集計。
type Overview struct {
	Stats
	Mine *Stats `json:"mine,omitempty"`
}

// Service はプロジェクト関連のユースケースを提供する。
type Service struct {
	q   *db.Queries
	now func() time.Time
}

// NewService は新しいServiceを生成する。
func NewService(q *db.Queries) *Service {
	return &Service{q: q, now: time.Now}
}

// Create はプロジェクトを作成する。ownerIDは入力でオーナーが未指定の場合に使う。
func (s *Service) Create(ctx context.Context, ownerID int64, in CreateInput) (Project, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return Project{}, fmt.Errorf("%w: nameは必須です", ErrValidation)
	}

	status := in.Status
	if status == "" {
		status = StatusActive
	}
	if !status.Valid() {
		return Project{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	if in.OwnerID != nil {
		ownerID = *in.OwnerID
	}
	if err := s.ensureOwner(ctx, ownerID); err != nil {
		return Project{}, err
	}

	start, end := toNullTime(in.StartDate), toNullTime(in.EndDate)
	if err := validateDates(start, end); err != nil {
		return Project{}, err
	}

	id, err := s.q.CreateProject(ctx, db.CreateProjectParams{
		Name:        name,
		Description: toNullString(in.Description),
		Status:      string(status),
		Budget:      toNullFloat(in.Budget),
		StartDate:   start,
		EndDate:     end,
		OwnerID:     ownerID,
		CreatedAt:   s.now().UTC(),
	})
	if err != nil {
		return Project{}, fmt.Errorf("プロジェクトの作成に失敗: %w", err)
	}
	return s.Get(ctx, id)
}

// Get は削除されていないプロジェクトを取得する。
func (s *Service) Get(ctx context.Context, id int64) (Project, error) {
	row, err := s.find(ctx, id)
	if err != nil {
		return Project{}, err
	}
	return fromRow(row), nil
}

func (s *Service) find(ctx context.Context, id int64) (db.ProjectWithOwner, error) {
	row, err := s.q.GetProjectByID(ctx, id)
	if err != nil {
		if db.IsNotFound(err) {
			return db.ProjectWithOwner{}, fmt.Errorf("ID %d: %w", id, ErrNotFound)
		}
		return db.ProjectWithOwner{}, fmt.Errorf("プロジェクトの取得に失敗: %w", err)
	}
	if !row.IsActive {
		return db.ProjectWithOwner{}, fmt.Errorf("ID %d: %w", id, ErrNotFound)
	}
	return row, nil
}

// Update はプロジェクトを部分更新する。
// 日付の前後関係は更新後の値同士で検証する。
func (s *Service) Update(ctx context.Context, id int64, in UpdateInput) (Project, error) {
	current, err := s.find(ctx, id)
	if err != nil {
		return Project{}, err
	}

	params := db.UpdateProjectParams{
		ID:          current.ID,
		Name:        current.Name,
		Description: current.Description,
		Status:      current.Status,
		Budget:      current.Budget,
		StartDate:   current.StartDate,
		EndDate:     current.EndDate,
		OwnerID:     current.OwnerID,
		UpdatedAt:   s.now().UTC(),
	}

	if in.Name != nil {
		if params.Name = strings.TrimSpace(*in.Name); params.Name == "" {
			return Project{}, fmt.Errorf("%w: nameは空にできません", ErrValidation)
		}
	}
	if in.Description != nil {
		params.Description = toNullString(in.Description)
	}
	if in.Status != nil {
		if !in.Status.Valid() {
			return Project{}, fmt.Errorf("%w: %q", ErrInvalidStatus, *in.Status)
		}
		params.Status = string(*in.Status)
	}
	if in.Budget != nil {
		params.Budget = toNullFloat(in.Budget)
	}
	if in.StartDate != nil {
		params.StartDate = toNullTime(in.StartDate)
	}
	if in.EndDate != nil {
		params.EndDate = toNullTime(in.EndDate)
	}
	if in.OwnerID != nil && *in.OwnerID != current.OwnerID {
		if err := s.ensureOwner(ctx, *in.OwnerID); err != nil {
			return Project{}, err
		}
		params.OwnerID = *in.OwnerID
	}
	if err := validateDates(params.StartDate, params.EndDate); err != nil {
		return Project{}, err
	}

	if err := s.q.UpdateProject(ctx, params); err != nil {
		return Project{}, fmt.Errorf("プロジェクトの更新に失敗: %w", err)
	}
	return s.Get(ctx, id)
}

// Delete はプロジェクトを論理削除する。
func (s *Service) Delete(ctx context.Context, id int64) error {
	if _, err := s.find(ctx, id); err != nil {
		return err
	}
	if err := s.q.SetProjectActive(ctx, id, false, s.now().UTC()); err != nil {
		return fmt.Errorf("プロジェクトの削除に失敗: %w", err)
	}
	return nil
}

// List は削除されていないプロジェクトを作成日時の新しい順に返す。
// 一覧と総件数は並行して取得する。
func (s *Service) List(ctx context.Context, params ListParams) (ListResult, error) {
	if params.Status != "" && !params.Status.Valid() {
		return ListResult{}, fmt.Errorf("%w: %q", ErrInvalidStatus, params.Status)
	}

	page := db.NewPage(params.Skip, params.Limit)
	filter := db.ProjectFilter{
		Search:  strings.TrimSpace(params.Search),
		Status:  string(params.Status),
		OwnerID: params.OwnerID,
	}

	var (
		rows  []db.ProjectWithOwner
		total int64
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		rows, err = s.q.ListProjects(gctx, filter, page.Limit, page.Skip)
		return err
	})
	g.Go(func() error {
		var err error
		total, err = s.q.CountProjects(gctx, filter)
		return err
	})
	if err := g.Wait(); err != nil {
		return ListResult{}, fmt.Errorf("プロジェクト一覧の取得に失敗: %w", err)
	}

	projects := make([]Project, 0, len(rows))
	for _, r := range rows {
		projects = append(projects, fromRow(r))
	}
	return ListResult{Projects: projects, Total: total, Page: page}, nil
}

// ListMine はownerIDが所有するプロジェクトを返す。
func (s *Service) ListMine(ctx context.Context, ownerID int64, params ListParams) (ListResult, error) {
	params.OwnerID = ownerID
	return s.List(ctx, params)
}

// Stats は全プロジェクトのステータス別件数を返す。
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	return s.StatsByOwner(ctx, 0)
}

// StatsByOwner はownerIDが所有するプロジェクトのステータス別件数を返す。
// ownerIDが0の場合は全プロジェクトを対象とする。
func (s *Service) StatsByOwner(ctx context.Context, ownerID int64) (Stats, error) {
	counts, err := s.q.CountProjectsByStatus(ctx, ownerID)
	if err != nil {
		return Stats{}, fmt.Errorf("プロジェクトの集計に失敗: %w", err)
	}
	return statsFrom(counts), nil
}

// Overview は全体の集計を返す。ownerIDが0でなければ本人の集計も並行して取得する。
func (s *Service) Overview(ctx context.Context, ownerID int64) (Overview, error) {
	var ov Overview
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		ov.Stats, err = s.Stats(gctx)
		return err
	})
	if ownerID != 0 {
		g.Go(func() error {
			mine, err := s.StatsByOwner(gctx, ownerID)
			ov.Mine = &mine
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return Overview{}, err
	}
	return ov, nil
}

func (s *Service) ensureOwner(ctx context.Context, ownerID int64) error {
	if ownerID <= 0 {
		return fmt.Errorf("%w: owner_idは必須です", ErrValidation)
	}
	if _, err := s.q.GetUserByID(ctx, ownerID); err != nil {
		if db.IsNotFound(err) {
			return fmt.Errorf("ID %d: %w", ownerID, ErrOwnerNotFound)
		}
		return fmt.Errorf("オーナーの取得に失敗: %w", err)
	}
	return nil
}

func validateDates(start, end sql.NullTime) error {
	if start.Valid && end.Valid && start.Time.After(end.Time) {
		return ErrInvalidDateRange
	}
	return nil
}
