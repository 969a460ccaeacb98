package db

import (
	"context"
	"database/sql"
	"time"
)

const projectColumns = `p.id, p.name, p.description, p.status, p.budget, p.start_date, p.end_date,
    p.owner_id, p.is_active, p.created_at, p.updated_at`

const projectWithOwnerColumns = projectColumns + `,
    u.username, u.email, u.first_name, u.middle_name, u.last_name`

func scanProjectWithOwner(row interface{ Scan(dest ...any) error }) (ProjectWithOwner, error) {
	var p ProjectWithOwner
	err := row.Scan(
		&p.ID,
		&p.Name,
		&p.Description,
		&p.Status,
		&p.Budget,
		&p.StartDate,
		&p.EndDate,
		&p.OwnerID,
		&p.IsActive,
		&p.CreatedAt,
		&p.UpdatedAt,
		&p.OwnerUsername,
		&p.OwnerEmail,
		&p.OwnerFirstName,
		&p.OwnerMiddleName,
		&p.OwnerLastName,
	)
	return p, err
}

const createProject = `INSERT INTO projects (
    name, description, status, budget, start_date, end_date, owner_id,
    is_active, created_at, updated_at
) VALUES ($1, $2, $3, $4, $5, $6, $7, TRUE, $8, $8)
RETURNING id`

// CreateProjectParams はCreateProjectの引数。
type CreateProjectParams struct {
	Name        string
	Description sql.NullString
	Status      string
	Budget      sql.NullFloat64
	StartDate   sql.NullTime
	EndDate     sql.NullTime
	OwnerID     int64
	CreatedAt   time.Time
}

// CreateProject はプロジェクトを作成し、採番されたIDを返す。
func (q *Queries) CreateProject(ctx context.Context, arg CreateProjectParams) (int64, error) {
	var id int64
	err := q.db.QueryRowContext(ctx, createProject,
		arg.Name,
		arg.Description,
		arg.Status,
		arg.Budget,
		arg.StartDate,
		arg.EndDate,
		arg.OwnerID,
		arg.CreatedAt,
	).Scan(&id)
	return id, err
}

const getProjectByID = `SELECT ` + projectWithOwnerColumns + `
FROM projects p
JOIN users u ON u.id = p.owner_id
WHERE p.id = $1`

// GetProjectByID はIDでプロジェクトを取得する。論理削除済みの行も返す。
func (q *Queries) GetProjectByID(ctx context.Context, id int64) (ProjectWithOwner, error) {
	return scanProjectWithOwner(q.db.QueryRowContext(ctx, getProjectByID, id))
}

// ProjectFilter はプロジェクト一覧の絞り込み条件。論理削除済みの行は常に除外する。
type ProjectFilter struct {
	// Search は名前・説明に対する部分一致（大文字小文字を区別しない）。
	Search string
	// Status はステータスでの絞り込み。空の場合は絞り込まない。
	Status string
	// OwnerID はオーナーでの絞り込み。0の場合は絞り込まない。
	OwnerID int64
}

func (f ProjectFilter) where() *whereBuilder {
	w := &whereBuilder{}
	w.add("p.is_active = TRUE")
	if f.Search != "" {
		p := likePattern(f.Search)
		w.add(`(LOWER(p.name) LIKE ? ESCAPE '\' OR LOWER(p.description) LIKE ? ESCAPE '\')`, p, p)
	}
	if f.Status != "" {
		w.add("p.status = ?", f.Status)
	}
	if f.OwnerID != 0 {
		w.add("p.owner_id = ?", f.OwnerID)
	}
	return w
}

// ListProjects は条件に一致するプロジェクトを作成日時の新しい順に取得する。
func (q *Queries) ListProjects(ctx context.Context, f ProjectFilter, limit, offset int) ([]ProjectWithOwner, error) {
	w := f.where()
	query := `SELECT ` + projectWithOwnerColumns + `
FROM projects p
JOIN users u ON u.id = p.owner_id` + w.String() +
		` ORDER BY p.created_at DESC, p.id DESC LIMIT ` + w.next(limit) + ` OFFSET ` + w.next(offset)

	rows, err := q.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var projects []ProjectWithOwner
	for rows.Next() {
		p, err := scanProjectWithOwner(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// CountProjects は条件に一致するプロジェクト数を返す。
func (q *Queries) CountProjects(ctx context.Context, f ProjectFilter) (int64, error) {
	w := f.where()
	var n int64
	err := q.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM projects p`+w.String(), w.args...).Scan(&n)
	return n, err
}

const updateProject = `UPDATE projects SET
    name = $2,
    description = $3,
    status = $4,
    budget = $5,
    start_date = $6,
    end_date = $7,
    owner_id = $8,
    updated_at = $9
WHERE id = $1`

// UpdateProjectParams はUpdateProjectの引数。有効フラグ以外の全列を上書きする。
type UpdateProjectParams struct {
	ID          int64
	Name        string
	Description sql.NullString
	Status      string
	Budget      sql.NullFloat64
	StartDate   sql.NullTime
	EndDate     sql.NullTime
	OwnerID     int64
	UpdatedAt   time.Time
}

// UpdateProject はプロジェクトを更新する。
func (q *Queries) UpdateProject(ctx context.Context, arg UpdateProjectParams) error {
	_, err := q.db.ExecContext(ctx, updateProject,
		arg.ID,
		arg.Name,
		arg.Description,
		arg.Status,
		arg.Budget,
		arg.StartDate,
		arg.EndDate,
		arg.OwnerID,
		arg.UpdatedAt,
	)
	return err
}

const setProjectActive = `UPDATE projects SET is_active = $2, updated_at = $3 WHERE id = $1`

// SetProjectActive は有効フラグを更新する。
func (q *Queries) SetProjectActive(ctx context.Context, id int64, active bool, updatedAt time.Time) error {
	_, err := q.db.ExecContext(ctx, setProjectActive, id, active, updatedAt)
	return err
}

// CountProjectsByStatus は有効なプロジェクトのステータスごとの件数を返す。
// ownerIDが0の場合は全オーナーを対象とする。
func (q *Queries) CountProjectsByStatus(ctx context.Context, ownerID int64) ([]StatusCount, error) {
	w := ProjectFilter{OwnerID: ownerID}.where()
	query := `SELECT p.status, COUNT(*) FROM projects p` + w.String() + ` GROUP BY p.status`

	rows, err := q.db.QueryContext(ctx, query, w.args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var counts []StatusCount
	for rows.Next() {
		var c StatusCount
		if err := rows.Scan(&c.Status, &c.Count); err != nil {
			return nil, err
		}
		counts = append(counts, c)
	}
	return counts, rows.Err()
}
