package project

import (
	"bytes"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/nao1215/projecthub/internal/db"
)

var (
	// ErrNotFound はプロジェクトが存在しない、または削除済みであることを表す。
	ErrNotFound = errors.New("プロジェクトが見つかりません")
	// ErrOwnerNotFound は指定したオーナーが存在しないことを表す。
	ErrOwnerNotFound = errors.New("オーナーが見つかりません")
	// ErrInvalidStatus は未定義のステータスを表す。
	ErrInvalidStatus = errors.New("ステータスが不正です")
	// ErrInvalidDateRange は開始日が終了日より後であることを表す。
	ErrInvalidDateRange = errors.New("開始日は終了日以前である必要があります")
	// ErrValidation は必須項目の欠落など入力値の不備を表す。
	ErrValidation = errors.New("入力値が不正です")
)

// Status はプロジェクトの進行状況。
type Status string

const (
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusOnHold    Status = "on_hold"
	StatusCancelled Status = "cancelled"
)

// Statuses は定義済みの全ステータス。
var Statuses = []Status{StatusActive, StatusCompleted, StatusOnHold, StatusCancelled}

// Valid は定義済みのステータスかどうかを返す。
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusCompleted, StatusOnHold, StatusCancelled:
		return true
	}
	return false
}

// Owner はプロジェクトに埋め込むオーナーの概要。
type Owner struct {
	ID         int64   `json:"id"`
	Username   string  `json:"username"`
	Email      string  `json:"email"`
	FirstName  string  `json:"first_name"`
	MiddleName *string `json:"middle_name,omitempty"`
	LastName   string  `json:"last_name"`
}

// Project はAPIで返すプロジェクト。
type Project struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Description *string    `json:"description,omitempty"`
	Status      Status     `json:"status"`
	Budget      *float64   `json:"budget,omitempty"`
	StartDate   *time.Time `json:"start_date,omitempty"`
	EndDate     *time.Time `json:"end_date,omitempty"`
	OwnerID     int64      `json:"owner_id"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	Owner       Owner      `json:"owner"`
}

func fromRow(r db.ProjectWithOwner) Project {
	p := Project{
		ID:        r.ID,
		Name:      r.Name,
		Status:    Status(r.Status),
		OwnerID:   r.OwnerID,
		IsActive:  r.IsActive,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		Owner: Owner{
			ID:        r.OwnerID,
			Username:  r.OwnerUsername,
			Email:     r.OwnerEmail,
			FirstName: r.OwnerFirstName,
			LastName:  r.OwnerLastName,
		},
	}
	if r.Description.Valid {
		p.Description = &r.Description.String
	}
	if r.Budget.Valid {
		p.Budget = &r.Budget.Float64
	}
	if r.StartDate.Valid {
		t := r.StartDate.Time.UTC()
		p.StartDate = &t
	}
	if r.EndDate.Valid {
		t := r.EndDate.Time.UTC()
		p.EndDate = &t
	}
	if r.OwnerMiddleName.Valid && r.OwnerMiddleName.String != "" {
		p.Owner.MiddleName = &r.OwnerMiddleName.String
	}
	return p
}

// Date は"2006-01-02"またはRFC3339形式を受け付ける日付。
type Date struct {
	time.Time
}

// UnmarshalJSON はjson.Unmarshalerを実装する。
func (d *Date) UnmarshalJSON(b []byte) error {
	if bytes.Equal(b, []byte("null")) {
		return nil
	}
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return fmt.Errorf("日付は文字列で指定してください: %w", err)
	}
	for _, layout := range []string{time.DateOnly, time.RFC3339} {
		if t, err := time.Parse(layout, s); err == nil {
			d.Time = t.UTC()
			return nil
		}
	}
	return fmt.Errorf("日付の形式が不正です: %q", s)
}

// NewDate は時刻からDateを生成する。
func NewDate(t time.Time) *Date {
	return &Date{Time: t.UTC()}
}

func toNullTime(d *Date) sql.NullTime {
	if d == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: d.Time, Valid: true}
}

func toNullString(s *string) sql.NullString {
	if s == nil || *s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

func toNullFloat(f *float64) sql.NullFloat64 {
	if f == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *f, Valid: true}
}

// Stats はステータスごとのプロジェクト数。
type Stats struct {
	Total     int64 `json:"total"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	OnHold    int64 `json:"on_hold"`
	Cancelled int64 `json:"cancelled"`
}

func statsFrom(counts []db.StatusCount) Stats {
	var s Stats
	for _, c := range counts {
		s.Total += c.Count
		switch Status(c.Status) {
		case StatusActive:
			s.Active = c.Count
		case StatusCompleted:
			s.Completed = c.Count
		case StatusOnHold:
			s.OnHold = c.Count
		case StatusCancelled:
			s.Cancelled = c.Count
		}
	}
	return s
}
