package db

import (
	"database/sql"
	"time"
)

// User はusersテーブルの行。
type User struct {
	ID          int64
	Username    string
	Email       string
	Password    string
	FirstName   string
	MiddleName  sql.NullString
	LastName    string
	IsSuperuser bool
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Project はprojectsテーブルの行。
type Project struct {
	ID          int64
	Name        string
	Description sql.NullString
	Status      string
	Budget      sql.NullFloat64
	StartDate   sql.NullTime
	EndDate     sql.NullTime
	OwnerID     int64
	IsActive    bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// ProjectWithOwner はオーナー情報を結合したプロジェクトの行。
type ProjectWithOwner struct {
	Project
	OwnerUsername   string
	OwnerEmail      string
	OwnerFirstName  string
	OwnerMiddleName sql.NullString
	OwnerLastName   string
}

// StatusCount はステータスごとの件数。
type StatusCount struct {
	Status string
	Count  int64
}
