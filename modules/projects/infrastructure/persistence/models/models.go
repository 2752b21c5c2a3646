package models

import (
	"database/sql"
	"time"
)

type ProjectKey struct {
	ID                string
	TenantID          string
	DepartmentID      sql.NullString
	Key               string
	Description       string
	IsDefault         bool
	IsActive          bool
	LastTaskNumber    int
	LastSprintNumber  int
	LastProjectNumber int
	CreatedBy         sql.NullString
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

type WorkItem struct {
	ID        string
	ProjectID sql.NullString
	Name      string
	Slug      sql.NullString
	CreatedAt time.Time
}
