package models

import "time"

// Group is an organizational unit work is routed to
type Group struct {
	ID          int64      `json:"group_id" db:"group_id"`
	GroupName   string     `json:"group_name" db:"group_name"`
	Description string     `json:"description,omitempty" db:"description"`
	DeletedAt   *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// Level is a tier within a group hierarchy
type Level struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// ActionType is a catalogued action a routed group may perform
type ActionType struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// FieldType is a catalogued form field type
type FieldType struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	DeletedAt *time.Time `json:"deleted_at,omitempty" db:"deleted_at"`
}

// LockupStatus is the publication state of a lockup
type LockupStatus string

const (
	LockupStatusActive   LockupStatus = "active"
	LockupStatusDisabled LockupStatus = "disabled"
)

// Lockup is a user-defined enumeration. Each lockup owns a provisioned
// table (lkt_ prefix) holding its entries.
type Lockup struct {
	ID          int64        `json:"id" db:"id"`
	Name        string       `json:"name" db:"name"`
	DisplayName string       `json:"display_name" db:"display_name"`
	TableName   string       `json:"table_name" db:"table_name"`
	Status      LockupStatus `json:"status" db:"status"`
	DeletedAt   *time.Time   `json:"deleted_at,omitempty" db:"deleted_at"`
}

// LockupEntry is a row of a provisioned lockup table
type LockupEntry struct {
	ID   int64  `json:"id" db:"id"`
	Name string `json:"name" db:"name"`
}

// Pagination describes one page of a listing
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes pagination metadata for a total row count
func NewPagination(page, pageSize, totalCount int) Pagination {
	totalPages := totalCount / pageSize
	if totalCount%pageSize != 0 {
		totalPages++
	}
	return Pagination{Page: page, PageSize: pageSize, TotalCount: totalCount, TotalPages: totalPages}
}
