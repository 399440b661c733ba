package models

import "time"

// UserStatus is the account state returned by the identity oracle
type UserStatus string

const (
	UserStatusActive   UserStatus = "active"
	UserStatusInactive UserStatus = "inactive"
)

// User is the authenticated principal loaded by the identity oracle.
// User management itself is an external concern; this is the read model
// the engine consumes.
type User struct {
	ID        int64      `json:"id" db:"id"`
	Name      string     `json:"name" db:"name"`
	Email     string     `json:"email" db:"email"`
	RoleID    int64      `json:"role_id" db:"role_id"`
	GroupID   *int64     `json:"group_id,omitempty" db:"group_id"`
	LevelID   *int64     `json:"level_id,omitempty" db:"level_id"`
	Status    UserStatus `json:"status" db:"status"`
	CreatedAt time.Time  `json:"created_at" db:"created_at"`
}

// IsActive reports whether the account may act
func (u *User) IsActive() bool {
	return u.Status == UserStatusActive
}
