package models

import "time"

// UserRole represents the available roles for the RBAC system. A user holds
// exactly one role. RoleNone marks an account stripped of its role: it can
// still sign in but passes no role gate.
type UserRole string

const (
	RoleAdmin   UserRole = "ADMIN"
	RoleTeacher UserRole = "TEACHER"
	RoleStudent UserRole = "STUDENT"
	RoleNone    UserRole = "NONE"
)

// Valid reports whether the role is known.
func (r UserRole) Valid() bool {
	switch r {
	case RoleAdmin, RoleTeacher, RoleStudent, RoleNone:
		return true
	default:
		return false
	}
}

// Granted lists the roles the user actually holds; empty for RoleNone.
func (r UserRole) Granted() []UserRole {
	if r == RoleNone || r == "" {
		return []UserRole{}
	}
	return []UserRole{r}
}

// User represents an application user stored in the users table.
type User struct {
	ID           string    `db:"id" json:"id"`
	Email        string    `db:"email" json:"email"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Role         UserRole  `db:"role" json:"role"`
	BatchID      *string   `db:"batch_id" json:"batch_id,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
	UpdatedAt    time.Time `db:"updated_at" json:"updated_at"`
}

// UserDetail adds the batch name for listings.
type UserDetail struct {
	User
	BatchName *string `db:"batch_name" json:"batch_name,omitempty"`
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Search   string
	Page     int
	PageSize int
}

// UserDependents counts rows that block deleting a user.
type UserDependents struct {
	Enrollments         int `db:"enrollments"`
	AttendanceAsStudent int `db:"attendance_as_student"`
	AttendanceAsTeacher int `db:"attendance_as_teacher"`
	Assignments         int `db:"assignments"`
}

// Any reports whether at least one dependent row exists.
func (d UserDependents) Any() bool {
	return d.Enrollments+d.AttendanceAsStudent+d.AttendanceAsTeacher+d.Assignments > 0
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
