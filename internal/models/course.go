package models

import "time"

// Course belongs to exactly one batch.
type Course struct {
	ID          string    `db:"id" json:"id"`
	Code        string    `db:"code" json:"code"`
	Name        string    `db:"name" json:"name"`
	CreditHours int       `db:"credit_hours" json:"credit_hours"`
	BatchID     string    `db:"batch_id" json:"batch_id"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
	UpdatedAt   time.Time `db:"updated_at" json:"updated_at"`
}

// CourseDetail is the admin listing row.
type CourseDetail struct {
	Course
	BatchName        string `db:"batch_name" json:"batch_name"`
	EnrollmentsCount int    `db:"enrollments_count" json:"enrollments_count"`
	TeachersCount    int    `db:"teachers_count" json:"teachers_count"`
}

// CourseFilter scopes course listings.
type CourseFilter struct {
	BatchID string
}

// TeacherCourse is a course as seen by an assigned teacher.
type TeacherCourse struct {
	CourseID      string `db:"course_id" json:"course_id"`
	Code          string `db:"code" json:"code"`
	Name          string `db:"name" json:"name"`
	CreditHours   int    `db:"credit_hours" json:"credit_hours"`
	BatchName     string `db:"batch_name" json:"batch_name"`
	StudentsCount int    `db:"students_count" json:"students_count"`
	ScheduledDays int    `db:"scheduled_days" json:"scheduled_days"`
}

// StudentCourse is a course offered to a student with enrollment state.
type StudentCourse struct {
	CourseID    string `db:"course_id" json:"course_id"`
	Code        string `db:"code" json:"code"`
	Name        string `db:"name" json:"name"`
	CreditHours int    `db:"credit_hours" json:"credit_hours"`
	BatchName   string `db:"batch_name" json:"batch_name"`
	IsEnrolled  bool   `db:"is_enrolled" json:"is_enrolled"`
}
