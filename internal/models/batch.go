package models

import "time"

// Batch is a cohort of students and the courses offered to them.
type Batch struct {
	ID        string    `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// BatchSummary adds dependent counts used by listings and delete guards.
type BatchSummary struct {
	Batch
	StudentsCount int `db:"students_count" json:"students_count"`
	CoursesCount  int `db:"courses_count" json:"courses_count"`
}
