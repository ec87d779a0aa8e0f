package models

import "time"

// TeacherAssignment authorises a teacher to mark a course.
type TeacherAssignment struct {
	ID        string    `db:"id" json:"id"`
	TeacherID string    `db:"teacher_id" json:"teacher_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// TeacherAssignmentDetail joins teacher and course names.
type TeacherAssignmentDetail struct {
	TeacherAssignment
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	TeacherEmail string `db:"teacher_email" json:"teacher_email"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
}

// TeacherAssignmentFilter scopes assignment listings.
type TeacherAssignmentFilter struct {
	CourseID  string
	TeacherID string
}
