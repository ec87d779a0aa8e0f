package models

import "time"

// Enrollment is a student's registration in a course.
type Enrollment struct {
	ID        string    `db:"id" json:"id"`
	StudentID string    `db:"student_id" json:"student_id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// EnrollmentDetail joins student and course names.
type EnrollmentDetail struct {
	Enrollment
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
}

// EnrollmentFilter scopes enrollment listings.
type EnrollmentFilter struct {
	CourseID  string
	StudentID string
}

// EnrolledStudent is a roster entry.
type EnrolledStudent struct {
	StudentID string `db:"student_id" json:"student_id"`
	Name      string `db:"name" json:"name"`
	Email     string `db:"email" json:"email"`
}

// TeacherStudent is a student sharing at least one course with a teacher.
type TeacherStudent struct {
	StudentID     string  `db:"student_id" json:"student_id"`
	Name          string  `db:"name" json:"name"`
	Email         string  `db:"email" json:"email"`
	BatchName     *string `db:"batch_name" json:"batch_name,omitempty"`
	SharedCourses int     `db:"shared_courses" json:"shared_courses"`
}
