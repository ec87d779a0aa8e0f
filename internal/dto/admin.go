package dto

import "github.com/noah-isme/ams-api/internal/models"

// CreateTeacherRequest creates a TEACHER account.
type CreateTeacherRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100"`
}

// CreateStudentRequest creates a STUDENT account inside a batch.
type CreateStudentRequest struct {
	Name     string `json:"name" validate:"required,max=100"`
	Email    string `json:"email" validate:"required,email,max=255"`
	Password string `json:"password" validate:"required,min=8,max=100"`
	BatchID  string `json:"batch_id" validate:"required"`
}

// UpdateUserRequest edits profile fields. Role is immutable.
type UpdateUserRequest struct {
	Name        string  `json:"name" validate:"required,max=100"`
	Email       string  `json:"email" validate:"required,email,max=255"`
	BatchID     *string `json:"batch_id"`
	NewPassword *string `json:"new_password" validate:"omitempty,min=8,max=100"`
}

// BatchRequest creates or renames a batch.
type BatchRequest struct {
	Name string `json:"name" validate:"required,max=50"`
}

// CourseRequest creates or updates a course. Zero credit hours means 3.
type CourseRequest struct {
	Code        string `json:"code" validate:"required,max=30"`
	Name        string `json:"name" validate:"required,max=100"`
	CreditHours int    `json:"credit_hours" validate:"omitempty,min=1,max=30"`
	BatchID     string `json:"batch_id" validate:"required"`
}

// TimetableSlotRequest creates or updates a timetable slot.
type TimetableSlotRequest struct {
	CourseID  string  `json:"course_id" validate:"required"`
	DayOfWeek *int    `json:"day_of_week" validate:"required,min=0,max=6"`
	TimeRange *string `json:"time_range" validate:"omitempty,max=30"`
}

// EnrollmentRequest enrolls a student in a course.
type EnrollmentRequest struct {
	StudentID string `json:"student_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// AssignmentRequest assigns a teacher to a course.
type AssignmentRequest struct {
	TeacherID string `json:"teacher_id" validate:"required"`
	CourseID  string `json:"course_id" validate:"required"`
}

// EnrollResult is returned by student self-enrollment.
type EnrollResult struct {
	Enrollment      *models.Enrollment `json:"enrollment"`
	AlreadyEnrolled bool               `json:"already_enrolled"`
}
