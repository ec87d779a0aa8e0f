package dto

import "github.com/noah-isme/ams-api/internal/models"

// MarkAttendanceRequest is the POST /teacher/courses/:courseId/attendance payload.
type MarkAttendanceRequest struct {
	CourseID string               `json:"-" validate:"required"`
	Date     string               `json:"date" validate:"required,datetime=2006-01-02"`
	IsMakeUp bool                 `json:"is_make_up"`
	Rows     []AttendanceRowInput `json:"rows" validate:"required,min=1,dive"`
}

// AttendanceRowInput is one student's status within a marking.
type AttendanceRowInput struct {
	StudentID string                  `json:"student_id" validate:"required"`
	Status    models.AttendanceStatus `json:"status" validate:"required,attendance_status"`
}

// MarkAttendanceResult reports how many rows were inserted versus overwritten.
type MarkAttendanceResult struct {
	CourseID string `json:"course_id"`
	Date     string `json:"date"`
	IsMakeUp bool   `json:"is_make_up"`
	Created  int    `json:"created"`
	Updated  int    `json:"updated"`
}

// AttendanceSheet is the marking form for one course and date.
type AttendanceSheet struct {
	CourseID       string               `json:"course_id"`
	CourseCode     string               `json:"course_code"`
	CourseName     string               `json:"course_name"`
	Date           string               `json:"date"`
	ScheduledDays  []int                `json:"scheduled_days"`
	IsScheduledDay bool                 `json:"is_scheduled_day"`
	Students       []AttendanceSheetRow `json:"students"`
}

// AttendanceSheetRow pre-fills the teacher's existing status, PRESENT otherwise.
type AttendanceSheetRow struct {
	StudentID string                  `json:"student_id"`
	Name      string                  `json:"name"`
	Email     string                  `json:"email"`
	Status    models.AttendanceStatus `json:"status"`
	Marked    bool                    `json:"marked"`
}
