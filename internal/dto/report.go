package dto

import (
	"time"

	"github.com/noah-isme/ams-api/internal/models"
)

// ReportFormat selects the export encoding.
type ReportFormat string

const (
	ReportFormatCSV ReportFormat = "csv"
	ReportFormatPDF ReportFormat = "pdf"
)

// ReportRange bounds a report by inclusive dates. Nil ends are open.
type ReportRange struct {
	From *time.Time
	To   *time.Time
}

// CourseReport is a teacher's own records for one course.
type CourseReport struct {
	CourseID   string                            `json:"course_id"`
	CourseCode string                            `json:"course_code"`
	CourseName string                            `json:"course_name"`
	Totals     models.AttendanceCounts           `json:"totals"`
	Students   []models.StudentAttendanceSummary `json:"students"`
	Records    []models.AttendanceRecord         `json:"records"`
}

// StudentReport is a teacher's records for one student across their courses.
type StudentReport struct {
	StudentID    string                           `json:"student_id"`
	StudentName  string                           `json:"student_name"`
	StudentEmail string                           `json:"student_email"`
	Totals       models.AttendanceCounts          `json:"totals"`
	Courses      []models.CourseAttendanceSummary `json:"courses"`
	Records      []models.AttendanceRecord        `json:"records"`
}

// MyCourseReport is a student's own records in one course from all teachers.
type MyCourseReport struct {
	CourseID   string                    `json:"course_id"`
	CourseCode string                    `json:"course_code"`
	CourseName string                    `json:"course_name"`
	Totals     models.AttendanceCounts   `json:"totals"`
	Records    []models.AttendanceRecord `json:"records"`
}

// ExportFile is a rendered report ready to stream.
type ExportFile struct {
	Filename    string
	ContentType string
	Body        []byte
}
