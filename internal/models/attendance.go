package models

import "time"

// AttendanceStatus represents the status for attendance records.
type AttendanceStatus string

const (
	AttendancePresent AttendanceStatus = "PRESENT"
	AttendanceAbsent  AttendanceStatus = "ABSENT"
	AttendanceLate    AttendanceStatus = "LATE"
)

// Valid returns true when the status is a supported value.
func (s AttendanceStatus) Valid() bool {
	switch s {
	case AttendancePresent, AttendanceAbsent, AttendanceLate:
		return true
	default:
		return false
	}
}

// Label is the human readable form used in exports.
func (s AttendanceStatus) Label() string {
	switch s {
	case AttendancePresent:
		return "Present"
	case AttendanceAbsent:
		return "Absent"
	case AttendanceLate:
		return "Late"
	default:
		return string(s)
	}
}

// DateLayout is the wire format for attendance dates.
const DateLayout = "2006-01-02"

// Attendance is unique per (student, course, date, marking teacher).
type Attendance struct {
	ID                string           `db:"id" json:"id"`
	StudentID         string           `db:"student_id" json:"student_id"`
	CourseID          string           `db:"course_id" json:"course_id"`
	MarkedByTeacherID string           `db:"marked_by_teacher_id" json:"marked_by_teacher_id"`
	Date              time.Time        `db:"date" json:"date"`
	Status            AttendanceStatus `db:"status" json:"status"`
	IsMakeUp          bool             `db:"is_make_up" json:"is_make_up"`
	CreatedAt         time.Time        `db:"created_at" json:"created_at"`
}

// AttendanceRecord extends the model with display names.
type AttendanceRecord struct {
	Attendance
	StudentName  string `db:"student_name" json:"student_name"`
	StudentEmail string `db:"student_email" json:"student_email"`
	CourseCode   string `db:"course_code" json:"course_code"`
	CourseName   string `db:"course_name" json:"course_name"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
}

// AttendanceFilter scopes attendance queries. Empty fields are ignored.
type AttendanceFilter struct {
	CourseID  string
	StudentID string
	TeacherID string
	From      *time.Time
	To        *time.Time
	// EnrolledOnly keeps records whose (student, course) pair is still enrolled.
	EnrolledOnly bool
	Ascending    bool
}
