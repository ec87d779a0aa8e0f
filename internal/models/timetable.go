package models

import "time"

// TimetableSlot marks a weekday (0=Sunday) on which a course meets.
type TimetableSlot struct {
	ID        string    `db:"id" json:"id"`
	CourseID  string    `db:"course_id" json:"course_id"`
	DayOfWeek int       `db:"day_of_week" json:"day_of_week"`
	TimeRange *string   `db:"time_range" json:"time_range,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Weekday returns the slot day as a time.Weekday.
func (s TimetableSlot) Weekday() time.Weekday {
	return time.Weekday(s.DayOfWeek)
}

// TimetableSlotDetail joins course information for listings.
type TimetableSlotDetail struct {
	TimetableSlot
	CourseCode string `db:"course_code" json:"course_code"`
	CourseName string `db:"course_name" json:"course_name"`
	DayName    string `db:"-" json:"day_name"`
}
