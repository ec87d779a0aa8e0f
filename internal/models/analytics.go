package models

import "time"

// AttendanceCounts holds per-status tallies and the weighted percentage.
type AttendanceCounts struct {
	Present    int `json:"present"`
	Absent     int `json:"absent"`
	Late       int `json:"late"`
	Total      int `json:"total"`
	Percentage int `json:"percentage"`
}

// CourseAttendanceSummary groups records by course.
type CourseAttendanceSummary struct {
	CourseID   string `json:"course_id"`
	CourseCode string `json:"course_code"`
	CourseName string `json:"course_name"`
	AttendanceCounts
}

// StudentAttendanceSummary groups records by student.
type StudentAttendanceSummary struct {
	StudentID    string `json:"student_id"`
	StudentName  string `json:"student_name"`
	StudentEmail string `json:"student_email"`
	AttendanceCounts
}

// SystemCounts are the admin dashboard head counts.
type SystemCounts struct {
	Students int `db:"students" json:"students"`
	Teachers int `db:"teachers" json:"teachers"`
	Courses  int `db:"courses" json:"courses"`
}

// AttendanceOverview is the dashboard payload for one scope.
type AttendanceOverview struct {
	Scope       string                    `json:"scope"`
	Totals      AttendanceCounts          `json:"totals"`
	Courses     []CourseAttendanceSummary `json:"courses"`
	System      *SystemCounts             `json:"system,omitempty"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// AnalyticsSystemMetrics represents system level analytics captured from instrumentation.
type AnalyticsSystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	DBQueryCount             uint64    `json:"db_query_count"`
	AverageDBQueryDurationMs float64   `json:"average_db_query_duration_ms"`
	AttendanceMarks          uint64    `json:"attendance_marks"`
	RefreshTokensPurged      uint64    `json:"refresh_tokens_purged"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
