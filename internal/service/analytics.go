package service

import (
	"math"
	"sort"

	"github.com/noah-isme/ams-api/internal/models"
)

// AttendancePercentage weighs late as half present and rounds half to even.
// A zero total yields 0.
func AttendancePercentage(present, late, total int) int {
	if total <= 0 {
		return 0
	}
	pct := math.RoundToEven(100 * (float64(present) + 0.5*float64(late)) / float64(total))
	switch {
	case pct < 0:
		return 0
	case pct > 100:
		return 100
	default:
		return int(pct)
	}
}

// Totals counts every record.
func Totals(records []models.AttendanceRecord) models.AttendanceCounts {
	var counts models.AttendanceCounts
	for _, rec := range records {
		tally(&counts, rec.Status)
	}
	return withPercentage(counts)
}

// SummarizeByCourse groups records per course, ordered by total descending
// then course code.
func SummarizeByCourse(records []models.AttendanceRecord) []models.CourseAttendanceSummary {
	index := make(map[string]int)
	out := make([]models.CourseAttendanceSummary, 0)
	for _, rec := range records {
		i, ok := index[rec.CourseID]
		if !ok {
			i = len(out)
			index[rec.CourseID] = i
			out = append(out, models.CourseAttendanceSummary{CourseID: rec.CourseID, CourseCode: rec.CourseCode, CourseName: rec.CourseName})
		}
		tally(&out[i].AttendanceCounts, rec.Status)
	}
	for i := range out {
		out[i].AttendanceCounts = withPercentage(out[i].AttendanceCounts)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].CourseCode < out[j].CourseCode
	})
	return out
}

// SummarizeByStudent groups records per student, ordered by total descending
// then name.
func SummarizeByStudent(records []models.AttendanceRecord) []models.StudentAttendanceSummary {
	index := make(map[string]int)
	out := make([]models.StudentAttendanceSummary, 0)
	for _, rec := range records {
		i, ok := index[rec.StudentID]
		if !ok {
			i = len(out)
			index[rec.StudentID] = i
			out = append(out, models.StudentAttendanceSummary{StudentID: rec.StudentID, StudentName: rec.StudentName, StudentEmail: rec.StudentEmail})
		}
		tally(&out[i].AttendanceCounts, rec.Status)
	}
	for i := range out {
		out[i].AttendanceCounts = withPercentage(out[i].AttendanceCounts)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].StudentName < out[j].StudentName
	})
	return out
}

func tally(c *models.AttendanceCounts, status models.AttendanceStatus) {
	switch status {
	case models.AttendancePresent:
		c.Present++
	case models.AttendanceLate:
		c.Late++
	case models.AttendanceAbsent:
		c.Absent++
	default:
		return
	}
	c.Total++
}

func withPercentage(c models.AttendanceCounts) models.AttendanceCounts {
	c.Percentage = AttendancePercentage(c.Present, c.Late, c.Total)
	return c
}
