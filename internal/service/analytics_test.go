package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/models"
)

func record(studentID, studentName, courseID, code string, status models.AttendanceStatus) models.AttendanceRecord {
	return models.AttendanceRecord{
		Attendance:  models.Attendance{StudentID: studentID, CourseID: courseID, Status: status},
		StudentName: studentName,
		CourseCode:  code,
	}
}

func TestAttendancePercentage(t *testing.T) {
	assert.Equal(t, 70, AttendancePercentage(3, 1, 5))
	assert.Equal(t, 0, AttendancePercentage(0, 0, 0))
	assert.Equal(t, 100, AttendancePercentage(4, 0, 4))
	assert.Equal(t, 50, AttendancePercentage(0, 2, 2))
	// 6.25 rounds down; 37.5 rounds to the even 38.
	assert.Equal(t, 6, AttendancePercentage(0, 1, 8))
	assert.Equal(t, 38, AttendancePercentage(1, 1, 4))
	// 12.5 rounds to the even 12.
	assert.Equal(t, 12, AttendancePercentage(0, 1, 4))
	assert.Equal(t, 100, AttendancePercentage(5, 0, 3))
}

func TestTotals(t *testing.T) {
	records := []models.AttendanceRecord{
		record("s1", "A", "c1", "CS1", models.AttendancePresent),
		record("s2", "B", "c1", "CS1", models.AttendancePresent),
		record("s3", "C", "c1", "CS1", models.AttendancePresent),
		record("s4", "D", "c1", "CS1", models.AttendanceLate),
		record("s5", "E", "c1", "CS1", models.AttendanceAbsent),
	}
	got := Totals(records)
	assert.Equal(t, models.AttendanceCounts{Present: 3, Late: 1, Absent: 1, Total: 5, Percentage: 70}, got)
	assert.Equal(t, models.AttendanceCounts{}, Totals(nil))
}

func TestSummarizeByCourseOrdering(t *testing.T) {
	records := []models.AttendanceRecord{
		record("s1", "A", "c2", "MA1", models.AttendancePresent),
		record("s1", "A", "c1", "CS1", models.AttendanceAbsent),
		record("s1", "A", "c3", "BI1", models.AttendancePresent),
		record("s2", "B", "c3", "BI1", models.AttendanceLate),
	}
	got := SummarizeByCourse(records)
	require.Len(t, got, 3)
	assert.Equal(t, "BI1", got[0].CourseCode)
	assert.Equal(t, 75, got[0].Percentage)
	assert.Equal(t, "CS1", got[1].CourseCode)
	assert.Equal(t, 0, got[1].Percentage)
	assert.Equal(t, "MA1", got[2].CourseCode)
}

func TestSummarizeByStudentOrdering(t *testing.T) {
	records := []models.AttendanceRecord{
		record("s2", "Zoe", "c1", "CS1", models.AttendancePresent),
		record("s1", "Adam", "c1", "CS1", models.AttendancePresent),
		record("s3", "Mia", "c1", "CS1", models.AttendanceLate),
		record("s3", "Mia", "c2", "CS2", models.AttendanceLate),
	}
	got := SummarizeByStudent(records)
	require.Len(t, got, 3)
	assert.Equal(t, []string{"Mia", "Adam", "Zoe"}, []string{got[0].StudentName, got[1].StudentName, got[2].StudentName})
	assert.Equal(t, 2, got[0].Late)
	assert.Equal(t, 50, got[0].Percentage)
}
