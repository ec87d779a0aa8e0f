package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/repository"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type attendanceKey struct {
	student, course, date, teacher string
}

type memoryAttendanceStore struct {
	rows      map[attendanceKey]models.Attendance
	upserts   int
	upsertErr error
}

func newMemoryAttendanceStore() *memoryAttendanceStore {
	return &memoryAttendanceStore{rows: make(map[attendanceKey]models.Attendance)}
}

func (m *memoryAttendanceStore) UpsertBatch(ctx context.Context, records []models.Attendance) (repository.UpsertResult, error) {
	m.upserts++
	if m.upsertErr != nil {
		return repository.UpsertResult{}, m.upsertErr
	}
	var res repository.UpsertResult
	for _, rec := range records {
		key := attendanceKey{rec.StudentID, rec.CourseID, rec.Date.Format(models.DateLayout), rec.MarkedByTeacherID}
		if existing, ok := m.rows[key]; ok {
			existing.Status = rec.Status
			existing.IsMakeUp = rec.IsMakeUp
			m.rows[key] = existing
			res.Updated++
			continue
		}
		m.rows[key] = rec
		res.Created++
	}
	return res, nil
}

func (m *memoryAttendanceStore) List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error) {
	var out []models.AttendanceRecord
	for _, rec := range m.rows {
		if filter.CourseID != "" && rec.CourseID != filter.CourseID {
			continue
		}
		if filter.TeacherID != "" && rec.MarkedByTeacherID != filter.TeacherID {
			continue
		}
		if filter.From != nil && rec.Date.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.Date.After(*filter.To) {
			continue
		}
		out = append(out, models.AttendanceRecord{Attendance: rec})
	}
	return out, nil
}

type stubCourseWorld struct {
	assigned map[string]bool
	days     map[string][]int
	roster   map[string][]models.EnrolledStudent
	calls    []string
}

func (w *stubCourseWorld) IsAssigned(ctx context.Context, teacherID, courseID string) (bool, error) {
	w.calls = append(w.calls, "assigned")
	return w.assigned[teacherID+"/"+courseID], nil
}

func (w *stubCourseWorld) ScheduledDays(ctx context.Context, courseID string) ([]int, error) {
	w.calls = append(w.calls, "timetable")
	return w.days[courseID], nil
}

func (w *stubCourseWorld) ListStudents(ctx context.Context, courseID string) ([]models.EnrolledStudent, error) {
	return w.roster[courseID], nil
}

func (w *stubCourseWorld) EnrolledAmong(ctx context.Context, courseID string, studentIDs []string) ([]string, error) {
	w.calls = append(w.calls, "enrolled")
	var out []string
	for _, id := range studentIDs {
		for _, st := range w.roster[courseID] {
			if st.StudentID == id {
				out = append(out, id)
			}
		}
	}
	return out, nil
}

func (w *stubCourseWorld) FindByID(ctx context.Context, id string) (*models.Course, error) {
	return &models.Course{ID: id, Code: "CS101", Name: "Intro"}, nil
}

func (w *stubCourseWorld) ListForTeacher(ctx context.Context, teacherID string) ([]models.TeacherCourse, error) {
	return []models.TeacherCourse{{CourseID: "c1", Code: "CS101"}}, nil
}

// 2024-03-04 is a Monday.
func newAttendanceFixture() (*AttendanceService, *memoryAttendanceStore, *stubCourseWorld, *memoryCacheRepo) {
	world := &stubCourseWorld{
		assigned: map[string]bool{"t1/c1": true, "t1/c2": true},
		days:     map[string][]int{"c1": {1, 3}},
		roster: map[string][]models.EnrolledStudent{
			"c1": {{StudentID: "s2", Name: "Zoe"}, {StudentID: "s1", Name: "Adam"}},
		},
	}
	store := newMemoryAttendanceStore()
	cacheRepo := newMemoryCacheRepo()
	cache := NewCacheService(cacheRepo, nil, time.Minute, nil, true)
	svc := NewAttendanceService(store, world, world, world, world, cache, NewMetricsService(), nil, nil)
	return svc, store, world, cacheRepo
}

func markRequest(date string, makeUp bool, rows ...dto.AttendanceRowInput) dto.MarkAttendanceRequest {
	return dto.MarkAttendanceRequest{CourseID: "c1", Date: date, IsMakeUp: makeUp, Rows: rows}
}

func TestMarkAttendanceSuccessAndOverwrite(t *testing.T) {
	svc, store, _, cacheRepo := newAttendanceFixture()
	cacheRepo.items["analytics:admin"] = []byte(`{}`)

	res, err := svc.MarkAttendance(context.Background(), "t1", markRequest("2024-03-04", false,
		dto.AttendanceRowInput{StudentID: "s1", Status: "present"},
		dto.AttendanceRowInput{StudentID: "s2", Status: models.AttendanceAbsent},
	))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Created)
	assert.Empty(t, cacheRepo.items)

	res, err = svc.MarkAttendance(context.Background(), "t1", markRequest("2024-03-04", false,
		dto.AttendanceRowInput{StudentID: "s1", Status: models.AttendanceLate},
	))
	require.NoError(t, err)
	assert.Equal(t, 0, res.Created)
	assert.Equal(t, 1, res.Updated)
	assert.Len(t, store.rows, 2)
	assert.Equal(t, models.AttendanceLate, store.rows[attendanceKey{"s1", "c1", "2024-03-04", "t1"}].Status)
	assert.EqualValues(t, 3, svc.metrics.Snapshot().AttendanceMarks)
}

func TestMarkAttendanceRules(t *testing.T) {
	present := dto.AttendanceRowInput{StudentID: "s1", Status: models.AttendancePresent}

	cases := []struct {
		name    string
		teacher string
		req     dto.MarkAttendanceRequest
		code    string
	}{
		{name: "no rows", teacher: "t1", req: markRequest("2024-03-04", false), code: appErrors.ErrValidation.Code},
		{name: "bad status", teacher: "t1", req: markRequest("2024-03-04", false, dto.AttendanceRowInput{StudentID: "s1", Status: "EXCUSED"}), code: appErrors.ErrValidation.Code},
		{name: "bad date", teacher: "t1", req: markRequest("04/03/2024", false, present), code: appErrors.ErrValidation.Code},
		{name: "not assigned", teacher: "t9", req: markRequest("2024-03-04", false, present), code: appErrors.ErrForbidden.Code},
		{name: "unscheduled day", teacher: "t1", req: markRequest("2024-03-05", false, present), code: appErrors.ErrNotScheduledDay.Code},
		{name: "not enrolled", teacher: "t1", req: markRequest("2024-03-04", false, dto.AttendanceRowInput{StudentID: "s9", Status: models.AttendancePresent}), code: appErrors.ErrValidation.Code},
		{name: "duplicate student", teacher: "t1", req: markRequest("2024-03-04", false, present, present), code: appErrors.ErrValidation.Code},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, _, _ := newAttendanceFixture()
			_, err := svc.MarkAttendance(context.Background(), tc.teacher, tc.req)
			require.Error(t, err)
			assert.Equal(t, tc.code, appErrors.FromError(err).Code)
			assert.Zero(t, store.upserts)
		})
	}
}

func TestMarkAttendanceMakeUpBypassesWeekday(t *testing.T) {
	svc, store, _, _ := newAttendanceFixture()
	_, err := svc.MarkAttendance(context.Background(), "t1", markRequest("2024-03-09", true,
		dto.AttendanceRowInput{StudentID: "s1", Status: models.AttendancePresent},
	))
	require.NoError(t, err)
	assert.True(t, store.rows[attendanceKey{"s1", "c1", "2024-03-09", "t1"}].IsMakeUp)
}

func TestMarkAttendanceWithoutTimetableAlwaysRejects(t *testing.T) {
	svc, _, world, _ := newAttendanceFixture()
	world.roster["c2"] = world.roster["c1"]

	for _, makeUp := range []bool{false, true} {
		req := markRequest("2024-03-04", makeUp, dto.AttendanceRowInput{StudentID: "s1", Status: models.AttendancePresent})
		req.CourseID = "c2"
		_, err := svc.MarkAttendance(context.Background(), "t1", req)
		require.Error(t, err)
		assert.Equal(t, appErrors.ErrNoTimetable.Code, appErrors.FromError(err).Code)
	}
}

func TestMarkAttendanceChecksAssignmentBeforeTimetable(t *testing.T) {
	svc, _, world, _ := newAttendanceFixture()
	req := markRequest("2024-03-04", false, dto.AttendanceRowInput{StudentID: "s1", Status: models.AttendancePresent})
	req.CourseID = "c3"

	_, err := svc.MarkAttendance(context.Background(), "t1", req)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
	assert.Equal(t, []string{"assigned"}, world.calls)
}

func TestMarkAttendanceStoreFailure(t *testing.T) {
	svc, store, _, _ := newAttendanceFixture()
	store.upsertErr = errors.New("deadlock")
	_, err := svc.MarkAttendance(context.Background(), "t1", markRequest("2024-03-04", false,
		dto.AttendanceRowInput{StudentID: "s1", Status: models.AttendancePresent},
	))
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrInternal.Code, appErrors.FromError(err).Code)
}

func TestAttendanceSheetDefaultsToPresent(t *testing.T) {
	svc, _, _, _ := newAttendanceFixture()
	_, err := svc.MarkAttendance(context.Background(), "t1", markRequest("2024-03-04", false,
		dto.AttendanceRowInput{StudentID: "s2", Status: models.AttendanceAbsent},
	))
	require.NoError(t, err)

	sheet, err := svc.AttendanceSheet(context.Background(), "t1", "c1", time.Date(2024, 3, 4, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.True(t, sheet.IsScheduledDay)
	require.Len(t, sheet.Students, 2)
	assert.Equal(t, "Adam", sheet.Students[0].Name)
	assert.Equal(t, models.AttendancePresent, sheet.Students[0].Status)
	assert.False(t, sheet.Students[0].Marked)
	assert.Equal(t, models.AttendanceAbsent, sheet.Students[1].Status)
	assert.True(t, sheet.Students[1].Marked)

	_, err = svc.AttendanceSheet(context.Background(), "t9", "c1", time.Time{})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, appErrors.FromError(err).Code)
}
