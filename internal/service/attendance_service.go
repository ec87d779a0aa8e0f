package service

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/repository"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
)

type attendanceStore interface {
	UpsertBatch(ctx context.Context, records []models.Attendance) (repository.UpsertResult, error)
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type assignmentChecker interface {
	IsAssigned(ctx context.Context, teacherID, courseID string) (bool, error)
}

type scheduleReader interface {
	ScheduledDays(ctx context.Context, courseID string) ([]int, error)
}

type rosterReader interface {
	ListStudents(ctx context.Context, courseID string) ([]models.EnrolledStudent, error)
	EnrolledAmong(ctx context.Context, courseID string, studentIDs []string) ([]string, error)
}

type teacherCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
	ListForTeacher(ctx context.Context, teacherID string) ([]models.TeacherCourse, error)
}

// AttendanceService coordinates attendance marking by teachers.
type AttendanceService struct {
	attendance  attendanceStore
	assignments assignmentChecker
	timetable   scheduleReader
	enrollments rosterReader
	courses     teacherCourseReader
	cache       *CacheService
	metrics     *MetricsService
	validator   *validator.Validate
	logger      *zap.Logger
	now         func() time.Time
}

// NewAttendanceService constructs the attendance service.
func NewAttendanceService(
	attendance attendanceStore,
	assignments assignmentChecker,
	timetable scheduleReader,
	enrollments rosterReader,
	courses teacherCourseReader,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &AttendanceService{
		attendance:  attendance,
		assignments: assignments,
		timetable:   timetable,
		enrollments: enrollments,
		courses:     courses,
		cache:       cache,
		metrics:     metrics,
		validator:   validate,
		logger:      logger,
		now:         func() time.Time { return time.Now().UTC() },
	}
	registerAttendanceRules(svc.validator)
	return svc
}

func registerAttendanceRules(v *validator.Validate) {
	mustRegisterValidation(v, "attendance_status", func(fl validator.FieldLevel) bool {
		return models.AttendanceStatus(fl.Field().String()).Valid()
	})
}

// mustRegisterValidation panics when a rule cannot be registered: a status
// field checked by a missing rule would panic on first use anyway, and a
// silently absent rule would accept any status.
func mustRegisterValidation(v *validator.Validate, tag string, fn validator.Func) {
	if err := v.RegisterValidation(tag, fn); err != nil {
		panic(fmt.Sprintf("register validation %q: %v", tag, err))
	}
}

// MarkAttendance records one status per student for a course and date. Every
// rule is checked before anything is written and the rows are stored
// atomically; re-marking the same key overwrites the previous status.
func (s *AttendanceService) MarkAttendance(ctx context.Context, teacherID string, req dto.MarkAttendanceRequest) (*dto.MarkAttendanceResult, error) {
	for i := range req.Rows {
		req.Rows[i].Status = models.AttendanceStatus(strings.ToUpper(strings.TrimSpace(string(req.Rows[i].Status))))
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err, "invalid attendance payload")
	}
	date, err := time.Parse(models.DateLayout, req.Date)
	if err != nil {
		return nil, invalid("date must use YYYY-MM-DD")
	}

	studentIDs := make([]string, 0, len(req.Rows))
	seen := make(map[string]struct{}, len(req.Rows))
	for _, row := range req.Rows {
		if _, dup := seen[row.StudentID]; dup {
			return nil, invalid("each student may appear only once per marking")
		}
		seen[row.StudentID] = struct{}{}
		studentIDs = append(studentIDs, row.StudentID)
	}

	assigned, err := s.assignments.IsAssigned(ctx, teacherID, req.CourseID)
	if err != nil {
		return nil, internal(err, "failed to verify teacher assignment")
	}
	if !assigned {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this course")
	}

	days, err := s.timetable.ScheduledDays(ctx, req.CourseID)
	if err != nil {
		return nil, internal(err, "failed to load timetable")
	}
	if len(days) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNoTimetable, "")
	}
	if !req.IsMakeUp && !containsDay(days, int(date.Weekday())) {
		return nil, appErrors.Clone(appErrors.ErrNotScheduledDay, "")
	}

	enrolled, err := s.enrollments.EnrolledAmong(ctx, req.CourseID, studentIDs)
	if err != nil {
		return nil, internal(err, "failed to verify enrollments")
	}
	if len(enrolled) != len(studentIDs) {
		return nil, invalid("one or more students are not enrolled in this course")
	}

	records := make([]models.Attendance, 0, len(req.Rows))
	for _, row := range req.Rows {
		records = append(records, models.Attendance{
			StudentID:         row.StudentID,
			CourseID:          req.CourseID,
			MarkedByTeacherID: teacherID,
			Date:              date,
			Status:            row.Status,
			IsMakeUp:          req.IsMakeUp,
		})
	}

	result, err := s.attendance.UpsertBatch(ctx, records)
	if err != nil {
		return nil, internal(err, "failed to save attendance")
	}

	s.cache.InvalidateAnalytics(ctx)
	s.metrics.RecordAttendanceMarks(result.Created, result.Updated)
	s.logger.Info("attendance marked",
		zap.String("teacher_id", teacherID),
		zap.String("course_id", req.CourseID),
		zap.String("date", req.Date),
		zap.Bool("make_up", req.IsMakeUp),
		zap.Int("created", result.Created),
		zap.Int("updated", result.Updated),
	)

	return &dto.MarkAttendanceResult{
		CourseID: req.CourseID,
		Date:     req.Date,
		IsMakeUp: req.IsMakeUp,
		Created:  result.Created,
		Updated:  result.Updated,
	}, nil
}

// ListTeacherCourses returns the courses the teacher is assigned to.
func (s *AttendanceService) ListTeacherCourses(ctx context.Context, teacherID string) ([]models.TeacherCourse, error) {
	courses, err := s.courses.ListForTeacher(ctx, teacherID)
	if err != nil {
		return nil, internal(err, "failed to list courses")
	}
	return courses, nil
}

// AttendanceSheet builds the marking form for a date. A zero date means today.
func (s *AttendanceService) AttendanceSheet(ctx context.Context, teacherID, courseID string, date time.Time) (*dto.AttendanceSheet, error) {
	if date.IsZero() {
		date = s.now()
	}
	date = time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, time.UTC)

	if err := s.requireAssignment(ctx, teacherID, courseID); err != nil {
		return nil, err
	}

	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, notFound(err, "course not found")
	}

	days, err := s.timetable.ScheduledDays(ctx, courseID)
	if err != nil {
		return nil, internal(err, "failed to load timetable")
	}

	students, err := s.enrollments.ListStudents(ctx, courseID)
	if err != nil {
		return nil, internal(err, "failed to load roster")
	}

	existing, err := s.attendance.List(ctx, models.AttendanceFilter{CourseID: courseID, TeacherID: teacherID, From: &date, To: &date})
	if err != nil {
		return nil, internal(err, "failed to load attendance")
	}
	marked := make(map[string]models.AttendanceStatus, len(existing))
	for _, rec := range existing {
		marked[rec.StudentID] = rec.Status
	}

	sort.SliceStable(students, func(i, j int) bool { return students[i].Name < students[j].Name })
	rows := make([]dto.AttendanceSheetRow, 0, len(students))
	for _, st := range students {
		row := dto.AttendanceSheetRow{StudentID: st.StudentID, Name: st.Name, Email: st.Email, Status: models.AttendancePresent}
		if status, ok := marked[st.StudentID]; ok {
			row.Status = status
			row.Marked = true
		}
		rows = append(rows, row)
	}
	if days == nil {
		days = []int{}
	}

	return &dto.AttendanceSheet{
		CourseID:       course.ID,
		CourseCode:     course.Code,
		CourseName:     course.Name,
		Date:           date.Format(models.DateLayout),
		ScheduledDays:  days,
		IsScheduledDay: containsDay(days, int(date.Weekday())),
		Students:       rows,
	}, nil
}

func (s *AttendanceService) requireAssignment(ctx context.Context, teacherID, courseID string) error {
	assigned, err := s.assignments.IsAssigned(ctx, teacherID, courseID)
	if err != nil {
		return internal(err, "failed to verify teacher assignment")
	}
	if !assigned {
		return appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this course")
	}
	return nil
}

func containsDay(days []int, day int) bool {
	for _, d := range days {
		if d == day {
			return true
		}
	}
	return false
}
