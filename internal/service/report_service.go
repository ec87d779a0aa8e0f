package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/dto"
	"github.com/noah-isme/ams-api/internal/models"
	appErrors "github.com/noah-isme/ams-api/pkg/errors"
	"github.com/noah-isme/ams-api/pkg/export"
)

type reportAttendanceReader interface {
	List(ctx context.Context, filter models.AttendanceFilter) ([]models.AttendanceRecord, error)
}

type reportCourseReader interface {
	FindByID(ctx context.Context, id string) (*models.Course, error)
}

type reportUserReader interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

type reportEnrollmentReader interface {
	Exists(ctx context.Context, studentID, courseID string) (bool, error)
	SharesCourseWithTeacher(ctx context.Context, studentID, teacherID string) (bool, error)
	ListStudentsForTeacher(ctx context.Context, teacherID, search string) ([]models.TeacherStudent, error)
}

// ReportService serves attendance reports and their exports to teachers and students.
type ReportService struct {
	attendance  reportAttendanceReader
	assignments assignmentChecker
	courses     reportCourseReader
	users       reportUserReader
	enrollments reportEnrollmentReader
	exporter    *ExportService
	logger      *zap.Logger
}

// NewReportService constructs a ReportService.
func NewReportService(
	attendance reportAttendanceReader,
	assignments assignmentChecker,
	courses reportCourseReader,
	users reportUserReader,
	enrollments reportEnrollmentReader,
	exporter *ExportService,
	logger *zap.Logger,
) *ReportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if exporter == nil {
		exporter = NewExportService(logger, nil, nil)
	}
	return &ReportService{
		attendance:  attendance,
		assignments: assignments,
		courses:     courses,
		users:       users,
		enrollments: enrollments,
		exporter:    exporter,
		logger:      logger,
	}
}

// TeacherStudents lists students enrolled in any of the teacher's courses.
func (s *ReportService) TeacherStudents(ctx context.Context, teacherID, search string) ([]models.TeacherStudent, error) {
	students, err := s.enrollments.ListStudentsForTeacher(ctx, teacherID, strings.TrimSpace(search))
	if err != nil {
		return nil, internal(err, "failed to list students")
	}
	return students, nil
}

// TeacherCourseReport returns the teacher's own records for an assigned course.
func (s *ReportService) TeacherCourseReport(ctx context.Context, teacherID, courseID string, rng dto.ReportRange) (*dto.CourseReport, error) {
	course, records, err := s.teacherCourseRecords(ctx, teacherID, courseID, rng, false)
	if err != nil {
		return nil, err
	}
	return &dto.CourseReport{
		CourseID:   course.ID,
		CourseCode: course.Code,
		CourseName: course.Name,
		Totals:     Totals(records),
		Students:   SummarizeByStudent(records),
		Records:    nonNilRecords(records),
	}, nil
}

// ExportTeacherCourse renders the course report oldest first.
func (s *ReportService) ExportTeacherCourse(ctx context.Context, teacherID, courseID string, rng dto.ReportRange, format dto.ReportFormat) (*dto.ExportFile, error) {
	course, records, err := s.teacherCourseRecords(ctx, teacherID, courseID, rng, true)
	if err != nil {
		return nil, err
	}
	data := export.NewDataset("Date", "Student", "Email", "Status", "MakeUp")
	for _, rec := range records {
		if err := data.Append(rec.Date.Format(models.DateLayout), rec.StudentName, rec.StudentEmail, rec.Status.Label(), yesNo(rec.IsMakeUp)); err != nil {
			return nil, internal(err, "failed to build export")
		}
	}
	return s.exporter.Render(format, "course", course.Code, course.Code+" attendance", *data)
}

// TeacherStudentReport returns the teacher's records for a student who shares
// at least one of the teacher's courses.
func (s *ReportService) TeacherStudentReport(ctx context.Context, teacherID, studentID string, rng dto.ReportRange) (*dto.StudentReport, error) {
	student, records, err := s.teacherStudentRecords(ctx, teacherID, studentID, rng, false)
	if err != nil {
		return nil, err
	}
	return &dto.StudentReport{
		StudentID:    student.ID,
		StudentName:  student.Name,
		StudentEmail: student.Email,
		Totals:       Totals(records),
		Courses:      SummarizeByCourse(records),
		Records:      nonNilRecords(records),
	}, nil
}

// ExportTeacherStudent renders the student report oldest first.
func (s *ReportService) ExportTeacherStudent(ctx context.Context, teacherID, studentID string, rng dto.ReportRange, format dto.ReportFormat) (*dto.ExportFile, error) {
	student, records, err := s.teacherStudentRecords(ctx, teacherID, studentID, rng, true)
	if err != nil {
		return nil, err
	}
	data := export.NewDataset("Date", "CourseCode", "CourseName", "Status", "MakeUp")
	for _, rec := range records {
		if err := data.Append(rec.Date.Format(models.DateLayout), rec.CourseCode, rec.CourseName, rec.Status.Label(), yesNo(rec.IsMakeUp)); err != nil {
			return nil, internal(err, "failed to build export")
		}
	}
	return s.exporter.Render(format, "student", student.Name, student.Name+" attendance", *data)
}

// StudentCourseReport returns a student's records in one enrolled course from
// every teacher.
func (s *ReportService) StudentCourseReport(ctx context.Context, studentID, courseID string, rng dto.ReportRange) (*dto.MyCourseReport, error) {
	course, records, err := s.studentCourseRecords(ctx, studentID, courseID, rng, false)
	if err != nil {
		return nil, err
	}
	return &dto.MyCourseReport{
		CourseID:   course.ID,
		CourseCode: course.Code,
		CourseName: course.Name,
		Totals:     Totals(records),
		Records:    nonNilRecords(records),
	}, nil
}

// ExportStudentCourse renders a student's own course report oldest first.
func (s *ReportService) ExportStudentCourse(ctx context.Context, studentID, courseID string, rng dto.ReportRange, format dto.ReportFormat) (*dto.ExportFile, error) {
	course, records, err := s.studentCourseRecords(ctx, studentID, courseID, rng, true)
	if err != nil {
		return nil, err
	}
	data := export.NewDataset("Date", "Teacher", "Status", "MakeUp")
	for _, rec := range records {
		if err := data.Append(rec.Date.Format(models.DateLayout), rec.TeacherName, rec.Status.Label(), yesNo(rec.IsMakeUp)); err != nil {
			return nil, internal(err, "failed to build export")
		}
	}
	return s.exporter.Render(format, "my", course.Code, course.Code+" attendance", *data)
}

func (s *ReportService) teacherCourseRecords(ctx context.Context, teacherID, courseID string, rng dto.ReportRange, ascending bool) (*models.Course, []models.AttendanceRecord, error) {
	if err := validateRange(rng); err != nil {
		return nil, nil, err
	}
	assigned, err := s.assignments.IsAssigned(ctx, teacherID, courseID)
	if err != nil {
		return nil, nil, internal(err, "failed to verify teacher assignment")
	}
	if !assigned {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "you are not assigned to this course")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, nil, notFound(err, "course not found")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{
		CourseID:  courseID,
		TeacherID: teacherID,
		From:      rng.From,
		To:        rng.To,
		Ascending: ascending,
	})
	if err != nil {
		return nil, nil, internal(err, "failed to load attendance")
	}
	return course, records, nil
}

func (s *ReportService) teacherStudentRecords(ctx context.Context, teacherID, studentID string, rng dto.ReportRange, ascending bool) (*models.User, []models.AttendanceRecord, error) {
	if err := validateRange(rng); err != nil {
		return nil, nil, err
	}
	shares, err := s.enrollments.SharesCourseWithTeacher(ctx, studentID, teacherID)
	if err != nil {
		return nil, nil, internal(err, "failed to verify student access")
	}
	if !shares {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "student is not enrolled in any of your courses")
	}
	student, err := s.users.FindByID(ctx, studentID)
	if err != nil {
		return nil, nil, notFound(err, "student not found")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{
		StudentID: studentID,
		TeacherID: teacherID,
		From:      rng.From,
		To:        rng.To,
		Ascending: ascending,
	})
	if err != nil {
		return nil, nil, internal(err, "failed to load attendance")
	}
	return student, records, nil
}

func (s *ReportService) studentCourseRecords(ctx context.Context, studentID, courseID string, rng dto.ReportRange, ascending bool) (*models.Course, []models.AttendanceRecord, error) {
	if err := validateRange(rng); err != nil {
		return nil, nil, err
	}
	enrolled, err := s.enrollments.Exists(ctx, studentID, courseID)
	if err != nil {
		return nil, nil, internal(err, "failed to verify enrollment")
	}
	if !enrolled {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "you are not enrolled in this course")
	}
	course, err := s.courses.FindByID(ctx, courseID)
	if err != nil {
		return nil, nil, notFound(err, "course not found")
	}
	records, err := s.attendance.List(ctx, models.AttendanceFilter{
		StudentID: studentID,
		CourseID:  courseID,
		From:      rng.From,
		To:        rng.To,
		Ascending: ascending,
	})
	if err != nil {
		return nil, nil, internal(err, "failed to load attendance")
	}
	return course, records, nil
}

func validateRange(rng dto.ReportRange) error {
	if rng.From != nil && rng.To != nil && rng.To.Before(*rng.From) {
		return invalid("to must not be before from")
	}
	return nil
}

func nonNilRecords(records []models.AttendanceRecord) []models.AttendanceRecord {
	if records == nil {
		return []models.AttendanceRecord{}
	}
	return records
}

func yesNo(v bool) string {
	if v {
		return "Yes"
	}
	return "No"
}
