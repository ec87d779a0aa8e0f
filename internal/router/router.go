package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/ams-api/internal/handler"
	"github.com/noah-isme/ams-api/internal/middleware"
	"github.com/noah-isme/ams-api/internal/models"
	"github.com/noah-isme/ams-api/internal/service"
	"github.com/noah-isme/ams-api/pkg/logger"
	corsmiddleware "github.com/noah-isme/ams-api/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/ams-api/pkg/middleware/requestid"
)

// Handlers groups every HTTP handler mounted by New.
type Handlers struct {
	Auth        *handler.AuthHandler
	Users       *handler.UserHandler
	Batches     *handler.BatchHandler
	Courses     *handler.CourseHandler
	Timetable   *handler.TimetableHandler
	Enrollments *handler.EnrollmentHandler
	Assignments *handler.AssignmentHandler
	Teacher     *handler.TeacherHandler
	Student     *handler.StudentHandler
	Reports     *handler.ReportHandler
	Analytics   *handler.AnalyticsHandler
	Metrics     *handler.MetricsHandler
}

// Options carries the cross-cutting collaborators used by the middleware chain.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	AccessCookie   string
	EnableDocs     bool
	Tokens         middleware.TokenValidator
	MetricsService *service.MetricsService
	AuditWriter    middleware.AuditWriter
	Logger         *zap.Logger
}

// New builds the gin engine with the global middleware and every route group.
func New(opts Options, h Handlers) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api"
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger, "/health", "/ready", "/metrics"))
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.MetricsService))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	jwt := middleware.JWT(opts.Tokens, opts.AccessCookie)
	api := r.Group(opts.APIPrefix)
	api.Use(middleware.WithResponseMeta())

	auth := api.Group("/auth")
	auth.POST("/login", h.Auth.Login)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/logout", middleware.OptionalJWT(opts.Tokens, opts.AccessCookie), h.Auth.Logout)
	auth.GET("/me", jwt, h.Auth.Me)
	auth.POST("/change-password", jwt, h.Auth.ChangePassword)

	registerAdmin(api.Group("/admin", jwt, middleware.RequireRoles(models.RoleAdmin)), h)
	registerTeacher(api.Group("/teacher", jwt, middleware.RequireRoles(models.RoleTeacher)), h, opts)
	registerStudent(api.Group("/student", jwt, middleware.RequireRoles(models.RoleStudent)), h, opts)

	return r
}

func registerAdmin(admin *gin.RouterGroup, h Handlers) {
	users := admin.Group("/users")
	users.GET("", h.Users.List)
	users.GET("/:id", h.Users.Get)
	users.POST("/teachers", h.Users.CreateTeacher)
	users.POST("/students", h.Users.CreateStudent)
	users.PUT("/:id", h.Users.Update)
	users.DELETE("/:id", h.Users.Delete)

	batches := admin.Group("/batches")
	batches.GET("", h.Batches.List)
	batches.GET("/:id", h.Batches.Get)
	batches.POST("", h.Batches.Create)
	batches.PUT("/:id", h.Batches.Update)
	batches.DELETE("/:id", h.Batches.Delete)

	courses := admin.Group("/courses")
	courses.GET("", h.Courses.List)
	courses.GET("/:id", h.Courses.Get)
	courses.POST("", h.Courses.Create)
	courses.PUT("/:id", h.Courses.Update)
	courses.DELETE("/:id", h.Courses.Delete)

	timetable := admin.Group("/timetable")
	timetable.GET("", h.Timetable.List)
	timetable.POST("", h.Timetable.Create)
	timetable.PUT("/:id", h.Timetable.Update)
	timetable.DELETE("/:id", h.Timetable.Delete)

	enrollments := admin.Group("/enrollments")
	enrollments.GET("", h.Enrollments.List)
	enrollments.POST("", h.Enrollments.Create)
	enrollments.DELETE("/:id", h.Enrollments.Delete)

	assignments := admin.Group("/assignments")
	assignments.GET("", h.Assignments.List)
	assignments.POST("", h.Assignments.Create)
	assignments.DELETE("/:id", h.Assignments.Delete)

	admin.GET("/analytics", h.Analytics.Admin)
	admin.GET("/analytics/system", h.Analytics.System)
}

func registerTeacher(teacher *gin.RouterGroup, h Handlers, opts Options) {
	exportAudit := middleware.Audit(opts.AuditWriter, opts.Logger, models.AuditActionExport, "reports")

	teacher.GET("/courses", h.Teacher.Courses)
	teacher.GET("/courses/:courseId/attendance", h.Teacher.AttendanceSheet)
	teacher.POST("/courses/:courseId/attendance", h.Teacher.MarkAttendance)
	teacher.GET("/students", h.Teacher.Students)

	reports := teacher.Group("/reports")
	reports.GET("/courses/:courseId", h.Reports.TeacherCourse)
	reports.GET("/courses/:courseId/export", exportAudit, h.Reports.ExportTeacherCourse)
	reports.GET("/students/:studentId", h.Reports.TeacherStudent)
	reports.GET("/students/:studentId/export", exportAudit, h.Reports.ExportTeacherStudent)

	teacher.GET("/analytics", h.Analytics.Teacher)
}

func registerStudent(student *gin.RouterGroup, h Handlers, opts Options) {
	student.GET("/courses", h.Student.Courses)
	student.POST("/courses/:courseId/enroll", h.Student.Enroll)
	student.DELETE("/courses/:courseId/enroll", h.Student.Unenroll)

	student.GET("/reports/courses/:courseId", h.Reports.StudentCourse)
	student.GET("/reports/courses/:courseId/export",
		middleware.Audit(opts.AuditWriter, opts.Logger, models.AuditActionExport, "reports"),
		h.Reports.ExportStudentCourse)

	student.GET("/analytics", h.Analytics.Student)
}
