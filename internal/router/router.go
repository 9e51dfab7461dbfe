package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/emadrasa/emadrasa-api/internal/handler"
	"github.com/emadrasa/emadrasa-api/internal/middleware"
	"github.com/emadrasa/emadrasa-api/internal/models"
	"github.com/emadrasa/emadrasa-api/internal/repository"
	"github.com/emadrasa/emadrasa-api/internal/service"
)

// Handlers bundles every HTTP handler the router mounts.
type Handlers struct {
	Auth       *handler.AuthHandler
	School     *handler.SchoolHandler
	Teacher    *handler.TeacherHandler
	Student    *handler.StudentHandler
	Subject    *handler.SubjectHandler
	Class      *handler.ClassHandler
	Enrollment *handler.EnrollmentHandler
	Schedule   *handler.ScheduleHandler
	Dashboard  *handler.DashboardHandler
}

// Deps carries the cross-cutting services route registration needs.
type Deps struct {
	Auth    *service.AuthService
	Metrics *service.MetricsService
	Users   *repository.UserRepository
	DB      *sqlx.DB
	Prefix  string
}

// Register mounts all API routes under the configured prefix. Teachers get
// read access plus enrollment writes; destructive and administrative routes
// require the admin role.
func Register(r *gin.Engine, h Handlers, deps Deps) {
	r.Use(middleware.Metrics(deps.Metrics))
	r.Use(middleware.WithResponseMeta())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/ready", func(c *gin.Context) {
		if deps.DB != nil {
			if err := deps.DB.PingContext(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
				return
			}
		}
		c.JSON(http.StatusOK, gin.H{"status": "ready"})
	})
	r.GET("/metrics", gin.WrapH(deps.Metrics.Handler()))

	prefix := deps.Prefix
	if prefix == "" {
		prefix = "/api/v1"
	}
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(deps.Auth), h.Auth.Logout)
	}

	authed := api.Group("")
	authed.Use(middleware.JWT(deps.Auth))

	adminOnly := middleware.RequireRoles(models.RoleAdmin)

	schools := authed.Group("/schools")
	{
		schools.GET("", h.School.List)
		schools.GET("/:id", h.School.Get)
		schools.POST("", adminOnly, h.School.Create)
		schools.PUT("/:id", adminOnly, h.School.Update)
		schools.DELETE("/:id", adminOnly, h.School.Delete)
	}

	teachers := authed.Group("/teachers")
	{
		teachers.GET("", h.Teacher.List)
		teachers.GET("/:id", h.Teacher.Get)
		teachers.POST("", adminOnly, h.Teacher.Create)
		teachers.PUT("/:id", adminOnly, h.Teacher.Update)
		teachers.DELETE("/:id", adminOnly, h.Teacher.Delete)
	}

	students := authed.Group("/students")
	{
		students.GET("", h.Student.List)
		students.GET("/:id", h.Student.Get)
		students.POST("", h.Student.Create)
		students.PUT("/:id", h.Student.Update)
		students.DELETE("/:id", adminOnly, h.Student.Delete)
	}

	subjects := authed.Group("/subjects")
	{
		subjects.GET("", h.Subject.List)
		subjects.GET("/:id", h.Subject.Get)
		subjects.POST("", adminOnly, h.Subject.Create)
		subjects.PUT("/:id", adminOnly, h.Subject.Update)
		subjects.DELETE("/:id", adminOnly, h.Subject.Delete)
	}

	classes := authed.Group("/classes")
	{
		classes.GET("", h.Class.List)
		classes.GET("/:id", h.Class.Get)
		classes.GET("/:id/schedule", h.Class.Schedule)
		classes.GET("/:id/roster", h.Class.Roster)
		classes.GET("/:id/roster/export", h.Class.ExportRoster)
		classes.POST("", adminOnly, middleware.Audit(deps.Users, models.AuditActionClassWrite, "class"), h.Class.Create)
		classes.PUT("/:id", adminOnly, middleware.Audit(deps.Users, models.AuditActionClassWrite, "class"), h.Class.Update)
		classes.DELETE("/:id", adminOnly, middleware.Audit(deps.Users, models.AuditActionClassWrite, "class"), h.Class.Delete)
	}

	enrollments := authed.Group("/enrollments")
	auditEnrollment := middleware.Audit(deps.Users, models.AuditActionEnrollmentWrite, "enrollment")
	{
		enrollments.GET("", h.Enrollment.List)
		enrollments.GET("/:id", h.Enrollment.Get)
		enrollments.POST("", auditEnrollment, h.Enrollment.Create)
		enrollments.POST("/bulk", auditEnrollment, h.Enrollment.Bulk)
		enrollments.PUT("/:id", auditEnrollment, h.Enrollment.UpdateStatus)
		enrollments.PUT("/:id/transfer", adminOnly, auditEnrollment, h.Enrollment.Transfer)
		enrollments.DELETE("/:id", adminOnly, auditEnrollment, h.Enrollment.Delete)
	}

	schedule := authed.Group("/schedule")
	{
		schedule.GET("", h.Schedule.List)
		schedule.POST("/validate", adminOnly, h.Schedule.Validate)
		schedule.GET("/conflicts", h.Schedule.Conflicts)
		schedule.GET("/rooms", h.Schedule.Rooms)
	}

	dashboard := authed.Group("/dashboard")
	dashboard.Use(adminOnly)
	{
		dashboard.GET("/stats", h.Dashboard.Stats)
		dashboard.GET("/system", h.Dashboard.System)
	}
}
