package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-portal-api/internal/middleware"
	"github.com/noah-isme/school-portal-api/internal/models"
	"github.com/noah-isme/school-portal-api/internal/service"
)

// Handlers bundles every HTTP handler for route registration.
type Handlers struct {
	Auth       *AuthHandler
	User       *UserHandler
	Class      *ClassHandler
	Subject    *SubjectHandler
	Assignment *AssignmentHandler
	Attendance *AttendanceHandler
	Assessment *AssessmentHandler
	Doubt      *DoubtHandler
	Feedback   *FeedbackHandler
	Metrics    *MetricsHandler
}

// RegisterRoutes mounts all API routes under the given prefix.
func RegisterRoutes(r *gin.Engine, prefix string, h Handlers, authService *service.AuthService) {
	api := r.Group(prefix)

	auth := api.Group("/auth")
	{
		auth.POST("/login", h.Auth.Login)
		auth.POST("/refresh", h.Auth.Refresh)
		auth.POST("/logout", middleware.JWT(authService), h.Auth.Logout)
		auth.GET("/me", middleware.JWT(authService), h.Auth.Me)
	}

	protected := api.Group("")
	protected.Use(middleware.JWT(authService))

	users := protected.Group("/users")
	{
		users.POST("", middleware.RequireRoles(models.RoleAdmin), h.User.Create)
		users.GET("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.User.List)
		users.GET("/:id", middleware.RBAC(string(models.RoleAdmin), string(models.RoleTeacher), middleware.SelfRole), h.User.Get)
		users.PUT("/:id", middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole), h.User.Update)
		users.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.User.Delete)

		users.PUT("/:id/assignments", middleware.RequireRoles(models.RoleAdmin), h.Assignment.Assign)
		users.GET("/:id/assignments", middleware.RBAC(string(models.RoleAdmin), middleware.SelfRole), h.Assignment.Get)
	}

	classes := protected.Group("/classes")
	{
		classes.POST("", middleware.RequireRoles(models.RoleAdmin), h.Class.Create)
		classes.GET("", h.Class.List)
		classes.GET("/:id", h.Class.Get)
		classes.PUT("/:id", middleware.RequireRoles(models.RoleAdmin), h.Class.Update)
		classes.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin), h.Class.Delete)
		classes.POST("/:id/schedule", middleware.RequireRoles(models.RoleAdmin), h.Class.AttachSchedule)
		classes.GET("/:id/roster", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Class.Roster)
		classes.GET("/:id/teachers", h.Class.Teachers)
	}

	subjects := protected.Group("/subjects")
	{
		subjects.POST("", middleware.RequireRoles(models.RoleAdmin), h.Subject.Create)
		subjects.GET("", h.Subject.List)
		subjects.GET("/:name", h.Subject.Get)
		subjects.DELETE("/:name", middleware.RequireRoles(models.RoleAdmin), h.Subject.Delete)
	}

	attendance := protected.Group("/attendance")
	{
		attendance.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Attendance.Mark)
		attendance.GET("", h.Attendance.List)
		attendance.GET("/report", h.Attendance.Report)
	}

	assessments := protected.Group("/assessments")
	{
		assessments.POST("", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.Create)
		assessments.GET("", h.Assessment.List)
		assessments.GET("/statistics", h.Assessment.Statistics)
		assessments.GET("/statistics/export", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.ExportStatisticsCSV)
		assessments.GET("/:id", h.Assessment.Get)
		assessments.DELETE("/:id", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.Delete)
		assessments.POST("/:id/marks", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.SaveMarks)
		assessments.GET("/:id/marks", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.ListMarks)
		assessments.GET("/:id/export", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.ExportCSV)
		assessments.GET("/:id/export/pdf", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Assessment.ExportPDF)
	}

	protected.GET("/students/:id/average", h.Assessment.StudentAverage)

	doubts := protected.Group("/doubts")
	{
		doubts.POST("", middleware.RequireRoles(models.RoleStudent), h.Doubt.Submit)
		doubts.GET("/mine", middleware.RequireRoles(models.RoleStudent), h.Doubt.ListMine)
		doubts.GET("/open", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Doubt.ListOpen)
		doubts.POST("/:id/answer", middleware.RequireRoles(models.RoleAdmin, models.RoleTeacher), h.Doubt.Answer)
	}

	feedback := protected.Group("/feedback")
	{
		feedback.POST("", middleware.RequireRoles(models.RoleStudent), h.Feedback.Submit)
		feedback.GET("/mine", middleware.RequireRoles(models.RoleStudent), h.Feedback.ListMine)
		feedback.GET("", middleware.RequireRoles(models.RoleAdmin), h.Feedback.ListAll)
		feedback.POST("/:id/respond", middleware.RequireRoles(models.RoleAdmin), h.Feedback.Respond)
	}

	if h.Metrics != nil {
		protected.GET("/metrics/snapshot", middleware.RequireRoles(models.RoleAdmin), h.Metrics.Snapshot)
	}
}
