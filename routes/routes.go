package routes

import (
	"net/http"

	"permit-portal-api/controllers"
	"permit-portal-api/middleware"
	"permit-portal-api/monitor"

	"github.com/gin-gonic/gin"
)

// Dependencies are the handlers and settings the router mounts.
type Dependencies struct {
	Workflow  *controllers.WorkflowController
	JWTSecret []byte
	DB        monitor.Pinger
	LogFile   string
}

func SetupRoutes(router *gin.Engine, deps Dependencies) {
	router.GET("/healthz", monitor.HealthHandler(deps.DB))
	router.GET("/metrics", monitor.MetricsHandler())

	w := deps.Workflow

	// API v1 group
	v1 := router.Group("/api/v1")
	v1.Use(middleware.AuthMiddleware(deps.JWTSecret))
	{
		anyRole := middleware.RequireRole(middleware.RoleApplicant, middleware.RoleInspector, middleware.RoleOfficer)
		officer := middleware.RequireRole(middleware.RoleOfficer)

		submissions := v1.Group("/submissions")
		{
			submissions.POST("", middleware.RequireRole(middleware.RoleApplicant, middleware.RoleOfficer), w.CreateSubmission)
			submissions.GET("/:id/history", anyRole, w.GetSubmissionHistory)
			submissions.GET("/:id/comments", anyRole, w.GetSubmissionComments)
			submissions.GET("/:id/documents", anyRole, w.GetSubmissionDocuments)
			submissions.POST("/:id/resubmit", middleware.RequireRole(middleware.RoleApplicant, middleware.RoleOfficer), w.ResubmitDocuments)

			submissions.DELETE("/:id", middleware.RequireRole(middleware.RoleApplicant, middleware.RoleOfficer), w.DeleteSubmission)

			// Officers only
			submissions.POST("/:id/transitions", officer, w.TransitionSubmission)
		}

		v1.GET("/documents/:id", anyRole, w.GetDocument)
		v1.GET("/applications/:id", anyRole, w.GetApplication)

		v1.POST("/inspections/:id/complete", middleware.RequireRole(middleware.RoleInspector, middleware.RoleOfficer), w.CompleteInspection)

		v1.DELETE("/applications/:id/submissions", officer, w.DeleteApplicationSubmissions)
		v1.DELETE("/users/:id/submissions", officer, w.DeleteUserSubmissions)

		if deps.LogFile != "" {
			v1.GET("/logs", officer, monitor.LogsHandler(deps.LogFile, 256<<10))
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Endpoint not found"})
	})
}
