package routes

import (
	"research-incentive-api/controllers"
	"research-incentive-api/middleware"
	"research-incentive-api/models"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(router *gin.Engine) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			// Authentication
			public.POST("/login", controllers.Login)
			public.POST("/refresh", controllers.RefreshToken)

			// Health check
			public.GET("/health", func(c *gin.Context) {
				c.JSON(200, gin.H{
					"status":  "ok",
					"message": "Research Incentive API is running",
				})
			})
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware())
		{
			// Auth management
			protected.POST("/logout", controllers.Logout)
			protected.POST("/logout-all", controllers.LogoutAllDevices)

			// User profile
			protected.GET("/profile", controllers.GetProfile)
			protected.PUT("/change-password", controllers.ChangePassword)

			// Submissions
			submissions := protected.Group("/submissions")
			{
				submissions.GET("", controllers.GetSubmissions)
				submissions.GET("/:id", controllers.GetSubmission)
				submissions.GET("/:id/history", controllers.GetSubmissionHistory)

				submissions.POST("", controllers.CreateSubmission)
				submissions.PUT("/:id", controllers.UpdateSubmission)
				submissions.PUT("/:id/authors", controllers.ReplaceAuthors)
				submissions.PUT("/:id/indexing", controllers.UpsertIndexingDetail)
				submissions.DELETE("/:id",
					middleware.RequireCapability(models.CapSubmissionDelete),
					controllers.DeleteSubmission)

				// Filer and mentor transitions; per-action checks run in the
				// workflow service.
				submissions.POST("/:id/submit", controllers.SubmitSubmission)
				submissions.POST("/:id/mentor-decision", controllers.MentorDecision)
				submissions.POST("/:id/resubmit", controllers.Resubmit)
				submissions.POST("/:id/complete", controllers.Complete)
				submissions.POST("/:id/clear-incentive", controllers.ClearIncentive)
			}

			// DRD review queue
			drdReview := protected.Group("/drd-review")
			{
				drdReview.POST("/start/:id", controllers.StartReview)
				drdReview.POST("/resume/:id", controllers.ResumeReview)
				drdReview.POST("/recommend/:id", controllers.Recommend)
				drdReview.POST("/request-changes/:id", controllers.RequestChanges)
				drdReview.POST("/reject/:id", controllers.DRDReject)
			}

			// Department head approvals
			drdHead := protected.Group("/drd-head")
			{
				drdHead.POST("/approve/:id", controllers.HeadApprove)
				drdHead.POST("/reject/:id", controllers.HeadReject)
			}

			// IPR government filing chain
			ipr := protected.Group("/ipr")
			{
				ipr.POST("/:id/file-govt", controllers.FileGovt)
				ipr.POST("/:id/govt-filed", controllers.GovtFiled)
				ipr.POST("/:id/publish", controllers.Publish)
			}

			// Incentive policies
			policies := protected.Group("/policies")
			{
				policies.GET("", controllers.GetPolicies)
				policies.GET("/lookup", controllers.GetPolicyLookup)

				admin := policies.Group("")
				admin.Use(middleware.RequireCapability(models.CapPolicyManage))
				{
					admin.GET("/all", controllers.GetPoliciesAdmin)
					admin.POST("", controllers.CreatePolicy)
					admin.PUT("/:id", controllers.UpdatePolicy)
					admin.DELETE("/:id", controllers.DeletePolicy)
					admin.POST("/:id/toggle", controllers.TogglePolicyStatus)
				}
			}

			// Reviewer assignments
			assignments := protected.Group("/assignments")
			assignments.Use(middleware.RequireCapability(models.CapAssignmentManage))
			{
				assignments.GET("", controllers.GetAssignments)
				assignments.POST("", controllers.CreateAssignment)
				assignments.DELETE("/:id", controllers.DeleteAssignment)
			}

			// Notifications
			notifications := protected.Group("/notifications")
			{
				notifications.GET("", controllers.GetNotifications)
				notifications.GET("/counter", controllers.GetNotificationCounter)
				notifications.PUT("/:id/read", controllers.MarkNotificationRead)
				notifications.PUT("/read-all", controllers.MarkAllNotificationsRead)
			}

			// Audit logs
			protected.GET("/audit-logs",
				middleware.RequireCapability(models.CapAuditView),
				controllers.GetAuditLogs)

			// Dashboard
			protected.GET("/dashboard/stats", controllers.GetDashboardStats)
		}
	}
}
