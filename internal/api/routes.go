package api

import (
	"github.com/gin-gonic/gin"

	"trackApply/internal/account"
	"trackApply/internal/api/middleware"
	"trackApply/internal/jobs"
	"trackApply/internal/storage"
)

// Dependencies groups what the handlers need. Limiter, Objects and Scanner
// are optional; attachment routes are only mounted when Objects is set.
type Dependencies struct {
	Accounts *account.Service
	Jobs     *jobs.Service
	Limiter  LoginLimiter
	Objects  ObjectStore
	Scanner  storage.VirusScanner
}

// RegisterRoutes 注册 API 路由，统一挂在 /v1 之下。
func RegisterRoutes(router *gin.Engine, deps Dependencies) {
	authHandler := NewAuthHandler(deps.Accounts, deps.Limiter)
	jobHandler := NewJobHandler(deps.Jobs, deps.Objects)
	authMiddleware := middleware.AuthMiddleware(deps.Accounts)

	v1 := router.Group("/v1")
	{
		authGroup := v1.Group("/auth")
		{
			authGroup.POST("/signup", authHandler.Signup)
			authGroup.POST("/signin", authHandler.Signin)
			authGroup.GET("/me", authMiddleware, authHandler.Me)
			authGroup.POST("/forgot-password", authHandler.ForgotPassword)
			authGroup.GET("/validate-reset-token", authHandler.ValidateResetToken)
			authGroup.POST("/reset-password", authHandler.ResetPassword)
		}

		jobGroup := v1.Group("/jobs")
		jobGroup.Use(authMiddleware)
		{
			jobGroup.POST("", jobHandler.Create)
			jobGroup.GET("", jobHandler.List)
			jobGroup.GET("/:id", jobHandler.Get)
			jobGroup.PUT("/:id", jobHandler.Update)
			jobGroup.DELETE("/:id", jobHandler.Delete)

			if deps.Objects != nil {
				attachmentHandler := NewAttachmentHandler(deps.Jobs, deps.Objects, deps.Scanner)
				jobGroup.POST("/:id/resume", attachmentHandler.UploadResume)
				jobGroup.GET("/:id/resume", attachmentHandler.ResumeLink)
			}
		}
	}
}
