package routes

import (
	"time"

	adminapi "membership-app/internal/api/admin"
	authapi "membership-app/internal/api/auth"
	feesapi "membership-app/internal/api/fees"
	membersapi "membership-app/internal/api/members"
	"membership-app/internal/api/payments"
	"membership-app/internal/api/paymentwebhook"
	"membership-app/internal/app/http/middleware"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.Engine) {
	// Provider callbacks carry no bearer token; the handler re-derives
	// status itself. Rate limited by source IP.
	r.POST("/webhook/payments",
		middleware.RateLimit("webhook", 60, time.Minute, middleware.KeyByIP),
		paymentwebhook.PaymentCallback)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	public := r.Group("/")
	public.Use(middleware.SanitizeAndCleanInputMiddleware())

	public.POST("/register", authapi.Register)
	public.POST("/login", authapi.Login)
	public.GET("/verify", authapi.VerifyEmail)
	public.POST("/resend-verification", authapi.ResendVerification)
	public.POST("/request-password-reset", authapi.RequestPasswordReset)
	public.POST("/reset-password", authapi.ResetPassword)
	public.GET("/fee-types", feesapi.ListFeeTypes)

	public.GET("/auth/google", authapi.GoogleStart)
	public.GET("/auth/google/callback", authapi.GoogleCallback)

	// Authenticated
	auth := r.Group("/")
	auth.Use(middleware.AuthMiddleware())
	auth.GET("/me", membersapi.GetCurrentMember)
	auth.PUT("/me", membersapi.UpdateProfile)
	auth.POST("/change-password", authapi.ChangePassword)

	auth.GET("/payments", payments.GetPaymentHistory)
	auth.POST("/payments/checkout",
		middleware.RateLimit("checkout", 5, 5*time.Minute, middleware.KeyByUser),
		payments.InitiateCheckout)
	auth.POST("/payments/status",
		middleware.RateLimit("status", 30, time.Minute, middleware.KeyByUser),
		payments.StatusCheck)
	auth.POST("/payments/verify",
		middleware.RateLimit("verify", 30, time.Minute, middleware.KeyByUser),
		payments.Verify)

	// Active members only
	active := auth.Group("/")
	active.Use(middleware.RequireActiveMembership())
	active.GET("/members/directory", membersapi.ListDirectory)

	// Admin routes
	admin := r.Group("/admin")
	admin.Use(middleware.AuthMiddleware(), middleware.RequireRole("admin"))
	admin.GET("/dashboard", adminapi.AdminDashboard)
	admin.GET("/members", adminapi.ListAllMembers)
	admin.GET("/payments", adminapi.ListAllPayments)
	admin.GET("/member/:id", adminapi.GetMemberDetails)
	admin.POST("/payments/:reference/recheck", adminapi.RecheckPayment)
	admin.POST("/fee-types", feesapi.UpsertFeeType)
}
