package router

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/campuscare/grievance-app/chat"
	"github.com/campuscare/grievance-app/controllers"
	"github.com/campuscare/grievance-app/middlewares"
	"github.com/campuscare/grievance-app/models"
	"github.com/campuscare/grievance-app/services"
	"github.com/campuscare/grievance-app/utils"
)

func SetupRouter(db *gorm.DB, hub *chat.Hub) *gin.Engine {
	r := gin.Default()

	r.Use(middlewares.SecurityHeaders())
	r.Use(middlewares.CORSMiddlewares())
	r.Use(middlewares.LoggerMiddleware())
	// The per-IP limiter must be installed before any route is
	// registered; gin snapshots the handler chain at registration time.
	r.Use(middlewares.NewRateLimiter(50, 1).RateLimit())

	complaintSvc := services.NewComplaintService(db, hub)

	userCtrl := controllers.NewUserController(db)
	deptCtrl := controllers.NewDepartmentController(db)
	complaintCtrl := controllers.NewComplaintController(db, complaintSvc)
	notificationCtrl := controllers.NewNotificationController(db)
	adminCtrl := controllers.NewAdminController(db)
	analyticsCtrl := controllers.NewAnalyticsController(db, complaintSvc)
	chatCtrl := controllers.NewChatController(db, hub)

	// ----------------------------------------------------------------
	//                      PUBLIC ROUTES
	// ----------------------------------------------------------------
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	public := r.Group("/")
	public.Use(middlewares.NewStrictRateLimiter())
	{
		public.POST("/register", userCtrl.Register)
		public.POST("/login", userCtrl.Login)
	}

	// ----------------------------------------------------------------
	//                      AUTHENTICATED ROUTES
	// ----------------------------------------------------------------
	api := r.Group("/api")
	api.Use(middlewares.AuthMiddleware())
	{
		api.POST("/logout", userCtrl.Logout)
		api.GET("/profile", userCtrl.GetProfile)

		api.GET("/departments", deptCtrl.GetAllDepartments)
		api.POST("/departments", deptCtrl.CreateDepartment)

		api.GET("/complaints", complaintCtrl.GetAllComplaints)
		api.POST("/complaints", complaintCtrl.CreateComplaint)
		api.GET("/complaints/department", complaintCtrl.GetDepartmentComplaints)
		api.GET("/complaints/:complaint_id", complaintCtrl.GetComplaintByID)
		api.PATCH("/complaints/:complaint_id/status", complaintCtrl.UpdateComplaintStatus)
		api.PATCH("/complaints/:complaint_id/assign", complaintCtrl.AssignComplaint)
		api.GET("/complaints/:complaint_id/messages", complaintCtrl.GetComplaintMessages)

		api.GET("/notifications", notificationCtrl.GetMyNotifications)
		api.PATCH("/notifications/:notification_id/read", notificationCtrl.MarkNotificationRead)

		api.GET("/analytics/stats", analyticsCtrl.GetStats)
		api.GET("/analytics/department", analyticsCtrl.GetDepartmentStats)

		admin := api.Group("/admin")
		admin.Use(middlewares.RequireRoles(models.RoleAdmin))
		{
			admin.GET("/users", adminCtrl.GetAllUsers)
			admin.GET("/users/search", adminCtrl.SearchUsers)
			admin.POST("/users", adminCtrl.CreateUser)
			admin.POST("/users/bulk", adminCtrl.BulkCreateUsers)
			admin.PATCH("/users/:user_id", adminCtrl.UpdateUser)
			admin.PATCH("/users/:user_id/role", adminCtrl.UpdateUserRole)
			admin.DELETE("/users/:user_id", adminCtrl.DeleteUser)
		}
	}

	// Attachments are served to logged-in users only, and only for the
	// extensions the upload validator accepts.
	uploads := r.Group("/uploads")
	uploads.Use(middlewares.AuthMiddleware())
	uploads.Use(func(c *gin.Context) {
		if !utils.AllowedUploadExt(c.Request.URL.Path) || strings.Contains(c.Request.URL.Path, "..") {
			c.AbortWithStatus(http.StatusForbidden)
			return
		}
		c.Next()
	})
	uploads.StaticFS("/", http.Dir(utils.UploadDir()))

	wsGroup := r.Group("/ws")
	wsGroup.Use(middlewares.WebSocketAuthMiddleware())
	{
		wsGroup.GET("", chatCtrl.ServeWS)
	}

	return r
}
