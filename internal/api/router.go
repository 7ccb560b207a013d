package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"

	"campusnest/market/internal/api/handlers"
	"campusnest/market/internal/api/middleware"
	"campusnest/market/internal/config"
	"campusnest/market/internal/email"
	"campusnest/market/internal/models"
	"campusnest/market/internal/realtime"
	"campusnest/market/internal/services"
)

// Services bundles the domain services the public API serves.
type Services struct {
	Properties     services.IPropertyService
	Distance       services.IDistanceService
	Students       services.IStudentService
	Wishlist       services.IWishlistService
	Visits         services.IVisitRequestService
	Joins          services.IJoinRequestService
	Notifications  services.INotificationService
	PublicStudents services.IPublicStudentService
	Dashboard      services.IStudentDashboardService
}

// SetupRouter configures and returns the main Gin engine.
// hub may be nil, in which case no websocket endpoint is mounted.
func SetupRouter(ctx context.Context, cfg *config.Config, svc Services, hub *realtime.Hub) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())
	r.MaxMultipartMemory = int64(cfg.DocumentMaxSizeMB) << 20

	rateLimiter := middleware.NewRateLimiterMiddleware(ctx, cfg)
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigin))

	propertyHandler := handlers.NewRestPropertyHandler(svc.Properties, svc.Distance)
	studentHandler := handlers.NewRestStudentHandler(svc.Students, svc.Wishlist)
	visitHandler := handlers.NewRestVisitRequestHandler(svc.Visits)
	joinHandler := handlers.NewRestJoinRequestHandler(svc.Joins, svc.Students, svc.Visits)
	notificationHandler := handlers.NewRestNotificationHandler(svc.Notifications)
	publicStudentHandler := handlers.NewRestPublicStudentHandler(svc.PublicStudents, svc.Dashboard)

	apiGroup := r.Group("/api")
	{
		apiGroup.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC().Format(time.RFC3339)})
		})
		if hub != nil {
			apiGroup.GET("/ws", realtime.ServeWS(hub, cfg.JwtSecret, cfg.AllowedOrigin))
		}

		// Public browsing
		properties := apiGroup.Group("/properties", rateLimiter.Limit())
		{
			properties.GET("/all", propertyHandler.ListProperties)
			properties.GET("/:id", propertyHandler.GetProperty)
			properties.POST("/distances", propertyHandler.CalculateDistances)
		}

		authRequired := apiGroup.Group("")
		authRequired.Use(middleware.AuthMiddleware(cfg.JwtSecret), rateLimiter.Limit())

		student := authRequired.Group("/student", middleware.RoleMiddleware(models.RoleStudent))
		{
			student.GET("/profile", studentHandler.GetProfile)
			student.PUT("/profile", studentHandler.UpdateProfile)
			student.POST("/profile/upload-document", studentHandler.UploadDocument)
			student.DELETE("/profile/document/:documentType", studentHandler.DeleteDocument)
			student.GET("/profile/document/:documentType/link", studentHandler.GetDocumentLink)
			student.GET("/verification", studentHandler.GetVerification)
			student.GET("/wishlist", studentHandler.GetWishlist)
			student.POST("/wishlist", studentHandler.AddToWishlist)
			student.DELETE("/wishlist/:propertyId", studentHandler.RemoveFromWishlist)
		}

		asStudent := middleware.RoleMiddleware(models.RoleStudent)
		asLandlord := middleware.RoleMiddleware(models.RoleLandlord)

		visits := authRequired.Group("/visit-requests")
		{
			visits.POST("", asStudent, visitHandler.Create)
			visits.GET("/student", asStudent, visitHandler.ListForStudent)
			visits.GET("/landlord", asLandlord, visitHandler.ListForLandlord)
			visits.PUT("/:id/confirm", asLandlord, visitHandler.Confirm)
			visits.PUT("/:id/reschedule", asLandlord, visitHandler.Reschedule)
			visits.PUT("/:id/reject", asLandlord, visitHandler.Reject)
		}

		joins := authRequired.Group("/join-requests")
		{
			joins.GET("/check-profile", asStudent, joinHandler.CheckProfile)
			joins.GET("/check-visit/:propertyId", asStudent, joinHandler.CheckVisit)
			joins.POST("/check-bids/:propertyId", asStudent, joinHandler.CheckHigherBids)
			joins.POST("", asStudent, joinHandler.Create)
			joins.GET("/student", asStudent, joinHandler.ListForStudent)
			joins.GET("/landlord", asLandlord, joinHandler.ListForLandlord)
			joins.DELETE("/:id", asStudent, joinHandler.Delete)
			joins.POST("/:id/accept", asLandlord, joinHandler.Accept)
			joins.POST("/:id/reject", asLandlord, joinHandler.Reject)
		}

		// Visible to students and landlords
		public := authRequired.Group("/public")
		{
			public.GET("/students", publicStudentHandler.List)
			public.GET("/students/:studentId", publicStudentHandler.Get)
			public.GET("/students-compatibility", asStudent, publicStudentHandler.WithCompatibility)
		}

		authRequired.GET("/student-dashboard/metrics", asStudent, publicStudentHandler.Metrics)

		notifications := authRequired.Group("/notifications")
		{
			notifications.GET("", notificationHandler.List)
			notifications.GET("/unread-count", notificationHandler.UnreadCount)
			notifications.PUT("/mark-all-read", notificationHandler.MarkAllRead)
			notifications.PUT("/:id/read", notificationHandler.MarkRead)
		}
	}

	return r
}

// SetupServiceRouter configures the internal service engine used by test harnesses.
// It is never exposed publicly.
func SetupServiceRouter(cfg *config.Config, rdb redis.Cmdable, shutdownChan chan<- struct{}) *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	r.POST("/api", func(c *gin.Context) {
		var req struct {
			Method    string          `json:"method"`
			Arguments json.RawMessage `json:"arguments"`
		}
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid request format"})
			return
		}

		switch req.Method {
		case "shutdown":
			slog.Info("shutdown requested via service API")
			c.JSON(http.StatusOK, gin.H{"success": true, "result": "Shutdown initiated"})
			select {
			case shutdownChan <- struct{}{}:
			default:
				slog.Warn("shutdown channel already signaled")
			}
		case "getTestEmail":
			var args []string // [templateId, email]
			if err := json.Unmarshal(req.Arguments, &args); err != nil || len(args) != 2 {
				c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "Invalid arguments: expected JSON array [templateId, email]"})
				return
			}
			if rdb == nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"success": false, "error": "Redis not configured"})
				return
			}
			templateID, to := args[0], args[1]

			ctx, cancel := context.WithTimeout(c.Request.Context(), 5*time.Second)
			defer cancel()

			var captured *email.CapturedEmail
			for i := 0; i < 10; i++ {
				ce, err := email.GetCaptured(ctx, rdb, to, templateID)
				if err == nil {
					captured = ce
					rdb.Del(ctx, email.MockEmailKey(to, templateID))
					break
				}
				if !errors.Is(err, redis.Nil) {
					slog.Error("service API: reading captured email", "to", to, "template_id", templateID, "error", err)
					c.JSON(http.StatusInternalServerError, gin.H{"success": false, "error": "Redis error"})
					return
				}
				time.Sleep(200 * time.Millisecond)
			}

			if captured == nil {
				c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Test email not found for key %s", email.MockEmailKey(to, templateID))})
				return
			}
			c.JSON(http.StatusOK, gin.H{"success": true, "data": captured})

		default:
			c.JSON(http.StatusNotFound, gin.H{"success": false, "error": fmt.Sprintf("Unknown service method: %s", req.Method)})
		}
	})
	return r
}
