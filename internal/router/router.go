package router

import (
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/internal/handlers"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/middleware"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Services groups what the HTTP layer needs
type Services struct {
	Campaigns *services.CampaignService
	Templates *services.TemplateService
	Scheduler *services.ActivationScheduler
	SSEHub    *services.SSEHub
}

// SetupRouter configures the Gin router with the campaign lifecycle routes
func SetupRouter(svc Services) *gin.Engine {
	// Create a new router
	r := gin.New()

	// Use middleware
	r.Use(gin.Recovery())
	r.Use(middleware.Logger())

	// Configure CORS
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: false,
		MaxAge:           12 * time.Hour,
	}))

	// Create handlers with services
	campaignHandler := handlers.NewCampaignHandler(svc.Campaigns)
	historyHandler := handlers.NewHistoryHandler(svc.Campaigns, svc.SSEHub)
	templateHandler := handlers.NewTemplateHandler(svc.Templates)

	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	logrus.Info("Swagger UI endpoint registered at /swagger/index.html")

	// API v1 routes
	api := r.Group("/api/v1")
	{
		// Health check
		api.GET("/health", func(c *gin.Context) {
			c.JSON(200, gin.H{
				"status":              "ok",
				"time":                time.Now().Format(time.RFC3339),
				"pending_activations": svc.Scheduler.Pending(),
			})
		})

		// Campaign routes
		campaigns := api.Group("/campaigns")
		{
			campaigns.POST("", campaignHandler.CreateCampaign)
			campaigns.GET("", campaignHandler.ListCampaigns)
			campaigns.POST("/from-template/:templateId", campaignHandler.CreateFromTemplate)
			campaigns.GET("/:id", campaignHandler.GetCampaignByID)
			campaigns.PUT("/:id", campaignHandler.UpdateCampaign)
			campaigns.DELETE("/:id", campaignHandler.DeleteCampaign)

			// Lifecycle operations
			campaigns.POST("/:id/schedule", campaignHandler.ScheduleCampaign)
			campaigns.POST("/:id/activate", campaignHandler.ActivateCampaign)
			campaigns.POST("/:id/pause", campaignHandler.PauseCampaign)
			campaigns.POST("/:id/resume", campaignHandler.ResumeCampaign)
			campaigns.POST("/:id/cancel", campaignHandler.CancelCampaign)
			campaigns.POST("/:id/finish", campaignHandler.FinishCampaign)
			campaigns.POST("/:id/reschedule", campaignHandler.RescheduleCampaign)
			campaigns.POST("/:id/archive", campaignHandler.ArchiveCampaign)
			campaigns.POST("/:id/duplicate", campaignHandler.DuplicateCampaign)

			// History
			campaigns.GET("/:id/history", historyHandler.GetCampaignHistory)
			campaigns.GET("/:id/history/stream", historyHandler.StreamCampaignHistory)
		}

		history := api.Group("/history")
		{
			history.GET("", historyHandler.ListHistory)
			history.GET("/stream", historyHandler.StreamAllHistory)
		}

		// Template routes
		templates := api.Group("/templates")
		{
			templates.POST("", templateHandler.CreateTemplate)
			templates.GET("", templateHandler.ListTemplates)
			templates.GET("/:id", templateHandler.GetTemplateByID)
			templates.PUT("/:id", templateHandler.UpdateTemplate)
			templates.DELETE("/:id", templateHandler.DeleteTemplate)
		}
	}

	return r
}
