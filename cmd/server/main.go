package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/onegreenvn/campaign-lifecycle-backend/docs"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/config"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/database"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/database/repository"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/models"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/router"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/services"
	"github.com/onegreenvn/campaign-lifecycle-backend/internal/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Set Swagger base path dynamically
	docs.SwaggerInfo.BasePath = cfg.BasePath

	// Configure logging
	configureLogging(cfg.LogLevel)

	// Initialize Sentry
	if err := utils.InitSentry(cfg.Sentry); err != nil {
		logrus.Warnf("Failed to initialize Sentry: %v", err)
	}
	defer utils.FlushSentry(2 * time.Second)

	// Initialize database connection
	db, err := database.InitDB(cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	campaignRepo := repository.NewCampaignRepository(db)
	historyRepo := repository.NewCampaignHistoryRepository(db)
	templateRepo := repository.NewCampaignTemplateRepository(db)

	// Executors report failures per command while the broker is down
	var publisher services.Publisher
	rabbitMQService, err := services.NewRabbitMQService(cfg.RabbitMQ)
	if err != nil {
		logrus.Warnf("Failed to initialize RabbitMQ: %v", err)
	} else {
		publisher = rabbitMQService
		defer rabbitMQService.Close()
	}

	channelRouter := services.NewChannelRouter(cfg.Engine.ExecutorTimeout, map[models.Channel]services.ChannelExecutor{
		models.ChannelMailing: services.NewMailingExecutor(publisher, cfg.RabbitMQ.MailingQueue),
		models.ChannelCalls:   services.NewCallsExecutor(publisher, cfg.RabbitMQ.CallsQueue),
	})

	// Create SSE Hub (shared by the history recorder and the history handler)
	sseHub := services.NewSSEHub()

	historyRecorder := services.NewHistoryRecorder(historyRepo, sseHub, cfg.Engine.AuditWorkers, cfg.Engine.AuditBuffer, cfg.Engine.AuditTimeout)
	historyRecorder.Start()

	scheduler := services.NewActivationScheduler(cfg.Engine.ActivationTimeout)

	campaignService := services.NewCampaignService(
		campaignRepo,
		templateRepo,
		historyRepo,
		services.NewResourceClient(cfg.Resource),
		scheduler,
		channelRouter,
		historyRecorder,
	)
	templateService := services.NewTemplateService(templateRepo)

	// Re-arm timers lost with the previous process
	restoreCtx, cancelRestore := context.WithTimeout(context.Background(), time.Minute)
	if _, err := campaignService.RestoreActivations(restoreCtx); err != nil {
		logrus.Errorf("Failed to restore scheduled activations: %v", err)
	}
	cancelRestore()

	sweeper := services.NewReconciliationSweeper(campaignRepo, campaignService, cfg.Engine.SweepInterval, cfg.Engine.SweepConcurrency)
	sweeper.Start()

	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	r := router.SetupRouter(router.Services{
		Campaigns: campaignService,
		Templates: templateService,
		Scheduler: scheduler,
		SSEHub:    sseHub,
	})

	// Configure HTTP server
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", cfg.Port),
		Handler: r,
	}

	// Start server in a goroutine
	go func() {
		logrus.Infof("Server starting on port %s", cfg.Port)
		logrus.Infof("API Health Check: http://localhost:%s/api/v1/health", cfg.Port)
		logrus.Infof("Swagger UI: http://localhost:%s/swagger/index.html", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logrus.Info("Shutting down server...")

	// Create a deadline for server shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	// Stop producers of history events before the recorder drains
	sweeper.Stop()
	scheduler.Stop()
	historyRecorder.Stop()

	logrus.Info("Server exited properly")
}

func configureLogging(logLevel string) {
	level, err := logrus.ParseLevel(logLevel)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrus.SetLevel(level)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
}
