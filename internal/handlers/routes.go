package handlers

import (
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/config"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/middleware"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/services"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/internal/storage"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/downloadtoken"
	"github.com/Rahul23Kumar58Yadav/Excel-Analytics-Dashboard-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"gorm.io/gorm"
)

// Services are the process-wide dependencies the routes share.
type Services struct {
	DB            *gorm.DB
	Blobs         storage.BlobStore
	Files         *services.FileService
	Queue         *services.ProcessingQueue
	Charts        *services.ChartService
	Stats         *services.StatsService
	Notifications *services.NotificationService
	Signer        *downloadtoken.Signer
}

// NewApp builds the Fiber app with the middleware chain and every route.
func NewApp(cfg *config.Config, svc *Services) *fiber.App {
	bodyLimit := cfg.Server.BodyLimitMB * 1024 * 1024
	if bodyLimit <= 0 {
		bodyLimit = 60 * 1024 * 1024
	}

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		BodyLimit:    bodyLimit,
		ErrorHandler: utils.ErrorHandler,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: !cfg.IsProduction()}))
	app.Use(middleware.CORS(cfg.Server.CORSOrigins))
	app.Use(middleware.RequestLogger())
	app.Use(middleware.SecurityLogger())
	app.Use(middleware.Metrics())

	authMiddleware := middleware.NewAuthMiddleware(svc.DB)

	authHandler := NewAuthHandler(svc.DB, svc.Notifications, svc.Stats)
	filesHandler := NewFilesHandler(svc.DB, svc.Files, svc.Queue, svc.Charts, svc.Stats, svc.Signer, cfg)
	chartsHandler := NewChartsHandler(svc.DB, svc.Charts, svc.Stats)
	analyticsHandler := NewAnalyticsHandler(svc.Stats, svc.Charts, svc.Notifications)
	notificationsHandler := NewNotificationsHandler(svc.Notifications)
	adminHandler := NewAdminHandler(svc.DB, svc.Stats, svc.Files, svc.Notifications, filesHandler)

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.Status(fiber.StatusOK).JSON(fiber.Map{"status": "ok"})
	})
	app.Get("/metrics", middleware.MetricsHandler())

	api := app.Group("/api/v1")
	api.Get("/version", GetVersion)

	authRoutes := api.Group("/auth")
	authRoutes.Post("/register", authHandler.Register)
	authRoutes.Post("/login", authHandler.Login)
	authRoutes.Get("/me", authMiddleware.RequireAuth, authHandler.Me)
	authRoutes.Put("/me", authMiddleware.RequireAuth, authHandler.UpdateMe)
	authRoutes.Put("/password", authMiddleware.RequireAuth, authHandler.ChangePassword)

	// Signed links carry their own credentials.
	api.Get("/files/:id/link", filesHandler.DownloadLink)

	publicRoutes := api.Group("/public/files", authMiddleware.OptionalAuth)
	publicRoutes.Get("/:id", filesHandler.PublicGet)
	publicRoutes.Get("/:id/download", filesHandler.PublicDownload)

	fileRoutes := api.Group("/files", authMiddleware.RequireAuth)
	fileRoutes.Post("/upload", filesHandler.Upload)
	fileRoutes.Get("/", filesHandler.List)
	fileRoutes.Get("/:id/status", filesHandler.Status)
	fileRoutes.Get("/:id/download", filesHandler.Download)
	fileRoutes.Get("/:id/download-url", filesHandler.DownloadURL)
	fileRoutes.Get("/:id/data", filesHandler.Data)
	fileRoutes.Post("/:id/reprocess", filesHandler.Reprocess)
	fileRoutes.Get("/:id", filesHandler.Get)
	fileRoutes.Put("/:id", filesHandler.Update)
	fileRoutes.Delete("/:id", filesHandler.Delete)

	chartRoutes := api.Group("/charts", authMiddleware.RequireAuth)
	chartRoutes.Post("/generate", chartsHandler.Generate)
	chartRoutes.Post("/", chartsHandler.Create)
	chartRoutes.Get("/", chartsHandler.List)
	chartRoutes.Get("/:id", chartsHandler.Get)
	chartRoutes.Put("/:id", chartsHandler.Replace)
	chartRoutes.Patch("/:id", chartsHandler.Patch)
	chartRoutes.Delete("/:id", chartsHandler.Delete)

	analyticsRoutes := api.Group("/analytics", authMiddleware.RequireAuth)
	analyticsRoutes.Get("/summary", analyticsHandler.Summary)
	analyticsRoutes.Get("/files/:id/columns", analyticsHandler.Columns)

	notificationRoutes := api.Group("/notifications", authMiddleware.RequireAuth)
	notificationRoutes.Get("/", notificationsHandler.List)
	notificationRoutes.Get("/unread-count", notificationsHandler.UnreadCount)
	notificationRoutes.Put("/read-all", notificationsHandler.MarkAllRead)
	notificationRoutes.Put("/:id/read", notificationsHandler.MarkRead)
	notificationRoutes.Delete("/:id", notificationsHandler.Delete)

	adminRoutes := app.Group("/api/admin", authMiddleware.RequireAuth, middleware.AdminOnly)
	adminRoutes.Get("/dashboard", adminHandler.Dashboard)
	adminRoutes.Get("/users", adminHandler.ListUsers)
	adminRoutes.Get("/users/:id", adminHandler.GetUser)
	adminRoutes.Put("/users/:id", adminHandler.UpdateUser)
	adminRoutes.Delete("/users/:id", adminHandler.DeleteUser)
	adminRoutes.Get("/files", adminHandler.ListFiles)
	adminRoutes.Delete("/files/:id", adminHandler.DeleteFile)
	adminRoutes.Get("/notifications", adminHandler.ListNotifications)
	adminRoutes.Post("/notifications", adminHandler.CreateNotification)

	return app
}
