package app

import (
	"context"
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/glebarez/sqlite"
	"github.com/robfig/cron/v3"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"vpnbot_backend/internal/config"
	"vpnbot_backend/internal/handlers"
	"vpnbot_backend/internal/logger"
	"vpnbot_backend/internal/middleware"
	"vpnbot_backend/internal/models"
	"vpnbot_backend/internal/repositories"
	"vpnbot_backend/internal/routes"
	"vpnbot_backend/internal/services"
	"vpnbot_backend/internal/services/yookassa"
	"vpnbot_backend/internal/validator"
)

func Run() {
	config.LoadConfig()
	cfg := config.AppConfig

	logger.Init(cfg.Server.Env)
	defer logger.Sync()
	logger.Info("Logger initialized", "env", cfg.Server.Env)

	gormDB := openDatabase(cfg)

	if err := AutoMigrate(gormDB); err != nil {
		logger.Fatal("Failed to migrate database", "error", err)
	}
	logger.Info("Database migrated")

	serviceContainer := InitializeServices(cfg, gormDB)
	defer serviceContainer.NotificationService.Stop()

	ginRouter := setupRouterWithServices(cfg, serviceContainer)

	startScheduler(serviceContainer)

	address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logger.Info("Server starting", "address", address)
	if err := ginRouter.Run(address); err != nil {
		logger.Fatal("Server startup error", "error", err)
	}
}

func openDatabase(cfg *config.Config) *gorm.DB {
	var (
		gormDB *gorm.DB
		err    error
	)

	if cfg.Database.DSN != "" {
		logger.Info("Connecting to postgres...")
		gormDB, err = gorm.Open(postgres.Open(cfg.Database.DSN), &gorm.Config{})
	} else {
		// Локальная разработка без postgres
		logger.Warn("DATABASE_URL is not set, using local sqlite file")
		gormDB, err = gorm.Open(sqlite.Open("vpnbot.db"), &gorm.Config{})
	}
	if err != nil {
		logger.Fatal("Failed to connect to database", "error", err)
	}

	sqlDB, err := gormDB.DB()
	if err != nil {
		logger.Fatal("Failed to get *sql.DB from GORM", "error", err)
	}
	if err = sqlDB.Ping(); err != nil {
		logger.Fatal("Database unavailable", "error", err)
	}
	logger.Info("Database connected")
	return gormDB
}

// AutoMigrate создает или обновляет схему под все модели приложения.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.User{},
		&models.Payment{},
		&models.VPNConfig{},
	)
}

// SetupRouter собирает полностью готовый роутер. Используется в Run
// и переиспользуется интеграционными тестами.
func SetupRouter(cfg *config.Config, gormDB *gorm.DB) *gin.Engine {
	return setupRouterWithServices(cfg, InitializeServices(cfg, gormDB))
}

func setupRouterWithServices(cfg *config.Config, serviceContainer *services.ServiceContainer) *gin.Engine {
	appHandlers := initializeHandlers(serviceContainer)
	ginRouter := initializeGinRouter()
	routes.RegisterRoutes(ginRouter, appHandlers, cfg.Admin.Token)
	return ginRouter
}

func InitializeServices(cfg *config.Config, gormDB *gorm.DB) *services.ServiceContainer {
	// --- Репозитории ---
	userRepo := repositories.NewUserRepository(gormDB)
	paymentRepo := repositories.NewPaymentRepository(gormDB)
	vpnConfigRepo := repositories.NewVPNConfigRepository(gormDB)

	// --- Уведомления ---
	var sender services.NotificationSender
	if cfg.Telegram.BotToken != "" {
		tgSender, err := services.NewTelegramSender(cfg.Telegram.BotToken)
		if err != nil {
			logger.Error("Failed to init telegram sender, notifications disabled", "error", err)
		} else {
			sender = tgSender
		}
	} else {
		logger.Warn("TELEGRAM_BOT_TOKEN is not set, notifications disabled")
	}
	notificationService := services.NewNotificationService(sender)

	// --- Сервисы ---
	planService := services.NewPlanService()
	subscriptionService := services.NewSubscriptionService(gormDB, userRepo, paymentRepo, planService, notificationService)

	gateway := yookassa.NewClient(cfg.YooKassa.ShopID, cfg.YooKassa.SecretKey)
	paymentService := services.NewPaymentService(
		gateway, userRepo, paymentRepo, planService, subscriptionService,
		cfg.YooKassa.TestMode, cfg.YooKassa.ReturnURL,
	)

	vpnService := services.NewVPNService(vpnConfigRepo, userRepo, subscriptionService, services.WireGuardSettings{
		ServerPublicKey: cfg.WireGuard.ServerPublicKey,
		ServerIP:        cfg.WireGuard.ServerIP,
		ServerPort:      cfg.WireGuard.ServerPort,
		DNS:             cfg.WireGuard.DNS,
	})

	return &services.ServiceContainer{
		UserService:         services.NewUserService(userRepo),
		PlanService:         planService,
		PaymentService:      paymentService,
		SubscriptionService: subscriptionService,
		VPNService:          vpnService,
		AdminService:        services.NewAdminService(userRepo, paymentRepo),
		NotificationService: notificationService,
	}
}

func initializeHandlers(serviceContainer *services.ServiceContainer) *handlers.AppHandlers {
	customValidator := validator.New()
	baseHandler := handlers.NewBaseHandler(customValidator)

	return &handlers.AppHandlers{
		UserHandler:    handlers.NewUserHandler(baseHandler, serviceContainer.UserService, serviceContainer.SubscriptionService),
		PaymentHandler: handlers.NewPaymentHandler(baseHandler, serviceContainer.PaymentService, serviceContainer.PlanService),
		WebhookHandler: handlers.NewWebhookHandler(baseHandler, serviceContainer.SubscriptionService),
		VPNHandler:     handlers.NewVPNHandler(baseHandler, serviceContainer.VPNService),
		AdminHandler:   handlers.NewAdminHandler(baseHandler, serviceContainer.AdminService, serviceContainer.PaymentService),
	}
}

func initializeGinRouter() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.LoggingMiddleware())
	router.Use(middleware.CORSMiddleware())
	return router
}

// startScheduler запускает ежедневные фоновые задачи: отключение
// конфигураций истекших подписок и напоминания об окончании подписки.
func startScheduler(serviceContainer *services.ServiceContainer) {
	c := cron.New()

	_, err := c.AddFunc("0 3 * * *", func() {
		ctx := context.Background()
		n, err := serviceContainer.VPNService.DeactivateExpired(ctx)
		logger.WorkerLog("vpn_sweeper", fmt.Sprintf("deactivated %d configs", n), err)
	})
	if err != nil {
		logger.Fatal("Failed to schedule vpn sweeper", "error", err)
	}

	_, err = c.AddFunc("0 12 * * *", func() {
		err := serviceContainer.SubscriptionService.NotifyExpiringSoon(context.Background())
		logger.WorkerLog("expiry_notifier", "notify expiring subscriptions", err)
	})
	if err != nil {
		logger.Fatal("Failed to schedule expiry notifier", "error", err)
	}

	c.Start()
	logger.Info("Scheduler started")
}
