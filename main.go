// Package main is the entry point for the ship ledger service
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/araw/ship-ledger/app/handlers"
	"github.com/araw/ship-ledger/app/middleware"
	"github.com/araw/ship-ledger/app/router"
	"github.com/araw/ship-ledger/app/services"
	businessflow "github.com/araw/ship-ledger/business_flow"
	"github.com/araw/ship-ledger/config"
	"github.com/araw/ship-ledger/models"
	"github.com/araw/ship-ledger/repository"
	"github.com/araw/ship-ledger/utils"

	"github.com/redis/go-redis/v9"
	"golang.org/x/crypto/bcrypt"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Application holds all application dependencies
type Application struct {
	config *config.ProductionConfig
	db     *gorm.DB
	cache  *redis.Client
	router router.Router

	stopFuncs []func()
}

func main() {
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	setupLogging(cfg)

	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Starting ship ledger service on %s", address)
		if err := app.router.Start(address); err != nil {
			log.Fatalf("Server failed to start: %v", err)
		}
	}()

	waitForShutdown(app)
}

// setupLogging routes the standard logger to a rotating file when configured
func setupLogging(cfg *config.ProductionConfig) {
	if cfg.Logging.Output != "file" {
		return
	}

	log.SetOutput(&lumberjack.Logger{
		Filename:   cfg.Logging.FilePath,
		MaxSize:    cfg.Logging.MaxSize,
		MaxBackups: cfg.Logging.MaxBackups,
		MaxAge:     cfg.Logging.MaxAge,
		Compress:   cfg.Logging.Compress,
	})
}

// initializeApplication sets up all application dependencies
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	db, err := initializeDatabase(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	if err := ensureSeedAdmin(db, cfg); err != nil {
		return nil, fmt.Errorf("failed to seed admin account: %w", err)
	}

	cache, err := initializeCache(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cache: %w", err)
	}

	app := &Application{
		config: cfg,
		db:     db,
		cache:  cache,
	}

	if cache != nil {
		app.stopFuncs = append(app.stopFuncs, startCacheHealthMonitor(cache))
	}

	// Repositories
	userRepo := repository.NewAdminUserRepository(db)
	loadingRepo := repository.NewLoadingRepository(db)
	dischargeRepo := repository.NewDischargeRepository(db)
	expenseRepo := repository.NewExpenseRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Services
	tokenService, err := services.NewTokenService(cfg.JWT.SessionTokenTTL, cfg.JWT.Issuer, cfg.JWT.SecretKey)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize token service: %w", err)
	}
	notificationService := initializeNotificationService(cfg)

	// Business flows
	loginFlow := businessflow.NewLoginFlow(userRepo, auditRepo, tokenService, notificationService, cfg.Admin.AllowedEmails, db)
	resetFlow := businessflow.NewPasswordResetFlow(userRepo, auditRepo, notificationService, cfg.Admin.AllowedEmails, db)
	ledgerFlow := businessflow.NewLedgerFlow(loadingRepo, dischargeRepo, expenseRepo, auditRepo, cache, cfg.Cache.RedisPrefix, cfg.Cache.DefaultTTL, db)

	// Handlers and middleware
	authHandler := handlers.NewAuthHandler(loginFlow, resetFlow, cfg.Security.SessionCookieSecure)
	ledgerHandler := handlers.NewLedgerHandler(ledgerFlow)
	authMiddleware := middleware.NewAuthMiddleware(tokenService, cfg.Security.SessionCookieSecure)

	appRouter := router.NewFiberRouter(authHandler, ledgerHandler, authMiddleware, cfg.Security.AllowedOrigins)
	appRouter.SetupRoutes()
	app.router = appRouter

	return app, nil
}

// initializeDatabase opens the Postgres connection pool and verifies it
func initializeDatabase(cfg *config.ProductionConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	logLevel := gormlogger.Warn
	if cfg.Logging.Level == "debug" {
		logLevel = gormlogger.Info
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: gormlogger.Default.LogMode(logLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	sqlDB.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.Database.ConnMaxIdleTime)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(ctx); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Println("Database connection established")
	return db, nil
}

// runMigrations keeps the schema in step with the model definitions
func runMigrations(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.AdminUser{},
		&models.LoadingTransaction{},
		&models.DischargeTransaction{},
		&models.ExpenseTransaction{},
		&models.AuditLog{},
	)
}

// ensureSeedAdmin creates the bootstrap account when ADMIN_SEED_EMAIL and
// ADMIN_SEED_PASSWORD are set and the account does not exist yet. Existing
// accounts are never touched.
func ensureSeedAdmin(db *gorm.DB, cfg *config.ProductionConfig) error {
	if cfg.Admin.SeedEmail == "" || cfg.Admin.SeedPassword == "" {
		return nil
	}

	email := utils.NormalizeEmail(cfg.Admin.SeedEmail)

	var count int64
	if err := db.Model(&models.AdminUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return fmt.Errorf("failed to look up seed account: %w", err)
	}
	if count > 0 {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(cfg.Admin.SeedPassword), cfg.Security.BcryptCost)
	if err != nil {
		return fmt.Errorf("failed to hash seed password: %w", err)
	}

	now := utils.UTCNow()
	user := &models.AdminUser{
		Email:        email,
		PasswordHash: string(hash),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := db.Create(user).Error; err != nil {
		return fmt.Errorf("failed to create seed account: %w", err)
	}

	log.Printf("Seeded admin account %s", email)
	return nil
}

// initializeCache connects to Redis when caching is enabled. A nil client is
// returned when the cache is switched off; callers treat that as a cache miss.
func initializeCache(cfg *config.ProductionConfig) (*redis.Client, error) {
	if !cfg.Cache.Enabled {
		log.Println("Cache disabled, ship list will be served from the database")
		return nil, nil
	}

	opts, err := redis.ParseURL(cfg.Cache.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	opts.DB = cfg.Cache.RedisDB

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	log.Println("Redis connection established")
	return client, nil
}

// startCacheHealthMonitor pings Redis periodically and logs failures. The
// returned function stops the monitor.
func startCacheHealthMonitor(client *redis.Client) func() {
	ctx, cancel := context.WithCancel(context.Background())

	go func() {
		ticker := time.NewTicker(30 * time.Second)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
				if err := client.Ping(pingCtx).Err(); err != nil {
					log.Printf("Redis health check failed: %v", err)
				}
				pingCancel()
			}
		}
	}()

	return cancel
}

// initializeNotificationService selects the mail provider from configuration
func initializeNotificationService(cfg *config.ProductionConfig) services.NotificationService {
	if cfg.Email.UseMock {
		log.Println("Using mock email provider, codes are logged instead of sent")
		return services.NewNotificationService(services.NewMockEmailProvider())
	}

	provider := services.NewSMTPEmailProvider(
		cfg.Email.Host,
		cfg.Email.Port,
		cfg.Email.Username,
		cfg.Email.Password,
		cfg.Email.FromEmail,
		cfg.Email.FromName,
	)
	return services.NewNotificationService(provider)
}

// waitForShutdown blocks until an interrupt arrives, then drains the server
func waitForShutdown(app *Application) {
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit
	log.Printf("Received signal %s, shutting down", sig)

	for _, stop := range app.stopFuncs {
		stop()
	}

	ctx, cancel := context.WithTimeout(context.Background(), app.config.Server.ShutdownTimeout)
	defer cancel()
	if err := app.router.GetApp().ShutdownWithContext(ctx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}

	if app.cache != nil {
		if err := app.cache.Close(); err != nil {
			log.Printf("Redis close error: %v", err)
		}
	}

	if sqlDB, err := app.db.DB(); err == nil {
		if err := sqlDB.Close(); err != nil {
			log.Printf("Database close error: %v", err)
		}
	}

	log.Println("Shutdown complete")
}
