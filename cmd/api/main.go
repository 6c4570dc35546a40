package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/consultacep/cep-api/internal/cache"
	"github.com/consultacep/cep-api/internal/config"
	"github.com/consultacep/cep-api/internal/database"
	"github.com/consultacep/cep-api/internal/handler"
	"github.com/consultacep/cep-api/internal/middleware"
	"github.com/consultacep/cep-api/internal/repository"
	"github.com/consultacep/cep-api/internal/service"
	"github.com/consultacep/cep-api/pkg/viacep"
)

// main is the application entrypoint for the CEP lookup API.
func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// 2. Setup logger
	setupLogger(cfg.Env)
	log.Info().Str("env", cfg.Env).Msg("starting cep api")

	// 3. Connect database
	db, err := database.Connect(&cfg.DB)
	if err != nil {
		log.Error().Err(err).Msg("database connection failed")
		fmt.Fprintf(os.Stderr, "database connection failed: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// 3a. Run migrations
	if err := runMigrations(db.DB); err != nil {
		log.Error().Err(err).Msg("migration failed")
		fmt.Fprintf(os.Stderr, "migration failed: %v\n", err)
		os.Exit(1)
	}
	log.Info().Msg("migrations completed successfully")

	// 3b. Connect to Redis
	redisClient, err := cache.NewRedisClient(&cfg.Redis)
	if err != nil {
		log.Error().Err(err).Msg("redis connection failed")
		fmt.Fprintf(os.Stderr, "redis connection failed: %v\n", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	log.Info().Msg("redis connected successfully")

	// 3c. Initialize the shared CEP address cache
	cepCache := cache.NewCEPCache(redisClient)

	// 4. Initialize the ViaCEP client
	viaCepClient := viacep.NewClient(viacep.Config{
		BaseURL:  cfg.ViaCEP.BaseURL,
		Timeout:  cfg.ViaCEP.Timeout,
		CacheTTL: cfg.ViaCEP.CacheTTL,
	}, cepCache)

	// 5. Initialize repositories
	cepRepo := repository.NewCepRepository(db)
	adminRepo := repository.NewAdminUserRepository(db)

	// 6. Initialize services
	cepSvc := service.NewCepService(cepRepo, viaCepClient)
	adminAuthSvc := service.NewAdminAuthService(adminRepo)

	// 7. Initialize handlers
	loginLimiter := middleware.NewInvalidAuthRateLimiter()
	cepHandler := handler.NewCepHandler(cepSvc, cfg.API.PageSize)
	authHandler := handler.NewAuthHandler(adminAuthSvc, loginLimiter)
	healthHandler := handler.NewHealthHandler(db, redisClient)

	// 8. Initialize middleware
	jwtMw := middleware.NewJWTMiddleware()

	// 9. Setup router
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORSMiddleware())
	router.Use(middleware.LoggingMiddleware())
	setupRoutes(router, cepHandler, authHandler, healthHandler, jwtMw)

	// 10. Start HTTP server
	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("Starting server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// 11. Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")

	// 12. Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}
	log.Info().Msg("Server exited")
}

// setupRoutes registers all routes.
func setupRoutes(router *gin.Engine, cep *handler.CepHandler, auth *handler.AuthHandler, health *handler.HealthHandler, jwtMiddleware *middleware.JWTMiddleware) {
	router.GET("/v1/health", health.GetHealth)

	// Public lookup routes
	v1 := router.Group("/v1")
	{
		v1.GET("/cep/:code", cep.GetCEP)
		v1.GET("/cep/:code/exists", cep.ExistsCEP)
		v1.GET("/ceps/uf/:uf", cep.ListByUF)
	}

	// Admin routes
	admin := router.Group("/v1/admin")
	admin.POST("/auth/login", auth.Login)
	admin.Use(jwtMiddleware.Handle())
	{
		admin.POST("/ceps", cep.CreateCEP)
		admin.PUT("/ceps/:id", cep.UpdateCEP)
		admin.DELETE("/ceps/:id", cep.DeleteCEP)
		admin.GET("/ceps/uf/:uf", cep.ListAllByUF)
	}
}

// runMigrations runs database migrations using golang-migrate.
func runMigrations(db *sql.DB) error {
	driver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("could not create migration driver: %w", err)
	}

	m, err := migrate.NewWithDatabaseInstance(
		"file://migrations",
		"postgres", driver)
	if err != nil {
		return fmt.Errorf("could not create migration instance: %w", err)
	}

	// Run migrations
	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("could not run migrations: %w", err)
	}

	return nil
}

func setupLogger(env string) {
	if env == "production" {
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	} else {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}
	log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
}
