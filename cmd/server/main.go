package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"choreboard/internal/config"
	"choreboard/internal/credentials"
	"choreboard/internal/database"
	"choreboard/internal/handlers"
	"choreboard/internal/repository"
	"choreboard/internal/security"
	"choreboard/internal/service"
)

func main() {
	// Load configuration
	cfg := config.Load()

	// Initialize database with config (supports sqlite, postgres, mysql)
	db, err := database.InitializeWithConfig(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	log.Printf("Database connection established (type: %s)", cfg.DatabaseType)

	// Run migrations
	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Migrations completed successfully")

	// Seed the activity category catalog
	if err := db.SeedActivityCategories(); err != nil {
		log.Printf("Warning: Failed to seed activity categories: %v", err)
	}

	// Initialize repositories
	userRepo := repository.NewUserRepository(db)
	familyRepo := repository.NewFamilyRepository(db)
	activityRepo := repository.NewActivityRepository(db)

	// Initialize services
	authService := service.NewAuthService(userRepo, cfg.IdentitySecret, cfg.SessionDuration)
	familyService := service.NewFamilyService(familyRepo, userRepo, credentials.NewCryptoCodeGenerator())
	activityService := service.NewActivityService(activityRepo)
	aggregationService := service.NewAggregationService(activityRepo, familyRepo)

	emailService, err := service.NewEmailService(context.Background(), cfg.SESRegion, cfg.SESFromEmail, cfg.SESFromName, cfg.AppBaseURL)
	if err != nil {
		log.Fatalf("Failed to initialize email service: %v", err)
	}

	// Per-surface rate limits: guest joins burn invite-code guesses, so they
	// get a tighter bucket than sign-ins
	loginLimiter := security.NewRateLimiter(20, time.Minute)
	guessLimiter := security.NewRateLimiter(10, time.Minute)
	emailLimiter := security.NewRateLimiter(5, time.Minute)

	// Initialize handlers
	middleware := handlers.NewMiddleware(authService)
	authHandler := handlers.NewAuthHandler(authService)
	familyHandler := handlers.NewFamilyHandler(familyService, authService, emailService)
	activityHandler := handlers.NewActivityHandler(activityService, aggregationService)

	// Setup routes
	mux := http.NewServeMux()

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	// Auth routes
	mux.HandleFunc("POST /api/auth/login", handlers.RateLimit(loginLimiter, authHandler.Login))
	mux.HandleFunc("GET /api/auth/me", middleware.OptionalAuth(authHandler.Me))
	mux.HandleFunc("POST /api/auth/logout", authHandler.Logout)

	// Family routes
	mux.HandleFunc("GET /api/family", middleware.RequireAuth(familyHandler.GetFamily))
	mux.HandleFunc("POST /api/family", middleware.RequireAuth(familyHandler.CreateFamily))
	mux.HandleFunc("POST /api/family/join", middleware.RequireAuth(familyHandler.JoinFamily))
	mux.HandleFunc("POST /api/family/guest-join", handlers.RateLimit(guessLimiter, familyHandler.GuestJoin))
	mux.HandleFunc("POST /api/family/profile", middleware.RequireAuth(familyHandler.SetProfile))
	mux.HandleFunc("POST /api/family/invite/regenerate", middleware.RequireAuth(familyHandler.RegenerateInvite))
	mux.HandleFunc("POST /api/family/invite/email", middleware.RequireAuth(handlers.RateLimit(emailLimiter, familyHandler.EmailInvite)))

	// Activity routes
	mux.HandleFunc("GET /api/activities/categories", activityHandler.ListCategories)
	mux.HandleFunc("POST /api/activities", middleware.RequireAuth(activityHandler.LogActivity))
	mux.HandleFunc("GET /api/activities", middleware.RequireAuth(activityHandler.GetHistory))
	mux.HandleFunc("GET /api/dashboard", middleware.RequireAuth(activityHandler.GetDashboard))
	mux.HandleFunc("GET /api/stats", middleware.RequireAuth(activityHandler.GetStats))

	// Wrap with logging middleware
	handler := handlers.Logging(mux)

	// Start background session cleanup
	authService.StartSessionCleanup(1 * time.Hour)

	// Start server
	addr := ":" + cfg.ServerPort
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Printf("Server starting on http://localhost%s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server failed: %v", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Server shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("Shutdown error: %v", err)
	}
}
