package main

import (
	"log"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/joho/godotenv"
	httpSwagger "github.com/swaggo/http-swagger"

	_ "sitterswap/docs"
	"sitterswap/internal/config"
	"sitterswap/internal/database"
	"sitterswap/internal/event"
	"sitterswap/internal/family"
	"sitterswap/internal/group"
	"sitterswap/internal/invitation"
	"sitterswap/internal/notification"
	"sitterswap/internal/points"
	"sitterswap/internal/user"
	mw "sitterswap/pkg/middleware"
	"sitterswap/pkg/token"
)

// @title           SitterSwap API
// @version         1.0
// @description     Babysitting exchange with a points-based credit economy.
// @BasePath        /api/v1
func main() {
	// Load .env file
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Load configuration
	cfg := config.Load()

	// Initialize database connection
	db, err := database.InitializeWithType(cfg.DatabaseType, cfg.DatabaseURL, cfg.DatabasePath)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.RunMigrations(cfg.MigrationsPath); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Connected to database successfully")

	tokens := token.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	requireAuth := mw.RequireAuth(tokens)

	// User feature
	userRepo := user.NewRepository(db)
	userService := user.NewService(userRepo, tokens)
	userHandler := user.NewHandler(userService, requireAuth)

	// Family feature
	familyRepo := family.NewRepository(db)
	familyService := family.NewService(db, familyRepo, userRepo)
	familyHandler := family.NewHandler(familyService, tokens)

	// Points ledger
	pointsRepo := points.NewRepository(db)

	// Group feature
	groupRepo := group.NewRepository(db)
	groupService := group.NewService(db, groupRepo, pointsRepo)
	groupHandler := group.NewHandler(groupService)

	// Notification feature
	notificationRepo := notification.NewRepository(db)
	notificationService := notification.NewService(notificationRepo)
	notificationHandler := notification.NewHandler(notificationService)

	// Event feature
	eventRepo := event.NewRepository(db)
	eventService := event.NewService(db, eventRepo, groupRepo, familyRepo, userRepo, pointsRepo, notificationService)
	eventHandler := event.NewHandler(eventService)

	// Invitation feature
	invitationRepo := invitation.NewRepository(db)
	invitationService := invitation.NewService(db, invitationRepo, familyRepo, userRepo, notificationService)
	invitationHandler := invitation.NewHandler(invitationService, tokens)

	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	r.Get("/swagger/*", httpSwagger.WrapHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		// Registration and login are public; user.Handler guards /me itself
		r.Mount("/users", userHandler.Routes())

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Mount("/families", familyHandler.Routes())
			r.Mount("/groups", groupHandler.Routes())
			r.Mount("/events", eventHandler.Routes())
			r.Mount("/invitations", invitationHandler.Routes())
			r.Mount("/notifications", notificationHandler.Routes())
		})
	})

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on port %s", port)
	if err := http.ListenAndServe(":"+port, r); err != nil {
		log.Fatalf("Server failed to start: %v", err)
	}
}
