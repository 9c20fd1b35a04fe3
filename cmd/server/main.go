package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/go-co-op/gocron"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/lingua-prep/backend/internal/auth"
	"github.com/lingua-prep/backend/internal/database"
	"github.com/lingua-prep/backend/internal/middleware"
	"github.com/lingua-prep/backend/internal/progress"
	"github.com/lingua-prep/backend/internal/questgen"
	"github.com/rs/cors"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	// Initialize database
	db, err := database.Connect()
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := database.Migrate(db); err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	// Streak days roll over in a single policy time zone for all users.
	var tracker *progress.Tracker
	if tz := os.Getenv("STREAK_TIMEZONE"); tz != "" {
		loc, err := time.LoadLocation(tz)
		if err != nil {
			log.Fatalf("Invalid STREAK_TIMEZONE %q: %v", tz, err)
		}
		tracker = progress.NewTracker(loc)
	} else {
		tracker = progress.NewTracker(nil)
	}

	var syncer progress.RemoteSyncer
	if base := os.Getenv("SYNC_URL"); base != "" {
		syncer = progress.NewHTTPSyncer(base)
		log.Printf("Remote progress sync enabled: %s", base)
	}

	store := progress.NewPostgresStore(db)
	controller := progress.NewController(store, tracker, nil, syncer)
	assigner := questgen.NewAssigner(store, nil, questgen.NewLLMClient())

	// Initialize handlers
	authHandler := auth.NewHandler(db)
	progressHandler := progress.NewHandler(controller, assigner)

	// Setup router
	r := mux.NewRouter()
	api := r.PathPrefix("/api/v1").Subrouter()

	// Public routes
	api.HandleFunc("/auth/register", authHandler.Register).Methods("POST")
	api.HandleFunc("/auth/login", authHandler.Login).Methods("POST")

	// Protected routes
	protected := api.PathPrefix("").Subrouter()
	protected.Use(middleware.AuthMiddleware)
	protected.HandleFunc("/auth/me", authHandler.GetCurrentUser).Methods("GET")

	protected.HandleFunc("/progress", progressHandler.GetProgress).Methods("GET")
	protected.HandleFunc("/lessons/complete", progressHandler.CompleteLesson).Methods("POST")

	protected.HandleFunc("/shop/items", progressHandler.GetShopItems).Methods("GET")
	protected.HandleFunc("/shop/purchase", progressHandler.Purchase).Methods("POST")

	protected.HandleFunc("/quests", progressHandler.GetQuests).Methods("GET")
	protected.HandleFunc("/quests/{id:[0-9]+}/progress", progressHandler.QuestProgress).Methods("POST")
	protected.HandleFunc("/quests/{id:[0-9]+}/complete", progressHandler.CompleteQuest).Methods("POST")
	protected.HandleFunc("/quests/{id:[0-9]+}", progressHandler.AbandonQuest).Methods("DELETE")

	// Health check
	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Background jobs: quest expiry sweep and outbox sync.
	scheduler := gocron.NewScheduler(time.UTC)
	scheduler.Every(1).Hour().Do(func() {
		if _, err := controller.SweepExpiredQuests(); err != nil {
			log.Printf("Quest expiry sweep failed: %v", err)
		}
	})
	scheduler.Every(1).Minute().Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cancel()
		controller.RunSyncPass(ctx, 100)
	})
	scheduler.StartAsync()

	// CORS
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	handler := c.Handler(r)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Server starting on :%s", port)
	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
