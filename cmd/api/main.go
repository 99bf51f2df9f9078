// cmd/api/main.go
// Main entry point for the application
// This file bootstraps all components and starts the server

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

	"github.com/go-redis/redis/v8"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	// Internal packages
	"github.com/SlowlyFire/Hobbinder/internal/cache"
	"github.com/SlowlyFire/Hobbinder/internal/common/database"
	"github.com/SlowlyFire/Hobbinder/internal/config"
	"github.com/SlowlyFire/Hobbinder/internal/events"
	"github.com/SlowlyFire/Hobbinder/internal/matching"
	"github.com/SlowlyFire/Hobbinder/internal/users"
)

func main() {
	log.SetFlags(log.Ldate | log.Ltime | log.Lshortfile)

	log.Println("========================================")
	log.Println("🚀 Starting Hobbinder Recommendation API")
	log.Println("========================================")

	// 1. Load environment variables
	log.Println("📁 Step 1: Loading .env file...")
	if err := godotenv.Load(); err != nil {
		log.Printf("⚠️  Warning: No .env file found (%v), using environment variables", err)
	} else {
		log.Println("✅ .env file loaded successfully")
	}

	// 2. Load and validate configuration
	log.Println("\n📋 Step 2: Loading configuration...")
	cfg := config.Load()
	if err := cfg.Validate(); err != nil {
		log.Fatal("❌ Configuration validation failed:", err)
	}
	log.Println("✅ Configuration is valid")

	// 3. Connect to PostgreSQL
	log.Println("\n🗄️  Step 3: Connecting to PostgreSQL...")
	db, err := database.NewPostgresDB(cfg.DatabaseURL, nil)
	if err != nil {
		log.Fatal("❌ Failed to connect to PostgreSQL:", err)
	}
	defer db.Close()
	log.Println("✅ Connected to PostgreSQL successfully")

	// 4. Connect to Redis (optional, match-list caching only)
	log.Println("\n📮 Step 4: Connecting to Redis...")
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.NewRedisClient(context.Background(), cfg.RedisURL)
		if err != nil {
			log.Printf("⚠️  Redis unavailable (%v), continuing without match caching", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
			log.Println("✅ Connected to Redis successfully")
		}
	} else {
		log.Println("⚠️  Redis URL not configured, skipping Redis connection")
	}

	// 5. Run database migrations
	log.Println("\n🔨 Step 5: Running database migrations...")
	if err := runMigrations(db); err != nil {
		log.Fatal("❌ Failed to run migrations: ", err)
	}
	log.Println("✅ Database migrations completed")

	// 6. Load the scoring model
	log.Println("\n🧠 Step 6: Loading scoring model...")
	model := matching.LoadModel(cfg.ModelPath)

	// 7. Wire up modules
	log.Println("\n🔧 Step 7: Wiring modules...")

	userRepo := users.NewPostgresRepository(db)
	eventRepo := events.NewPostgresRepository(db)
	cacheRepo := cache.NewPostgresRepository(db)

	cacheService := cache.NewService(
		cacheRepo,
		users.NewCacheSource(userRepo),
		events.NewCacheSource(eventRepo),
		cfg.ExtendWorkers,
	)

	matchingService := matching.NewService(
		userRepo,
		eventRepo,
		cacheService,
		model,
		redisClient,
		matching.Config{
			MaxMatches: cfg.MaxMatches,
			Workers:    cfg.MatchWorkers,
			CacheTTL:   cfg.MatchCacheTTL,
		},
	)

	userService := users.NewService(userRepo, cacheService, matchingService)
	eventService := events.NewService(eventRepo, cacheService)

	log.Println("✅ Modules wired")

	// 8. Setup routes
	log.Println("\n🛣️  Step 8: Setting up routes...")
	router := mux.NewRouter()

	router.HandleFunc("/healthz", healthCheck).Methods("GET")
	router.Handle("/metrics", promhttp.Handler()).Methods("GET")

	users.RegisterRoutes(router, users.NewHandler(userService))
	log.Println("   ✅ User routes registered")

	events.RegisterRoutes(router, events.NewHandler(eventService))
	log.Println("   ✅ Event routes registered")

	matching.RegisterRoutes(router, matching.NewHandler(matchingService))
	log.Println("   ✅ Matching routes registered")

	router.Use(requestIDMiddleware)
	router.Use(loggingMiddleware)
	router.Use(corsMiddleware)

	// 9. Start the cache sweeper
	sweeperCtx, stopSweeper := context.WithCancel(context.Background())
	defer stopSweeper()
	cache.NewSweeper(cacheService, cfg.SweepInterval).Start(sweeperCtx)

	// 10. Create and start HTTP server
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Println("\n========================================")
		log.Printf("🚀 Server starting on http://localhost%s", srv.Addr)
		log.Printf("🌍 Environment: %s", cfg.Environment)
		log.Println("========================================")

		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("❌ Failed to start server:", err)
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("\n⚠️  Shutdown signal received...")
	stopSweeper()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		log.Fatal("❌ Server forced to shutdown:", err)
	}

	log.Println("✅ Server exited gracefully")
}

// Middleware functions

var startTime = time.Now()

// requestIDMiddleware tags every request with an ID for log correlation
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		requestID := r.Header.Get("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", requestID)
		next.ServeHTTP(w, r)
	})
}

// loggingMiddleware logs all requests
func loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		requestID := w.Header().Get("X-Request-ID")

		log.Printf("→ %s %s [%s] from %s", r.Method, r.RequestURI, requestID, r.RemoteAddr)

		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		log.Printf("← %s %s [%s] [%d] %v", r.Method, r.RequestURI, requestID, wrapped.statusCode, time.Since(start))
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// corsMiddleware handles CORS
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// healthCheck returns server health status
func healthCheck(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","uptime":"%s"}`, time.Since(startTime))
}

// runMigrations executes database migrations
func runMigrations(db *sqlx.DB) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS users (
            username VARCHAR(100) PRIMARY KEY,
            first_name VARCHAR(100) NOT NULL,
            last_name VARCHAR(100) NOT NULL,
            location_name VARCHAR(255),
            latitude DOUBLE PRECISION,
            longitude DOUBLE PRECISION,
            birthday TIMESTAMP,
            hobbies TEXT[] NOT NULL DEFAULT '{}',
            summary TEXT,
            likes INTEGER NOT NULL DEFAULT 0,
            dislikes INTEGER NOT NULL DEFAULT 0,
            like_ratio DOUBLE PRECISION NOT NULL DEFAULT 0,
            last_ratio_update TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS user_interactions (
            id BIGSERIAL PRIMARY KEY,
            username VARCHAR(100) NOT NULL REFERENCES users(username) ON DELETE CASCADE,
            event_id BIGINT NOT NULL,
            interaction_type VARCHAR(10) NOT NULL CHECK (interaction_type IN ('LIKE', 'DISLIKE')),
            interacted_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS events (
            id BIGSERIAL PRIMARY KEY,
            uploader_username VARCHAR(100) NOT NULL,
            category VARCHAR(100) NOT NULL,
            summary TEXT NOT NULL,
            location_name VARCHAR(255) NOT NULL,
            latitude DOUBLE PRECISION NOT NULL,
            longitude DOUBLE PRECISION NOT NULL,
            when_date TIMESTAMP NOT NULL,
            upload_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS event_likes (
            event_id BIGINT NOT NULL REFERENCES events(id) ON DELETE CASCADE,
            username VARCHAR(100) NOT NULL REFERENCES users(username) ON DELETE CASCADE,
            liked_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
            checked BOOLEAN NOT NULL DEFAULT FALSE,
            PRIMARY KEY (event_id, username)
        )`,

		`CREATE TABLE IF NOT EXISTS user_event_distances (
            username VARCHAR(100) PRIMARY KEY REFERENCES users(username) ON DELETE CASCADE,
            distances JSONB NOT NULL DEFAULT '[]',
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		`CREATE TABLE IF NOT EXISTS user_event_categories (
            username VARCHAR(100) PRIMARY KEY REFERENCES users(username) ON DELETE CASCADE,
            category_matches JSONB NOT NULL DEFAULT '[]',
            updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`,

		// Indexes
		`CREATE INDEX IF NOT EXISTS idx_interactions_username ON user_interactions(username)`,
		`CREATE INDEX IF NOT EXISTS idx_events_uploader ON events(uploader_username)`,
		`CREATE INDEX IF NOT EXISTS idx_events_when_date ON events(when_date)`,
		`CREATE INDEX IF NOT EXISTS idx_event_likes_username ON event_likes(username)`,
	}

	for i, migration := range migrations {
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	return nil
}
