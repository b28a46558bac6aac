package main

import (
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/ricelink/ricelink-golang/internal/advisor"
	"github.com/ricelink/ricelink-golang/internal/database"
	"github.com/ricelink/ricelink-golang/internal/handlers"
	"github.com/ricelink/ricelink-golang/internal/routes"
)

func main() {
	// 0. --- Load Environment Variables (.env) ---
	if err := godotenv.Load(); err != nil {
		log.Println("WARNING: Could not find or load .env file. Relying on system environment variables.")
	}

	// 1. --- Main Database Connection (Read/Write) ---
	db, err := database.OpenDB()
	if err != nil {
		log.Fatalf("Failed to connect to primary database: %v", err)
	}
	defer db.Close()

	// 2. --- Read-Only Connection (Advisor) ---
	// Falls back to the primary pool; the advisor's own SELECT-only guard
	// still applies, but a dedicated read-only account is the safe setup.
	dbReadOnly := db
	if readOnlyDSN := os.Getenv("DB_DSN_READONLY"); readOnlyDSN != "" {
		dbReadOnly, err = database.OpenDBWithDSN(readOnlyDSN)
		if err != nil {
			log.Fatalf("Failed to connect to read-only database: %v", err)
		}
		defer dbReadOnly.Close()
	} else {
		log.Println("WARNING: DB_DSN_READONLY not set; the market advisor will use the primary pool.")
	}

	// 3. --- Market Advisor (Optional) ---
	var advisorService *advisor.Service
	if geminiKey := os.Getenv("GEMINI_API_KEY"); geminiKey != "" {
		advisorService, err = advisor.NewService(geminiKey, dbReadOnly)
		if err != nil {
			log.Fatalf("Failed to initialize the market advisor: %v", err)
		}
	} else {
		log.Println("WARNING: GEMINI_API_KEY not set; the market advisor endpoint is disabled.")
	}

	// --- Application Setup ---
	app := &handlers.Handlers{
		DB:         db,
		DBReadOnly: dbReadOnly,
		Advisor:    advisorService,
	}

	// 4. --- Background Worker ---
	// Closes auctions past their end_time: records the winner and opens
	// the winner's payment.
	go func() {
		ticker := time.NewTicker(1 * time.Minute)
		defer ticker.Stop()

		log.Println("Background worker started: closing expired auctions")
		for range ticker.C {
			app.CloseExpiredAuctions()
		}
	}()

	// --- Router Setup ---
	router := routes.SetupRouter(app)

	// --- Start Server ---
	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.Printf("Starting RiceLink API server on port %s...", port)
	if err := router.Run(":" + port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
