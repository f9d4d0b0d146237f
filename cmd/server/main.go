package main

import (
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/codesync/backend/internal/api"
	"github.com/codesync/backend/internal/db"
	"github.com/codesync/backend/internal/registry"
	"github.com/codesync/backend/internal/room"
	"github.com/codesync/backend/internal/session"
	"github.com/codesync/backend/internal/ws"
)

func main() {
	dbPath := os.Getenv("CODESYNC_DB_PATH")
	if dbPath == "" {
		dbPath = "./data/codesync.db"
	}

	grace := room.DefaultGracePeriod
	if v := os.Getenv("GRACE_PERIOD"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			log.Fatalf("Invalid GRACE_PERIOD %q: %v", v, err)
		}
		grace = d
	}

	database, err := db.New(dbPath)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close()

	directory := room.NewDirectory(grace)
	names := registry.New()

	coordinator := session.New(directory, names)
	go coordinator.Run()

	apiHandler := api.New(coordinator, directory, database)

	// WebSocket endpoint
	http.HandleFunc("/ws", func(w http.ResponseWriter, r *http.Request) {
		ws.ServeWs(coordinator, w, r)
	})

	http.HandleFunc("/health", apiHandler.HealthHandler)
	http.HandleFunc("/api/stats", apiHandler.StatsHandler)
	http.HandleFunc("/api/rooms", apiHandler.RoomsRouter)
	http.HandleFunc("/api/rooms/", apiHandler.RoomsRouter)
	http.HandleFunc("/api/room/save", apiHandler.SaveRoomHandler)
	http.HandleFunc("/api/room/load/", apiHandler.LoadRoomHandler)
	http.HandleFunc("/api/room/saved", apiHandler.SavedRoomsRouter)
	http.HandleFunc("/api/room/saved/", apiHandler.SavedRoomsRouter)

	// Apply CORS middleware
	handler := corsMiddleware(http.DefaultServeMux)

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan

		log.Println("Shutting down server...")
		coordinator.Stop()
		directory.Close()
		database.Close()
		os.Exit(0)
	}()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	log.Printf("Codesync server starting on :%s", port)
	log.Printf("Database: %s", dbPath)
	log.Printf("Grace period: %v", grace)
	log.Println("Endpoints:")
	log.Println("  - WebSocket: /ws")
	log.Println("  - Health:    GET /health")
	log.Println("  - Stats:     GET /api/stats")
	log.Println("  - Rooms:     GET /api/rooms")
	log.Println("  - Room:      GET /api/rooms/{id}")
	log.Println("  - Save:      POST /api/room/save")
	log.Println("  - Load:      GET /api/room/load/{id}")
	log.Println("  - Saved:     GET /api/room/saved")
	log.Println("  - Delete:    DELETE /api/room/saved/{id}")

	if err := http.ListenAndServe(":"+port, handler); err != nil {
		log.Fatal("ListenAndServe: ", err)
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}
