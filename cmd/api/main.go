package main

import (
	"context"
	"log"
	"net/http"

	"github.com/rs/cors"

	"github.com/Upring0808/aitomanager-sub000/internal/checkin"
	"github.com/Upring0808/aitomanager-sub000/internal/config"
	"github.com/Upring0808/aitomanager-sub000/internal/database"
	"github.com/Upring0808/aitomanager-sub000/internal/reconciler"
	"github.com/Upring0808/aitomanager-sub000/internal/routes"
	"github.com/Upring0808/aitomanager-sub000/internal/store"
	"github.com/Upring0808/aitomanager-sub000/internal/utils"
)

func main() {
	// Load configuration
	cfg := config.LoadConfig()

	// Connect to MongoDB
	client, err := database.ConnectMongoDB(cfg.MongoURI)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Fatal("Failed to disconnect from MongoDB:", err)
		}
	}()

	// Wire the attendance core around the shared store
	st := store.NewMongo(client, cfg.DatabaseName)
	processor := checkin.NewProcessor(st)

	mailer := &utils.Mailer{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
	}
	notifier := utils.NewFineNotifier(client, cfg.DatabaseName, mailer)

	rec := reconciler.New(st, st, st)
	rec.Notify = notifier

	// Absentee fines are assessed by a periodic worker, not by whichever
	// client happens to look at an ended event
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go reconciler.NewWorker(rec, cfg.ReconcileInterval).Run(ctx)

	// Initialize router
	router := routes.SetupRouter(client, cfg.DatabaseName, st, processor, rec, notifier)

	// Setup CORS middleware
	c := cors.New(cors.Options{
		AllowedOrigins:   []string{cfg.Origin},
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Authorization", "Content-Type"},
		AllowCredentials: true,
	})

	// Wrap router with CORS
	handler := c.Handler(router)

	// Start server
	log.Printf("🚀 Server running on port %s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, handler); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
