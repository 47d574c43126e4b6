package main

import (
	"context"
	"errors"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"github.com/telana99/vehicle-record-ledger/internal/auth"
	"github.com/telana99/vehicle-record-ledger/internal/db"
	"github.com/telana99/vehicle-record-ledger/internal/events"
	"github.com/telana99/vehicle-record-ledger/internal/handlers"
	"github.com/telana99/vehicle-record-ledger/internal/ledger"
	"github.com/telana99/vehicle-record-ledger/internal/middleware"
	"github.com/telana99/vehicle-record-ledger/internal/models"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file found, using environment")
	}

	ctx := context.Background()

	// Storage: MongoDB by default, in-memory for local demos.
	var commitLog db.CommitLog
	var credentials db.CredentialCollection
	if os.Getenv("LEDGER_STORAGE") == "memory" {
		commitLog = db.NewMemoryCommitLog()
		credentials = db.NewMemoryCredentialCollection()
		log.Info("Using in-memory storage")
	} else {
		client, err := db.ConnectMongo()
		if err != nil {
			log.WithError(err).Fatal("Failed to connect to MongoDB")
		}
		dbName := os.Getenv("MONGO_DB")
		if dbName == "" {
			dbName = "vehicleledger"
		}
		database := client.Database(dbName)
		commitLog = &db.MongoCommitLog{Collection: database.Collection("commit_log")}
		credentials = &db.MongoCredentialCollection{Collection: database.Collection("credentials")}
		log.WithField("database", dbName).Info("Connected to MongoDB")
	}

	// The deploying principal becomes the ledger owner, fixed for the
	// lifetime of the instance.
	owner := models.Principal(os.Getenv("OWNER_PRINCIPAL"))
	if owner == "" {
		owner = "ledger-owner"
	}

	led, err := ledger.New(owner, commitLog)
	if err != nil {
		log.WithError(err).Fatal("Failed to create ledger")
	}

	entries, err := commitLog.Load(ctx)
	if err != nil {
		log.WithError(err).Fatal("Failed to load commit log")
	}
	if err := led.Replay(entries); err != nil {
		log.WithError(err).Fatal("Failed to replay commit log")
	}
	log.WithFields(log.Fields{
		"address": led.Address(),
		"owner":   led.Owner(),
		"entries": len(entries),
	}).Info("Ledger ready")

	authService, err := auth.NewService(credentials)
	if err != nil {
		log.WithError(err).Fatal("Failed to create auth service")
	}

	// Bootstrap the owner credential so deployment tooling can obtain a
	// token immediately after first start.
	ownerSecret := os.Getenv("OWNER_SECRET")
	if ownerSecret != "" {
		if _, err := authService.Register(ctx, owner, ownerSecret); err != nil && !errors.Is(err, auth.ErrPrincipalExists) {
			log.WithError(err).Fatal("Failed to register owner credential")
		}
	}

	led.Subscribe(events.NewLogListener(log.StandardLogger()))
	if broker := os.Getenv("MQTT_BROKER"); broker != "" {
		publisher, err := events.NewMQTTPublisher(broker, led.Address(), log.StandardLogger())
		if err != nil {
			log.WithError(err).Fatal("Failed to connect MQTT publisher")
		}
		defer publisher.Close()
		led.Subscribe(publisher.Publish)
		log.WithField("broker", broker).Info("Publishing ledger events to MQTT")
	}

	authHandler := handlers.NewAuthHandler(authService)
	ledgerHandler := handlers.NewLedgerHandler(led)

	mux := http.NewServeMux()
	mux.HandleFunc("/api/auth/register", authHandler.Register)
	mux.HandleFunc("/api/auth/token", authHandler.Token)
	mux.HandleFunc("/api/centers", ledgerHandler.Centers)
	mux.HandleFunc("/api/records", ledgerHandler.Records)
	mux.HandleFunc("/api/records/count", ledgerHandler.RecordCount)
	mux.HandleFunc("/api/ledger", ledgerHandler.Info)
	mux.HandleFunc("/health", ledgerHandler.Health)

	authMiddleware := middleware.NewAuthMiddleware(authService)
	rateLimit := middleware.NewRateLimitMiddleware(authService)
	handler := rateLimit.RateLimit(120, 60)(authMiddleware.Authenticate(mux))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}
	log.WithField("port", port).Info("HTTP server listening")
	log.Fatal(http.ListenAndServe(":"+port, handler))
}
