// crushnote/main.go
package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/Ali-GR/CrushNoteApp/config"
	"github.com/Ali-GR/CrushNoteApp/database"
	"github.com/Ali-GR/CrushNoteApp/handlers"
	"github.com/Ali-GR/CrushNoteApp/models"
	"github.com/Ali-GR/CrushNoteApp/moderation"
	"github.com/Ali-GR/CrushNoteApp/utils"
)

type Application struct {
	db          *database.DatabaseService
	pipeline    *moderation.Pipeline
	rateLimiter *models.RateLimiter
	logger      *slog.Logger
	jwtSecret   []byte
	modKeyHash  []byte
	storage     utils.StorageService
}

// Methods to satisfy the handlers.App interface
func (a *Application) DB() *database.DatabaseService       { return a.db }
func (a *Application) Pipeline() *moderation.Pipeline      { return a.pipeline }
func (a *Application) RateLimiter() *models.RateLimiter    { return a.rateLimiter }
func (a *Application) Logger() *slog.Logger                { return a.logger }
func (a *Application) JWTSecret() []byte                   { return a.jwtSecret }
func (a *Application) ModKeyHash() []byte                  { return a.modKeyHash }
func (a *Application) BackupStorage() utils.StorageService { return a.storage }

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	// --- External Configuration ---
	port := utils.GetEnv("CRUSHNOTE_PORT", "8080")
	dbPath := utils.GetEnv("CRUSHNOTE_DB_PATH", "./crushnote.db?_journal_mode=WAL&_foreign_keys=on")

	jwtSecret := os.Getenv("CRUSHNOTE_JWT_SECRET")
	if jwtSecret == "" {
		logger.Error("FATAL: CRUSHNOTE_JWT_SECRET must be set")
		os.Exit(1)
	}

	// Bcrypt hash of the shared moderator key. Empty disables the console.
	modKeyHash := os.Getenv("CRUSHNOTE_MOD_KEY_HASH")
	if modKeyHash == "" {
		logger.Warn("CRUSHNOTE_MOD_KEY_HASH not set, moderation console is disabled")
	}

	utils.BackupDir = utils.GetEnv("CRUSHNOTE_BACKUP_DIR", "./backups")
	if err := os.MkdirAll(utils.BackupDir, 0755); err != nil {
		logger.Error("FATAL: Could not create backup directory", "path", utils.BackupDir, "error", err)
		os.Exit(1)
	}

	rateLimitEvery, err := time.ParseDuration(utils.GetEnv("CRUSHNOTE_RATE_EVERY", config.DefaultRateLimitEvery))
	if err != nil {
		logger.Warn("Invalid CRUSHNOTE_RATE_EVERY duration, using default", "default", config.DefaultRateLimitEvery)
		rateLimitEvery, _ = time.ParseDuration(config.DefaultRateLimitEvery)
	}
	rateLimitBurst, err := strconv.Atoi(utils.GetEnv("CRUSHNOTE_RATE_BURST", strconv.Itoa(config.DefaultRateLimitBurst)))
	if err != nil {
		logger.Warn("Invalid CRUSHNOTE_RATE_BURST integer, using default", "default", config.DefaultRateLimitBurst)
		rateLimitBurst = config.DefaultRateLimitBurst
	}
	rateLimitPrune, err := time.ParseDuration(utils.GetEnv("CRUSHNOTE_RATE_PRUNE", config.DefaultRateLimitPrune))
	if err != nil {
		logger.Warn("Invalid CRUSHNOTE_RATE_PRUNE duration, using default", "default", config.DefaultRateLimitPrune)
		rateLimitPrune, _ = time.ParseDuration(config.DefaultRateLimitPrune)
	}
	rateLimitExpire, err := time.ParseDuration(utils.GetEnv("CRUSHNOTE_RATE_EXPIRE", config.DefaultRateLimitExpire))
	if err != nil {
		logger.Warn("Invalid CRUSHNOTE_RATE_EXPIRE duration, using default", "default", config.DefaultRateLimitExpire)
		rateLimitExpire, _ = time.ParseDuration(config.DefaultRateLimitExpire)
	}

	dbService, err := database.InitDB(dbPath, logger)
	if err != nil {
		logger.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbService.DB.Close(); err != nil {
			logger.Error("Failed to close database", "error", err)
		}
	}()

	// --- Classifier & Pipeline Init ---
	classifierTimeout, err := time.ParseDuration(utils.GetEnv("CRUSHNOTE_CLASSIFIER_TIMEOUT", config.DefaultClassifierTimeout))
	if err != nil {
		classifierTimeout, _ = time.ParseDuration(config.DefaultClassifierTimeout)
	}
	classifierBackoff, _ := time.ParseDuration(config.ClassifierRetryBackoff)
	classifier := moderation.NewClassifier(
		utils.GetEnv("CRUSHNOTE_CLASSIFIER_URL", config.DefaultClassifierURL),
		os.Getenv("CRUSHNOTE_CLASSIFIER_API_KEY"),
		classifierTimeout,
		classifierBackoff,
	)
	if classifier.APIKey == "" {
		logger.Warn("CRUSHNOTE_CLASSIFIER_API_KEY not set, AI adjudication is disabled")
	}
	pipeline := moderation.NewPipeline(dbService, classifier, logger)

	// --- Storage Service Init ---
	var storageService utils.StorageService
	if utils.GetEnv("CRUSHNOTE_S3_ENABLED", "false") == "true" {
		endpoint := utils.GetEnv("CRUSHNOTE_S3_ENDPOINT", "")
		accessKey := utils.GetEnv("CRUSHNOTE_S3_ACCESS_KEY", "")
		secretKey := utils.GetEnv("CRUSHNOTE_S3_SECRET_KEY", "")
		bucket := utils.GetEnv("CRUSHNOTE_S3_BUCKET", "")
		region := utils.GetEnv("CRUSHNOTE_S3_REGION", "us-east-1")
		prefix := utils.GetEnv("CRUSHNOTE_S3_PREFIX", "backups")
		useSSL := utils.GetEnv("CRUSHNOTE_S3_USE_SSL", "true") == "true"

		storageService, err = utils.NewS3Storage(endpoint, accessKey, secretKey, bucket, region, prefix, useSSL)
		if err != nil {
			logger.Error("Failed to initialize S3 storage", "error", err)
			os.Exit(1)
		}
		logger.Info("S3 storage initialized", "endpoint", endpoint, "bucket", bucket)
	} else {
		storageService = &utils.LocalStorage{Dir: utils.BackupDir}
		logger.Info("Local storage initialized", "dir", utils.BackupDir)
	}

	app := &Application{
		db:          dbService,
		pipeline:    pipeline,
		rateLimiter: models.NewRateLimiter(rateLimitEvery, rateLimitBurst, rateLimitPrune, rateLimitExpire),
		logger:      logger,
		jwtSecret:   []byte(jwtSecret),
		modKeyHash:  []byte(modKeyHash),
		storage:     storageService,
	}

	mux := handlers.SetupRouter(app)

	// --- Graceful Shutdown ---
	server := &http.Server{Addr: ":" + port, Handler: mux}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Server failed unexpectedly", "error", err)
			os.Exit(1)
		}
	}()

	logger.Info("crushnote server started successfully",
		"version", config.AppVersion,
		"address", "http://localhost:"+port,
	)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}
	logger.Info("Server exiting")
}
