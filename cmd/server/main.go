package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/dental-cdss-server/internal/api"
	"github.com/dental-cdss-server/internal/auth"
	"github.com/dental-cdss-server/internal/cache"
	"github.com/dental-cdss-server/internal/config"
	"github.com/dental-cdss-server/internal/database"
	"github.com/dental-cdss-server/internal/feedback"
	"github.com/dental-cdss-server/internal/repository"
	"github.com/dental-cdss-server/internal/service"
)

func main() {
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}
	cfg := configManager.GetConfig()

	logger := newLogger(cfg.Logging)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dbConfig := database.Config{
		Host:        cfg.Database.Host,
		Port:        cfg.Database.Port,
		Database:    cfg.Database.Database,
		Username:    cfg.Database.Username,
		Password:    cfg.Database.Password,
		SSLMode:     cfg.Database.SSLMode,
		MaxConns:    cfg.Database.MaxConns,
		MinConns:    cfg.Database.MinConns,
		MaxConnLife: cfg.Database.ConnMaxLifetime,
		MaxConnIdle: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewConnection(ctx, dbConfig, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	migrationRunner, err := database.NewMigrationRunner(dbConfig.URL(), cfg.Database.MigrationsPath, logger)
	if err != nil {
		logger.WithError(err).Fatal("Failed to initialize migration runner")
	}
	if err := migrationRunner.Up(); err != nil {
		logger.WithError(err).Fatal("Failed to run migrations")
	}
	if err := migrationRunner.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close migration runner")
	}

	ruleStore := repository.NewRuleRepository(db.Pool, logger)
	recordStore := repository.NewRecordRepository(db.Pool, logger)
	assessmentStore := repository.NewAssessmentRepository(db.Pool, logger)

	var redisClient *redis.Client
	if cfg.Cache.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Cache.RedisAddr,
			Password: cfg.Cache.RedisPassword,
			DB:       cfg.Cache.RedisDB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.WithError(err).Warn("Redis unreachable, assessment cache disabled")
			redisClient = nil
		}
		defer func() {
			if redisClient != nil {
				redisClient.Close()
			}
		}()
	}
	assessmentCache := cache.NewAssessmentCache(redisClient, cfg.Cache.AssessmentTTL, logger)

	feedbackStore, err := newFeedbackStore(cfg, dbConfig)
	if err != nil {
		logger.WithError(err).Fatal("Failed to open feedback store")
	}
	defer feedbackStore.Close()

	engine := service.NewRuleEngine(logger)
	decider := service.NewDecisionAlgorithm(engine, logger)
	snapshots := service.NewSnapshotProvider(ruleStore, cfg.Rules.SnapshotTTL, logger)
	assessments := service.NewAssessmentService(recordStore, assessmentStore, snapshots, decider, assessmentCache, logger)
	similarity := service.NewSimilaritySearch(recordStore, assessmentStore, 256, cfg.Rules.SnapshotTTL, logger)

	tokenIssuer := auth.NewTokenIssuer(cfg.Auth.JWTSecret, cfg.Auth.TokenExpiry)

	server := api.NewServer(cfg, api.Dependencies{
		Rules:       ruleStore,
		Records:     recordStore,
		Assessments: assessments,
		Similarity:  similarity,
		Snapshots:   snapshots,
		Feedback:    feedbackStore,
		TokenIssuer: tokenIssuer,
		DB:          db,
	}, logger)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down")
		cancel()
	}()

	if err := server.Start(ctx); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func newLogger(cfg config.LoggingConfig) *logrus.Logger {
	logger := logrus.New()

	level, err := logrus.ParseLevel(strings.ToLower(cfg.Level))
	if err != nil {
		level = logrus.InfoLevel
	}
	logger.SetLevel(level)

	if cfg.Format == "json" {
		logger.SetFormatter(&logrus.JSONFormatter{})
	} else {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	return logger
}

func newFeedbackStore(cfg *config.Config, dbConfig database.Config) (feedback.Store, error) {
	if cfg.Feedback.Backend == "sqlite" {
		return feedback.NewSQLiteStore(cfg.Feedback.SQLitePath)
	}
	return feedback.NewPostgresStore(dbConfig.DSN())
}
