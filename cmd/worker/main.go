package main

import (
	"context"
	"flag"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/database"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/logger"
	"github.com/oraculo-ai/oraculo/internal/memory"
	"github.com/oraculo-ai/oraculo/internal/queue"
	"github.com/oraculo-ai/oraculo/internal/workers"
)

const lexiconPromotionFloor = 3

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.WorkerDebugMode || *debugFlag

	// Initialize logger
	zapLogger, err := logger.NewProductionLogger(debugMode)
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer func() {
		if syncErr := zapLogger.Sync(); syncErr != nil {
			// Ignore sync errors in production
			_ = syncErr
		}
	}()

	zapLogger.Info("Starting worker",
		zap.Bool("debug_mode", debugMode),
		zap.Int("consolidation_cadence", cfg.Memory.ConsolidationCadence),
	)

	// Initialize database connection
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("Failed to close database connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to database")

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx); err != nil {
		schemaCancel()
		zapLogger.Fatal("Failed to ensure database schema", zap.Error(err))
	}
	schemaCancel()

	// Initialize repositories
	profileRepo := database.NewProfileRepository(db)
	memoryRepo := database.NewMemoryRepository(db)
	interactionRepo := database.NewInteractionRepository(db)
	problemRepo := database.NewProblemRepository(db)
	patternRepo := database.NewLanguagePatternRepository(db)
	lexiconRepo := database.NewLexiconRepository(db)

	// Seed the lexicon and overlay learned terms
	lex := lexicon.New()
	loadCtx, loadCancel := context.WithCancel(context.Background())
	loaded, err := lexiconRepo.LoadLearned(loadCtx, lex, lexiconPromotionFloor)
	loadCancel()
	if err != nil {
		zapLogger.Warn("Failed to load learned lexicon terms", zap.Error(err))
	} else {
		zapLogger.Info("Learned lexicon terms loaded", zap.Int("count", loaded))
	}

	// Initialize RabbitMQ queue
	jobQueue, err := queue.NewRabbitMQQueue(cfg.RabbitMQURL)
	if err != nil {
		zapLogger.Fatal("Failed to connect to RabbitMQ", zap.Error(err))
	}
	defer func() {
		if err := jobQueue.Close(); err != nil {
			zapLogger.Warn("Failed to close RabbitMQ connection", zap.Error(err))
		}
	}()

	zapLogger.Info("Connected to RabbitMQ",
		zap.Int("prefetch", cfg.RabbitMQPrefetch),
	)

	// The worker's engine runs consolidation inline; a nil scheduler keeps a
	// cadence hit inside a job from re-enqueueing more jobs.
	engine := memory.NewEngine(memory.EngineParams{
		Profiles:     profileRepo,
		Memories:     memoryRepo,
		Interactions: interactionRepo,
		Problems:     problemRepo,
		Patterns:     patternRepo,
		LexiconStore: lexiconRepo,
		Lexicon:      lex,
		Config:       cfg.Memory,
		Logger:       zapLogger,
	})

	// Create memory maintainer
	maintainer := workers.NewMemoryMaintainer(engine, zapLogger)

	// Create context for graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Setup signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start consuming messages
	msgChan, errChan, err := jobQueue.Consume(ctx, cfg.RabbitMQPrefetch)
	if err != nil {
		zapLogger.Fatal("Failed to start consuming messages", zap.Error(err))
	}

	zapLogger.Info("Worker started, consuming messages from queue")

	// Process messages
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-msgChan:
				if !ok {
					zapLogger.Info("Message channel closed")
					return
				}

				// Process job
				if err := maintainer.ProcessJob(ctx, msg); err != nil {
					zapLogger.Error("Failed to process job",
						zap.Error(err),
						zap.String("job_id", msg.GetJob().ID.String()),
						zap.String("job_type", string(msg.GetJob().Type)),
					)
				}
			}
		}
	}()

	// Handle errors
	go func() {
		for {
			select {
			case <-ctx.Done():
				return
			case err, ok := <-errChan:
				if !ok {
					return
				}
				zapLogger.Error("Queue error", zap.Error(err))
			}
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	zapLogger.Info("Shutdown signal received, stopping worker...")

	// Cancel context to stop processing
	cancel()

	zapLogger.Info("Worker stopped")
}
