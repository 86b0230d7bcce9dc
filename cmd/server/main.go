package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.uber.org/zap"

	"github.com/oraculo-ai/oraculo/internal/cache"
	"github.com/oraculo-ai/oraculo/internal/config"
	"github.com/oraculo-ai/oraculo/internal/database"
	"github.com/oraculo-ai/oraculo/internal/handlers"
	"github.com/oraculo-ai/oraculo/internal/interpreter"
	"github.com/oraculo-ai/oraculo/internal/lexicon"
	"github.com/oraculo-ai/oraculo/internal/logger"
	"github.com/oraculo-ai/oraculo/internal/memory"
	"github.com/oraculo-ai/oraculo/internal/middleware"
	"github.com/oraculo-ai/oraculo/internal/queue"
	"github.com/oraculo-ai/oraculo/internal/services/ai"
	"github.com/oraculo-ai/oraculo/internal/telemetry"
	"github.com/oraculo-ai/oraculo/internal/workers"
)

const lexiconPromotionFloor = 3

func main() {
	// Parse command-line flags
	debugFlag := flag.Bool("debug", false, "Enable debug mode for LLM API logging")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Override debug mode if flag is set
	debugMode := cfg.ServerDebugMode || *debugFlag

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

	zapLogger.Info("starting_server",
		zap.Bool("debug_mode", debugMode),
		zap.String("server_port", cfg.ServerPort),
		zap.String("ai_provider", cfg.AIProvider),
		zap.String("ai_model", cfg.AIModel),
		zap.Float64("direct_exec_threshold", cfg.Interpreter.DirectExecThreshold),
		zap.Bool("otel_enabled", cfg.OTELEnabled),
	)

	// Initialize OpenTelemetry if enabled
	var tracerProvider interface{ Shutdown(context.Context) error }
	if cfg.OTELEnabled {
		if cfg.OTELEndpoint == "" {
			zapLogger.Warn("otel_enabled_but_endpoint_not_configured")
		} else {
			tp, err := telemetry.InitTracer(context.Background(), "oraculo-api", cfg.OTELEndpoint)
			if err != nil {
				zapLogger.Warn("failed_to_initialize_otel_tracer", zap.Error(err))
			} else {
				tracerProvider = tp
				zapLogger.Info("otel_tracer_initialized",
					zap.String("endpoint", cfg.OTELEndpoint),
				)
				defer func() {
					shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
					defer shutdownCancel()
					if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
						zapLogger.Error("failed_to_shutdown_otel_tracer", zap.Error(err))
					}
				}()
			}
		}
	}

	// Connect to database
	db, err := database.New(cfg.DatabaseURL)
	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			zapLogger.Warn("failed_to_close_database_connection", zap.Error(err))
		}
	}()

	zapLogger.Info("connected_to_database")

	schemaCtx, schemaCancel := context.WithTimeout(context.Background(), 30*time.Second)
	if err := db.EnsureSchema(schemaCtx); err != nil {
		schemaCancel()
		zapLogger.Fatal("failed_to_ensure_database_schema", zap.Error(err))
	}
	schemaCancel()

	// Connect to Redis, shared by the interpretation cache and the rate limiter
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		zapLogger.Fatal("failed_to_parse_redis_url", zap.Error(err))
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() {
		if err := redisClient.Close(); err != nil {
			zapLogger.Warn("failed_to_close_redis_connection", zap.Error(err))
		}
	}()
	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		pingCancel()
		zapLogger.Fatal("failed_to_connect_to_redis", zap.Error(err))
	}
	pingCancel()
	zapLogger.Info("connected_to_redis")

	// Connect to RabbitMQ for job queue (required)
	// Retry connection with exponential backoff to handle RabbitMQ startup delays
	const maxRetries = 10
	const initialDelay = 2 * time.Second
	var jobQueue queue.JobQueue
	var lastErr error

	for attempt := 0; attempt < maxRetries; attempt++ {
		jobQueue, err = queue.NewRabbitMQQueue(cfg.RabbitMQURL)
		if err == nil {
			zapLogger.Info("connected_to_rabbitmq")
			defer func() {
				if err := jobQueue.Close(); err != nil {
					zapLogger.Warn("failed_to_close_rabbitmq_connection", zap.Error(err))
				}
			}()
			break
		}

		lastErr = err
		delay := initialDelay * time.Duration(1<<uint(attempt)) // Exponential backoff
		if delay > 30*time.Second {
			delay = 30 * time.Second // Cap at 30 seconds
		}
		zapLogger.Warn("failed_to_connect_to_rabbitmq_retrying",
			zap.Int("attempt", attempt+1),
			zap.Int("max_retries", maxRetries),
			zap.Error(err),
			zap.Duration("retry_delay", delay),
		)
		time.Sleep(delay)
	}

	if err != nil {
		zapLogger.Fatal("failed_to_connect_to_rabbitmq_after_retries",
			zap.Int("max_retries", maxRetries),
			zap.Error(lastErr),
		)
	}

	// Initialize repositories
	profileRepo := database.NewProfileRepository(db)
	memoryRepo := database.NewMemoryRepository(db)
	interactionRepo := database.NewInteractionRepository(db)
	problemRepo := database.NewProblemRepository(db)
	patternRepo := database.NewLanguagePatternRepository(db)
	lexiconRepo := database.NewLexiconRepository(db)

	// Seed the lexicon with the built-in vocabulary, then overlay learned terms
	lex := lexicon.New()
	loadCtx, loadCancel := context.WithTimeout(context.Background(), 10*time.Second)
	loaded, err := lexiconRepo.LoadLearned(loadCtx, lex, lexiconPromotionFloor)
	loadCancel()
	if err != nil {
		zapLogger.Warn("failed_to_load_learned_lexicon_terms", zap.Error(err))
	} else {
		zapLogger.Info("learned_lexicon_terms_loaded", zap.Int("count", loaded))
	}

	// Interpretation pipeline and cache
	questionInterpreter := interpreter.New(lex, cfg.Interpreter, zapLogger)
	interpCache := cache.NewWithClient(redisClient, cfg.Interpreter.CacheTTL)

	// Optional read-only CRM connection for executing candidate queries
	var queryExecutor interpreter.QueryExecutor
	if cfg.CRMDatabaseURL != "" {
		crmDB, err := database.New(cfg.CRMDatabaseURL)
		if err != nil {
			zapLogger.Fatal("failed_to_connect_to_crm_database", zap.Error(err))
		}
		defer func() {
			if err := crmDB.Close(); err != nil {
				zapLogger.Warn("failed_to_close_crm_database_connection", zap.Error(err))
			}
		}()
		queryExecutor = database.NewReadOnlyExecutor(crmDB)
		zapLogger.Info("connected_to_crm_database")
	}

	// Memory engine; consolidation runs through the queue
	scheduler := workers.NewQueueScheduler(jobQueue)
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
		Scheduler:    scheduler,
	})

	// Initialize AI provider for low-confidence fallback
	aiProvider, err := createAIProvider(cfg, zapLogger, debugMode)
	if err != nil {
		zapLogger.Warn("failed_to_create_ai_provider_fallback_disabled", zap.Error(err))
		aiProvider = nil
	}

	// Initialize handlers
	interpretHandler := handlers.NewInterpretHandler(handlers.InterpretHandlerParams{
		Interpreter: questionInterpreter,
		Lexicon:     lex,
		Cache:       interpCache,
		Provider:    aiProvider,
		Memories:    engine,
		Executor:    queryExecutor,
		Threshold:   cfg.Interpreter.DirectExecThreshold,
		Logger:      zapLogger,
	})
	memoryHandler := handlers.NewMemoryHandler(engine, zapLogger)
	healthChecker := handlers.NewHealthChecker(db, jobQueue, interpCache)

	// Setup router
	r := mux.NewRouter()

	// Apply middleware (order matters - executed in reverse order of registration)
	zapLogger.Info("setting_up_middleware")

	if cfg.OTELEnabled && tracerProvider != nil {
		r.Use(otelmux.Middleware("oraculo-api"))
		zapLogger.Info("otel_middleware_enabled")
	}
	r.Use(middleware.SecurityHeaders(cfg.EnableHSTS))
	r.Use(middleware.CORS([]string{cfg.FrontendURL}))
	r.Use(middleware.MaxRequestSize(middleware.DefaultMaxRequestSize))
	r.Use(middleware.ContentType)
	r.Use(middleware.Timeout(30 * time.Second))
	r.Use(middleware.ErrorHandler(zapLogger))
	r.Use(middleware.Audit(zapLogger))
	r.Use(middleware.Logging(zapLogger))

	rateLimitMW, err := middleware.RateLimit(redisClient, cfg.RateLimit)
	if err != nil {
		zapLogger.Fatal("failed_to_create_rate_limiter", zap.Error(err))
	}

	// Public routes (no rate limiting for health checks)
	r.HandleFunc("/health", healthChecker.HealthCheck).Methods("GET")
	r.HandleFunc("/version", versionInfo).Methods("GET")

	// API v1 routes
	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(rateLimitMW)
	interpretHandler.RegisterRoutes(apiRouter)
	memoryHandler.RegisterRoutes(apiRouter)

	// Catch-all OPTIONS handler for preflight requests
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	// Setup server
	srv := &http.Server{
		Addr:           ":" + cfg.ServerPort,
		Handler:        r,
		ReadTimeout:    15 * time.Second,
		WriteTimeout:   15 * time.Second,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: 1 << 20, // 1MB max header size
	}

	gcCtx, gcCancel := context.WithCancel(context.Background())
	defer gcCancel()

	// Start DLQ garbage collector if the queue implementation supports it
	// Run every hour, retain messages for 24 hours
	if dlqPurger, ok := jobQueue.(queue.DLQPurger); ok {
		dlqGC := queue.NewGarbageCollector(dlqPurger, 1*time.Hour, 24*time.Hour, zapLogger)
		go func() {
			if err := dlqGC.Start(gcCtx); err != nil && err != context.Canceled {
				zapLogger.Error("dlq_garbage_collector_stopped_with_error", zap.Error(err))
			}
		}()
		zapLogger.Info("started_dlq_garbage_collector",
			zap.Duration("interval", 1*time.Hour),
			zap.Duration("retention", 24*time.Hour),
		)
	}

	// Start server in a goroutine
	go func() {
		zapLogger.Info("server_starting",
			zap.String("port", cfg.ServerPort),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server_failed_to_start", zap.Error(err))
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLogger.Info("server_shutting_down")
	gcCancel()

	// Graceful shutdown
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		zapLogger.Fatal("server_forced_to_shutdown", zap.Error(err))
	}

	zapLogger.Info("server_exited")
}

// createAIProvider creates an AI provider based on configuration
func createAIProvider(cfg *config.Config, logger *zap.Logger, debugMode bool) (ai.Provider, error) {
	if cfg.OpenAIKey == "" {
		return nil, fmt.Errorf("OpenAI API key not configured")
	}

	// Get provider type
	providerType := cfg.AIProvider
	if providerType == "" {
		providerType = "openai"
	}

	// Create provider directly with logger support
	if providerType == "openai" {
		return ai.NewOpenAIProviderWithLogger(
			cfg.OpenAIKey,
			cfg.AIBaseURL,
			cfg.AIModel,
			logger,
			debugMode,
		), nil
	}

	// Fallback to registry for other providers (without logger)
	registry := ai.NewProviderRegistry()
	ai.RegisterOpenAI(registry)

	config := map[string]string{
		"api_key":  cfg.OpenAIKey,
		"model":    cfg.AIModel,
		"base_url": cfg.AIBaseURL,
	}

	return registry.GetProvider(providerType, config)
}

func versionInfo(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	// Only expose minimal version info (sanitized for security)
	if _, err := fmt.Fprintf(w, `{"version":"1.0.0","timestamp":"%s"}`, time.Now().UTC().Format(time.RFC3339)); err != nil {
		_ = err
	}
}
