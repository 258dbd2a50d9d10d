package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/contrib/websocket"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"

	"github.com/cutroom/api/internal/client"
	"github.com/cutroom/api/internal/config"
	"github.com/cutroom/api/internal/handler"
	"github.com/cutroom/api/internal/middleware"
	"github.com/cutroom/api/internal/service"
	"github.com/cutroom/api/internal/store"
	"github.com/cutroom/api/internal/worker"
	ws "github.com/cutroom/api/internal/websocket"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	// Initialize Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})

	// Test Redis connection
	ctx := context.Background()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Printf("Warning: Redis not available: %v", err)
	}

	// Initialize Asynq client
	asynqClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer asynqClient.Close()

	// Initialize validator
	validate := validator.New()

	// Initialize WebSocket hub
	hub := ws.NewHub()
	go hub.Run()

	// Initialize external clients
	ffmpegClient := client.NewFFmpegClient(&cfg.FFmpeg)
	sshClient := client.NewSSHClient(&cfg.Remote)
	if !sshClient.IsConfigured() {
		log.Println("Info: remote pipeline host not configured, AI routes will refuse")
	}

	// Initialize R2 client (optional - continues if not configured)
	var storageClient client.StorageClient
	if cfg.R2.AccessKeyID != "" && cfg.R2.SecretAccessKey != "" {
		r2Client, err := client.NewR2Client(&cfg.R2)
		if err != nil {
			log.Printf("Warning: R2 client not initialized: %v", err)
		} else {
			storageClient = r2Client
		}
	} else {
		log.Println("Info: R2 storage not configured, outputs stay local only")
	}

	// Initialize stores
	videoStore := store.NewMemoryVideoStore()
	jobStore := store.NewMemoryJobStore()

	// Initialize services
	mediaService := service.NewMediaService(videoStore, ffmpegClient, cfg.Storage.Root)
	if err := mediaService.EnsureDirectories(); err != nil {
		log.Fatalf("Failed to prepare storage: %v", err)
	}
	processService := service.NewProcessService(jobStore, mediaService, asynqClient, storageClient)
	pipelineService := service.NewPipelineService(jobStore, mediaService, sshClient, hub, cfg.Remote, cfg.Storage.HostDataRoot)
	aiService := service.NewAiService(mediaService, sshClient, cfg.Remote, cfg.Storage.HostDataRoot)

	// Initialize handlers
	videoHandler := handler.NewVideoHandler(mediaService, cfg.Storage.TempDir)
	jobHandler := handler.NewJobHandler(processService, validate)
	aiHandler := handler.NewAiHandler(aiService, pipelineService, validate)
	callbackHandler := handler.NewCallbackHandler(pipelineService, validate)

	// Auth is optional; callbacks and downloads stay open either way.
	var authMW fiber.Handler
	if cfg.Auth.Enabled && cfg.Auth.JWTSecret != "" {
		authMW = middleware.NewAuthMiddleware(cfg.Auth.JWTSecret).Authenticate()
	}
	rateLimiter := middleware.NewRateLimiter(redisClient)

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		ErrorHandler: customErrorHandler,
		BodyLimit:    2 * 1024 * 1024 * 1024, // 2GB
	})

	// Global middleware
	app.Use(recover.New())
	isDebug := strings.EqualFold(cfg.Server.LogLevel, "debug")
	logFormat := "[${time}] ${status} - ${latency} ${method} ${path}\n"
	if isDebug {
		logFormat = "[${time}] ${status} - ${latency} ${method} ${path} ${queryParams} ${reqHeaders}\n"
		log.Println("Debug logging enabled")
	}
	app.Use(logger.New(logger.Config{
		Format: logFormat,
	}))
	app.Use(cors.New(cors.Config{
		AllowOrigins: "*",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
		AllowHeaders: "Origin,Content-Type,Accept,Authorization",
	}))

	// Base URL - timestamp
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"timestamp": time.Now().Unix(),
		})
	})

	// Health check
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status": "ok",
			"services": fiber.Map{
				"remote": sshClient.IsConfigured(),
				"r2":     storageClient != nil,
				"auth":   cfg.Auth.Enabled,
			},
		})
	})

	// Callback routes stay outside auth: the remote scripts hold no tokens.
	app.Post("/ai-callback", callbackHandler.JobCallback)
	app.Post("/step-callback", callbackHandler.StepCallback)

	// API routes
	api := app.Group("/")
	if authMW != nil {
		api.Use(authMW)
	}

	api.Post("/videos", rateLimiter.UploadLimit(cfg.RateLimit.UploadPerHour), videoHandler.Upload)
	api.Get("/videos", videoHandler.List)
	api.Get("/videos/:id", videoHandler.Get)
	api.Delete("/videos/:id", videoHandler.Delete)

	api.Post("/process", rateLimiter.ProcessLimit(cfg.RateLimit.ProcessPerHour), jobHandler.Create)
	api.Get("/jobs", jobHandler.List)
	api.Get("/jobs/:id", jobHandler.Get)
	api.Delete("/jobs/:id", jobHandler.Delete)
	api.Get("/download/:jobId", jobHandler.Download)
	api.Get("/preview/*", videoHandler.Preview)

	api.Post("/transcribe", rateLimiter.TranscribeLimit(cfg.RateLimit.TranscribePerHour), aiHandler.Transcribe)
	api.Post("/ai-analyze", rateLimiter.AILimit(cfg.RateLimit.AIPerHour), aiHandler.Analyze)
	api.Post("/ai-process", rateLimiter.AILimit(cfg.RateLimit.AIPerHour), aiHandler.Process)

	// WebSocket routes
	app.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	app.Get("/ws/jobs/:jobId", websocket.New(func(c *websocket.Conn) {
		jobID := c.Params("jobId")
		hub.HandleConnection(c, jobID)
	}))

	// Start Asynq worker server
	go startWorkerServer(cfg, processService, mediaService, ffmpegClient, hub)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Println("Shutting down server...")
		if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
			log.Printf("Server shutdown error: %v", err)
		}
	}()

	// Start server
	addr := ":" + cfg.Server.Port
	log.Printf("Server starting on %s", addr)
	if err := app.Listen(addr); err != nil {
		log.Fatalf("Server error: %v", err)
	}
}

func startWorkerServer(
	cfg *config.Config,
	processService *service.ProcessService,
	mediaService *service.MediaService,
	ffmpegClient *client.FFmpegClient,
	hub *ws.Hub,
) {
	asynqLogLevel := asynq.InfoLevel
	if strings.EqualFold(cfg.Server.LogLevel, "debug") {
		asynqLogLevel = asynq.DebugLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "warn") {
		asynqLogLevel = asynq.WarnLevel
	} else if strings.EqualFold(cfg.Server.LogLevel, "error") {
		asynqLogLevel = asynq.ErrorLevel
	}

	srv := asynq.NewServer(
		asynq.RedisClientOpt{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		},
		asynq.Config{
			// One encode saturates a core; keep the worker pool small.
			Concurrency: 4,
			Queues: map[string]int{
				service.QueueTranscode: 10,
			},
			LogLevel: asynqLogLevel,
		},
	)

	transcodeWorker := worker.NewTranscodeWorker(processService, mediaService, ffmpegClient, hub)

	mux := asynq.NewServeMux()
	transcodeWorker.Register(mux)

	if err := srv.Run(mux); err != nil {
		log.Printf("Asynq worker error: %v", err)
	}
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	message := "Internal Server Error"

	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
		message = e.Message
	}

	return c.Status(code).JSON(fiber.Map{
		"error": fiber.Map{
			"code":    "SERVICE_ERROR",
			"message": message,
		},
	})
}
