package http

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/exec"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"tubegrab/internal/config"
	"tubegrab/internal/downloader"
	"tubegrab/internal/extract"
	"tubegrab/internal/jobs"
	"tubegrab/internal/metrics"
)

type Server struct {
	app    *fiber.App
	config *config.Config
	logger *slog.Logger
}

func NewServer(cfg *config.Config, reg *jobs.Registry, pool *downloader.Pool, ext extract.Extractor, logger *slog.Logger) *Server {
	app := fiber.New()

	// Relay deliveries bound how long we wait for upstream headers;
	// the transfer itself may legitimately outlive any fixed timeout.
	relayClient := &http.Client{
		Transport: &http.Transport{
			ResponseHeaderTimeout: time.Duration(cfg.Delivery.UpstreamTimeoutMs) * time.Millisecond,
		},
	}

	// Inject config, registry, pool, and extractor into context for handlers
	app.Use(func(c *fiber.Ctx) error {
		c.Locals("config", cfg)
		c.Locals("registry", reg)
		c.Locals("pool", pool)
		c.Locals("extractor", ext)
		c.Locals("relayClient", relayClient)
		return c.Next()
	})

	// Request logging + metrics middleware
	app.Use(func(c *fiber.Ctx) error {
		start := time.Now()

		// Ensure a request ID exists
		reqID := c.Get("X-Request-Id")
		if reqID == "" {
			reqID = uuid.New().String()
		}
		c.Locals("request_id", reqID)
		if logger != nil {
			c.Locals("logger", logger)
		}

		err := c.Next()

		latency := time.Since(start)
		status := c.Response().StatusCode()
		method := c.Method()
		path := c.Route().Path

		metrics.RecordRequest(method, path, status, latency.Milliseconds())

		if logger != nil {
			logger.Info("request",
				"request_id", reqID,
				"method", method,
				"path", path,
				"status", status,
				"latency_ms", latency.Milliseconds(),
			)
		}

		return err
	})

	// Redis client for rate limiting and health checks
	var rdb *redis.Client
	if cfg.Redis.URL != "" {
		if opt, err := redis.ParseURL(cfg.Redis.URL); err == nil {
			rdb = redis.NewClient(opt)
		}
	}

	// Health endpoints
	app.Get("/healthz", func(c *fiber.Ctx) error {
		// Shallow health: process is up
		if c.Query("deep") != "true" {
			return c.JSON(fiber.Map{"status": "ok"})
		}

		// Deep health: check redis connectivity, the extraction tool,
		// and the download directory.
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()

		redisStatus := "disabled"
		if rdb != nil {
			if err := rdb.Ping(ctx).Err(); err != nil {
				redisStatus = "error"
			} else {
				redisStatus = "ok"
			}
		}

		toolStatus := "ok"
		if _, err := exec.LookPath(cfg.Downloader.YtdlpPath); err != nil {
			toolStatus = "missing"
		}

		dirStatus := "ok"
		if cfg.Downloader.Mode != "relay" {
			if fi, err := os.Stat(cfg.Downloader.Dir); err != nil || !fi.IsDir() {
				dirStatus = "error"
			}
		}

		status := "ok"
		if redisStatus == "error" || toolStatus == "missing" || dirStatus == "error" {
			status = "error"
		}

		return c.JSON(fiber.Map{
			"status":       status,
			"redis":        redisStatus,
			"extractor":    toolStatus,
			"download_dir": dirStatus,
		})
	})

	// Prometheus-style metrics endpoint
	app.Get("/metrics", func(c *fiber.Ctx) error {
		c.Type("text/plain")
		return c.SendString(metrics.Export())
	})

	var rateMw fiber.Handler
	if rdb != nil {
		rateMw = rateLimitMiddleware(cfg, rdb)
	} else {
		rateMw = localRateLimitMiddleware(cfg)
	}

	root := app.Group("/", rateMw)
	registerRoutes(root)

	return &Server{
		app:    app,
		config: cfg,
		logger: logger,
	}
}

func (s *Server) Listen() error {
	addr := fmt.Sprintf("%s:%d", s.config.Server.Host, s.config.Server.Port)
	return s.app.Listen(addr)
}

func registerRoutes(group fiber.Router) {
	group.Post("/formats", formatsHandler)
	group.Get("/formats", formatsHandler)
	group.Post("/download", submitHandler)
	group.Get("/progress/:id", progressHandler)
	group.Get("/download/:id", fetchHandler)
}
