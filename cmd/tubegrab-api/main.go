package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"tubegrab/internal/config"
	"tubegrab/internal/downloader"
	"tubegrab/internal/extract"
	server "tubegrab/internal/http"
	"tubegrab/internal/jobs"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to config file")
	flag.Parse()

	var cfg *config.Config
	if _, err := os.Stat(*configPath); err == nil {
		cfg = config.Load(*configPath)
	} else {
		log.Printf("config file %s not found, using defaults", *configPath)
		cfg = config.Default()
	}

	// Set up logger
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{}))

	if cfg.Downloader.Mode != "relay" {
		if err := os.MkdirAll(cfg.Downloader.Dir, 0o755); err != nil {
			log.Fatalf("create download dir failed: %v", err)
		}
	}

	reg := jobs.NewRegistry()
	// Evicted jobs take their local artifacts with them.
	reg.OnEvict(func(j jobs.Job) {
		if j.State.Result != nil && j.State.Result.ArtifactPath != "" {
			if err := os.Remove(j.State.Result.ArtifactPath); err != nil && !os.IsNotExist(err) {
				logger.Warn("artifact_cleanup_failed", "job_id", j.ID, "path", j.State.Result.ArtifactPath, "error", err)
			}
		}
	})

	ytdlp := extract.NewYtdlp(
		cfg.Downloader.YtdlpPath,
		cfg.Downloader.FragmentRetries,
		time.Duration(cfg.Downloader.ProbeTimeoutMs)*time.Millisecond,
	)
	pool := downloader.NewPool(cfg, reg, ytdlp, logger)

	rootCtx := context.Background()
	jobs.StartSweeper(rootCtx, cfg, reg, logger)

	s := server.NewServer(cfg, reg, pool, ytdlp, logger)
	if err := s.Listen(); err != nil {
		log.Fatalf("server failed: %v", err)
	}
}
