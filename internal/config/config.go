package config

import (
	"log"
	"os"

	"gopkg.in/yaml.v3"
)

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// DownloaderConfig controls the background download workers.
//
// Mode selects the delivery strategy: "local" persists the media file
// under Dir as {job_id}.{ext}; "relay" only resolves the direct media
// URL and streams bytes from it at delivery time.
type DownloaderConfig struct {
	Mode              string `yaml:"mode"`
	Dir               string `yaml:"dir"`
	MaxConcurrent     int    `yaml:"maxConcurrent"`
	JobTimeoutMinutes int    `yaml:"jobTimeoutMinutes"`
	FragmentRetries   int    `yaml:"fragmentRetries"`
	YtdlpPath         string `yaml:"ytdlpPath"`
	ProbeTimeoutMs    int    `yaml:"probeTimeoutMs"`
}

// DeliveryConfig controls the remote-relay delivery path.
type DeliveryConfig struct {
	UpstreamTimeoutMs int `yaml:"upstreamTimeoutMs"`
	ChunkSizeBytes    int `yaml:"chunkSizeBytes"`
}

type RedisConfig struct {
	URL string `yaml:"url"`
}

type RateLimitConfig struct {
	DefaultPerMinute int `yaml:"defaultPerMinute"`
}

// RetentionConfig controls eviction of terminal jobs from the in-memory
// registry so that it does not grow without bound over time.
type RetentionConfig struct {
	Enabled                bool `yaml:"enabled"`
	CleanupIntervalMinutes int  `yaml:"cleanupIntervalMinutes"`
	JobTTLMinutes          int  `yaml:"jobTTLMinutes"`
}

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Downloader DownloaderConfig `yaml:"downloader"`
	Delivery   DeliveryConfig   `yaml:"delivery"`
	Redis      RedisConfig      `yaml:"redis"`
	RateLimit  RateLimitConfig  `yaml:"ratelimit"`
	Retention  RetentionConfig  `yaml:"retention"`
}

func Load(path string) *Config {
	f, err := os.Open(path)
	if err != nil {
		log.Fatalf("failed to open config file: %v", err)
	}
	defer f.Close()

	cfg := Default()
	if err := yaml.NewDecoder(f).Decode(cfg); err != nil {
		log.Fatalf("failed to decode config: %v", err)
	}

	return cfg
}

// Default returns the configuration used when a field (or the whole
// file) is absent.
func Default() *Config {
	return &Config{
		Server: ServerConfig{Host: "0.0.0.0", Port: 8080},
		Downloader: DownloaderConfig{
			Mode:              "local",
			Dir:               "downloads",
			MaxConcurrent:     4,
			JobTimeoutMinutes: 30,
			FragmentRetries:   5,
			YtdlpPath:         "yt-dlp",
			ProbeTimeoutMs:    60000,
		},
		Delivery:  DeliveryConfig{UpstreamTimeoutMs: 30000, ChunkSizeBytes: 16 * 1024},
		RateLimit: RateLimitConfig{DefaultPerMinute: 60},
		Retention: RetentionConfig{Enabled: true, CleanupIntervalMinutes: 15, JobTTLMinutes: 360},
	}
}
