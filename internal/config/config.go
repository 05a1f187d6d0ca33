package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all environment-driven settings.
type Config struct {
	ReportsDir    string
	ArchiveDir    string
	LongTermDir   string
	DBPath        string
	HTTPPort      string
	GroupMeBotID  string
	GroupMeURL    string
	Environment   string
	WorkerCount   int
	QueueSize     int
	EnableWatcher bool
	ConfigPath    string
}

type fileConfig struct {
	ReportsDir  string `yaml:"reports_dir"`
	ArchiveDir  string `yaml:"archive_dir"`
	LongTermDir string `yaml:"longterm_dir"`
	DBPath      string `yaml:"db_path"`
	HTTPPort    string `yaml:"http_port"`
}

const (
	defaultWorkerCount = 4
	minQueueSize       = 8
	defaultQueueSize   = 128
	maxQueueSize       = 1024
)

// Load reads configuration from environment, an optional .env file, and
// an optional YAML config file (env wins over file values).
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ReportsDir:    getenv("REPORTS_DIR", "./reports"),
		ArchiveDir:    getenv("ARCHIVE_DIR", "./archive"),
		LongTermDir:   getenv("LONGTERM_DIR", "./archive-longterm"),
		DBPath:        getenv("DB_PATH", "./reportflow.db"),
		HTTPPort:      normalizePort(getenv("HTTP_PORT", "8080")),
		GroupMeBotID:  getenv("GROUPME_BOT_ID", ""),
		GroupMeURL:    getenv("GROUPME_URL", "https://api.groupme.com/v3/bots/post"),
		Environment:   getenv("ENVIRONMENT", "local"),
		WorkerCount:   clampInt(getenvInt("WORKER_COUNT", defaultWorkerCount), 1, 64),
		QueueSize:     clampInt(getenvInt("QUEUE_SIZE", defaultQueueSize), minQueueSize, maxQueueSize),
		EnableWatcher: getenvBool("ENABLE_WATCHER", true),
		ConfigPath:    getenv("CONFIG_PATH", ""),
	}

	if cfg.ConfigPath != "" {
		if err := cfg.applyFile(cfg.ConfigPath); err != nil {
			return cfg, err
		}
	}
	if cfg.QueueSize < cfg.WorkerCount {
		cfg.QueueSize = cfg.WorkerCount
	}

	log.Printf("config: reports_dir=%s archive_dir=%s db=%s env=%s", cfg.ReportsDir, cfg.ArchiveDir, cfg.DBPath, cfg.Environment)
	return cfg, nil
}

// applyFile overlays file values under existing env-derived ones: only
// fields the environment left at defaults are replaced.
func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	if os.Getenv("REPORTS_DIR") == "" && fc.ReportsDir != "" {
		c.ReportsDir = fc.ReportsDir
	}
	if os.Getenv("ARCHIVE_DIR") == "" && fc.ArchiveDir != "" {
		c.ArchiveDir = fc.ArchiveDir
	}
	if os.Getenv("LONGTERM_DIR") == "" && fc.LongTermDir != "" {
		c.LongTermDir = fc.LongTermDir
	}
	if os.Getenv("DB_PATH") == "" && fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if os.Getenv("HTTP_PORT") == "" && fc.HTTPPort != "" {
		c.HTTPPort = normalizePort(fc.HTTPPort)
	}
	return nil
}

func normalizePort(p string) string {
	if p == "" {
		return p
	}
	if !strings.HasPrefix(p, ":") {
		return ":" + p
	}
	return p
}

func getenv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func clampInt(v, min, max int) int {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}

// Now returns utc time helper for deterministic timestamps.
func Now() time.Time {
	return time.Now().UTC().Truncate(time.Second)
}
